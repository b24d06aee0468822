package privacy

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/octobees/tablemate/internal/repository"
)

// FileBlobs stores one <owner>.enc file per owner in a directory.
type FileBlobs struct {
	dir string
}

// NewFileBlobs creates dir if needed.
func NewFileBlobs(dir string) (*FileBlobs, error) {
	if dir == "" {
		return nil, fmt.Errorf("preference directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create preference directory: %w", err)
	}
	return &FileBlobs{dir: dir}, nil
}

// Owner ids are hex encoded so any string maps to a safe file name.
func (f *FileBlobs) path(owner string) string {
	return filepath.Join(f.dir, hex.EncodeToString([]byte(owner))+".enc")
}

// Put writes the blob through a temp file and rename.
func (f *FileBlobs) Put(_ context.Context, owner string, blob []byte) error {
	target := f.path(owner)
	tmp, err := os.CreateTemp(f.dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write preference blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close preference blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store preference blob: %w", err)
	}
	return nil
}

// Get reads the blob for owner.
func (f *FileBlobs) Get(_ context.Context, owner string) ([]byte, error) {
	blob, err := os.ReadFile(f.path(owner))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrBlobNotFound
		}
		return nil, fmt.Errorf("read preference blob: %w", err)
	}
	return blob, nil
}

// Delete removes the blob file.
func (f *FileBlobs) Delete(_ context.Context, owner string) (bool, error) {
	err := os.Remove(f.path(owner))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("delete preference blob: %w", err)
	}
	return true, nil
}
