package privacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/octobees/tablemate/internal/entity"
	"github.com/octobees/tablemate/internal/repository"
)

// BlobStore keeps opaque per-owner blobs. Get returns repository.ErrBlobNotFound
// when nothing is stored.
type BlobStore interface {
	Put(ctx context.Context, owner string, blob []byte) error
	Get(ctx context.Context, owner string) ([]byte, error)
	Delete(ctx context.Context, owner string) (bool, error)
}

// Store saves preferences sealed with a Sealer into a BlobStore.
type Store struct {
	sealer *Sealer
	blobs  BlobStore
}

// NewStore wires a sealer to a blob backend.
func NewStore(sealer *Sealer, blobs BlobStore) *Store {
	return &Store{sealer: sealer, blobs: blobs}
}

// Save stores the stable part of prefs. Dialog cursor state is dropped.
func (s *Store) Save(ctx context.Context, owner string, prefs entity.UserPreferences) error {
	if owner == "" {
		return fmt.Errorf("owner must not be empty")
	}

	plain, err := json.Marshal(prefs.Stable())
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	blob, err := s.sealer.Seal(owner, plain)
	if err != nil {
		return err
	}
	return s.blobs.Put(ctx, owner, blob)
}

// Load returns nil, nil when the owner has nothing stored.
func (s *Store) Load(ctx context.Context, owner string) (*entity.UserPreferences, error) {
	blob, err := s.blobs.Get(ctx, owner)
	if err != nil {
		if errors.Is(err, repository.ErrBlobNotFound) {
			return nil, nil
		}
		return nil, err
	}

	plain, err := s.sealer.Open(owner, blob)
	if err != nil {
		return nil, err
	}

	var prefs entity.UserPreferences
	if err := json.Unmarshal(plain, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	prefs = prefs.Stable()
	return &prefs, nil
}

// Delete removes stored preferences and reports whether any existed.
func (s *Store) Delete(ctx context.Context, owner string) (bool, error) {
	return s.blobs.Delete(ctx, owner)
}
