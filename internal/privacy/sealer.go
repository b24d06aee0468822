// Package privacy stores a participant's preferences encrypted at rest.
package privacy

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "tablemate preference store v1"

// ErrMalformedBlob indicates the ciphertext is truncated or was not produced by Seal.
var ErrMalformedBlob = errors.New("malformed sealed blob")

// Sealer encrypts blobs with XChaCha20-Poly1305. The owner is bound as
// associated data so a blob cannot be replayed under another owner.
type Sealer struct {
	key []byte
}

// NewSealer derives the encryption key from secret with HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("preference secret must not be empty")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive preference key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal returns nonce || ciphertext.
func (s *Sealer) Seal(owner string, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, []byte(owner)), nil
}

// Open reverses Seal.
func (s *Sealer) Open(owner string, blob []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(blob) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrMalformedBlob
	}

	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(owner))
	if err != nil {
		return nil, fmt.Errorf("decrypt preferences: %w", err)
	}
	return plaintext, nil
}
