package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrBlobNotFound indicates no sealed preferences exist for the owner.
var ErrBlobNotFound = errors.New("preference blob not found")

// PGXPreferencesRepository keeps sealed preference blobs in a bytea column.
type PGXPreferencesRepository struct {
	pool pgxPool
}

// NewPGXPreferencesRepository wires a pgx backed blob store.
func NewPGXPreferencesRepository(pool *pgxpool.Pool) *PGXPreferencesRepository {
	return &PGXPreferencesRepository{pool: pool}
}

// Put stores or replaces the blob for owner.
func (r *PGXPreferencesRepository) Put(ctx context.Context, owner string, blob []byte) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO preference_blobs (owner, payload, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (owner) DO UPDATE SET
            payload = EXCLUDED.payload,
            updated_at = NOW()`, owner, blob)
	if err != nil {
		return fmt.Errorf("store preference blob: %w", err)
	}
	return nil
}

// Get returns the blob for owner or ErrBlobNotFound.
func (r *PGXPreferencesRepository) Get(ctx context.Context, owner string) ([]byte, error) {
	var blob []byte
	err := r.pool.QueryRow(ctx, `SELECT payload FROM preference_blobs WHERE owner = $1`, owner).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("load preference blob: %w", err)
	}
	return blob, nil
}

// Delete removes the blob for owner and reports whether one existed.
func (r *PGXPreferencesRepository) Delete(ctx context.Context, owner string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM preference_blobs WHERE owner = $1`, owner)
	if err != nil {
		return false, fmt.Errorf("delete preference blob: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
