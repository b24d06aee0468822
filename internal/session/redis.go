package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "tablemate:session:"
	activeSetKey = "tablemate:active_sessions"
)

// RedisMirror stores snapshots as plain keys with an expiry.
type RedisMirror struct {
	client *redis.Client
}

// NewRedisMirror wraps a connected client.
func NewRedisMirror(client *redis.Client) *RedisMirror {
	return &RedisMirror{client: client}
}

func sessionKey(id string) string {
	return keyPrefix + id
}

// Save writes the snapshot and records the id in the active set.
func (r *RedisMirror) Save(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(id), data, ttl)
	pipe.SAdd(ctx, activeSetKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}
	return nil
}

// Load returns ErrNotFound when the key has expired or never existed.
func (r *RedisMirror) Load(ctx context.Context, id string) ([]byte, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}
	return data, nil
}

// Delete removes the snapshot and its active-set entry.
func (r *RedisMirror) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, activeSetKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session snapshot: %w", err)
	}
	return nil
}
