package repository

import (
	"context"
	"time"
)

// KeyValueStore is the minimal store behind challenge and user sessions.
// DeleteIfPresent must be atomic: of several concurrent callers for the same key at most one sees true.
type KeyValueStore interface {
	// Put stores value under key; ttl <= 0 means no expiry
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns types.ErrNotFound for missing or expired keys
	Get(ctx context.Context, key string) ([]byte, error)
	// DeleteIfPresent reports whether this call removed the key
	DeleteIfPresent(ctx context.Context, key string) (bool, error)
}
