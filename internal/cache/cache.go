// Package cache stores batch clustering results under opaque ids so clients
// can fetch them after the computation finished. Entries expire; a miss after
// expiry is indistinguishable from an id that never existed.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-value store with per-entry TTL.
type Cache interface {
	// Get returns the stored value, or a sentinel.ErrNotFound-wrapping error
	// on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
