// Package cache provides the expiring key/value response cache.
//
// The store is deliberately dumb: keys are opaque strings, payloads are
// opaque bytes, and expiry is lazy on read. Cache key derivation belongs
// to the gateway service, so the store stays swappable for an external
// cache without behavior change.
package cache

import (
	"context"
	"time"
)

// Entry is a stored payload with its expiry timestamp.
type Entry struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is an expiring key/value store.
//
// Implementations must be thread-safe. An expired or absent entry is a
// miss; implementations are not required to evict proactively.
type Store interface {
	// Get returns the payload for key if it has not expired.
	// The second return reports whether a live entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put upserts the payload under key. An existing entry is fully
	// replaced, including a refreshed expiry of now + ttl.
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Delete removes the entry for key, expired or not.
	Delete(ctx context.Context, key string) error

	// PurgeExpired removes entries that expired before now. Optional
	// housekeeping; correctness never depends on it.
	PurgeExpired(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// Ensure interface compliance at compile time.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
)
