package ratelimit

import (
	"context"
	"time"
)

// Limiter is the main interface for rate limiting.
//
// Implementations must be thread-safe and support concurrent access.
type Limiter interface {
	// Check consumes one request slot for the identity if quota remains.
	// The check and the increment are atomic as a unit; blocked requests
	// are not counted.
	Check(ctx context.Context, identity string) (*Result, error)

	// Peek reports current usage without consuming quota.
	Peek(ctx context.Context, identity string) (*Result, error)

	// Reset clears the identity's window. Useful for tests and manual
	// quota resets.
	Reset(ctx context.Context, identity string) error

	// PurgeExpired removes windows that elapsed before now. Should be
	// called periodically for cleanup.
	PurgeExpired(ctx context.Context) error

	// Close releases limiter resources.
	Close() error
}

// Store is the persistence layer for rate limit records.
//
// Implementations must be thread-safe; the limiter serializes
// check-then-increment itself, so stores only need consistent reads
// and writes.
type Store interface {
	// Get returns the record for an identity, or nil if none exists.
	Get(ctx context.Context, identity string) (*Record, error)

	// Put upserts the record for record.Identity.
	Put(ctx context.Context, record *Record) error

	// Delete removes the record for an identity.
	Delete(ctx context.Context, identity string) error

	// DeleteExpired removes records whose window started before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) error

	// Close closes the store and releases resources.
	Close() error
}

// Ensure interface compliance at compile time.
var (
	_ Limiter = (*FixedWindow)(nil)
	_ Limiter = (*Unlimited)(nil)
	_ Store   = (*MemoryStore)(nil)
	_ Store   = (*SQLStore)(nil)
)
