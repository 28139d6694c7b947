package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FixedWindow implements Limiter with a per-identity fixed window counter.
type FixedWindow struct {
	max    int64
	window time.Duration
	store  Store
	mu     sync.Mutex
	now    func() time.Time
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock overrides the time source. Tests use this to advance time
// past window boundaries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(fw *FixedWindow) {
		fw.now = now
	}
}

// NewFixedWindow creates a limiter allowing max requests per window for
// each identity independently.
func NewFixedWindow(max int64, window time.Duration, store Store, opts ...Option) (*FixedWindow, error) {
	if max <= 0 {
		return nil, fmt.Errorf("max must be positive, got %d", max)
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	fw := &FixedWindow{
		max:    max,
		window: window,
		store:  store,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(fw)
	}
	return fw, nil
}

// Check consumes one slot for the identity if quota remains.
func (fw *FixedWindow) Check(ctx context.Context, identity string) (*Result, error) {
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.now()

	record, err := fw.store.Get(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limit record: %w", err)
	}

	// First request ever, or the previous window has elapsed: start a
	// fresh window with this request already counted.
	if record == nil || now.Sub(record.WindowStart) >= fw.window {
		record = &Record{
			Identity:    identity,
			WindowStart: now,
			Count:       1,
		}
		if err := fw.store.Put(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to put rate limit record: %w", err)
		}
		return fw.result(true, record, now), nil
	}

	// Over the cap: reject without incrementing, so repeated blocked
	// calls cannot climb the counter.
	if record.Count >= fw.max {
		return fw.result(false, record, now), nil
	}

	record.Count++
	if err := fw.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to put rate limit record: %w", err)
	}
	return fw.result(true, record, now), nil
}

// Peek reports current usage without consuming quota.
func (fw *FixedWindow) Peek(ctx context.Context, identity string) (*Result, error) {
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.now()

	record, err := fw.store.Get(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limit record: %w", err)
	}

	if record == nil || now.Sub(record.WindowStart) >= fw.window {
		return &Result{
			Allowed:    true,
			Remaining:  fw.max,
			Limit:      fw.max,
			ResetAfter: fw.window,
		}, nil
	}

	return fw.result(record.Count < fw.max, record, now), nil
}

// Reset clears the identity's window.
func (fw *FixedWindow) Reset(ctx context.Context, identity string) error {
	if identity == "" {
		return ErrInvalidIdentity
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	return fw.store.Delete(ctx, identity)
}

// PurgeExpired removes records whose window already elapsed.
func (fw *FixedWindow) PurgeExpired(ctx context.Context) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	return fw.store.DeleteExpired(ctx, fw.now().Add(-fw.window))
}

// Close closes the underlying store.
func (fw *FixedWindow) Close() error {
	return fw.store.Close()
}

func (fw *FixedWindow) result(allowed bool, record *Record, now time.Time) *Result {
	remaining := fw.max - record.Count
	if remaining < 0 {
		remaining = 0
	}

	resetAfter := fw.window - now.Sub(record.WindowStart)
	if resetAfter < 0 {
		resetAfter = 0
	}

	return &Result{
		Allowed:    allowed,
		Remaining:  remaining,
		Limit:      fw.max,
		ResetAfter: resetAfter,
	}
}

// Unlimited is a Limiter that always allows. Used when rate limiting is
// disabled in configuration.
type Unlimited struct{}

// NewUnlimited creates a pass-through limiter.
func NewUnlimited() *Unlimited {
	return &Unlimited{}
}

func (u *Unlimited) Check(ctx context.Context, identity string) (*Result, error) {
	return &Result{Allowed: true, Remaining: -1, Limit: -1}, nil
}

func (u *Unlimited) Peek(ctx context.Context, identity string) (*Result, error) {
	return &Result{Allowed: true, Remaining: -1, Limit: -1}, nil
}

func (u *Unlimited) Reset(ctx context.Context, identity string) error { return nil }

func (u *Unlimited) PurgeExpired(ctx context.Context) error { return nil }

func (u *Unlimited) Close() error { return nil }
