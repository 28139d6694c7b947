package ratelimit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// fakeClock lets tests advance time past window boundaries without sleeping.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, max int64, window time.Duration) (*FixedWindow, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter, err := NewFixedWindow(max, window, NewMemoryStore(), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	return limiter, clock
}

func TestFixedWindow_WindowCorrectness(t *testing.T) {
	limiter, clock := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	// Three consecutive checks count down remaining 2, 1, 0.
	for i, wantRemaining := range []int64{2, 1, 0} {
		result, err := limiter.Check(ctx, "user-a")
		if err != nil {
			t.Fatalf("unexpected error on check %d: %v", i+1, err)
		}
		if !result.Allowed {
			t.Errorf("check %d: expected allowed", i+1)
		}
		if result.Remaining != wantRemaining {
			t.Errorf("check %d: remaining = %d, want %d", i+1, result.Remaining, wantRemaining)
		}
	}

	// Fourth call within the window is rejected with remaining 0.
	result, err := limiter.Check(ctx, "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Allowed {
		t.Error("fourth check: expected rejection")
	}
	if result.Remaining != 0 {
		t.Errorf("fourth check: remaining = %d, want 0", result.Remaining)
	}

	// Past the window boundary a fresh window starts with this request
	// already counted.
	clock.Advance(time.Minute + time.Second)
	result, err = limiter.Check(ctx, "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Error("post-window check: expected allowed")
	}
	if result.Remaining != 2 {
		t.Errorf("post-window check: remaining = %d, want 2", result.Remaining)
	}
}

func TestFixedWindow_BlockedCallsDoNotIncrement(t *testing.T) {
	limiter, clock := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := limiter.Check(ctx, "user-a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Hammer the blocked identity; the counter must not climb.
	for i := 0; i < 10; i++ {
		result, err := limiter.Check(ctx, "user-a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Allowed {
			t.Fatalf("blocked check %d: expected rejection", i+1)
		}
	}

	// Half a window later the window still resets on schedule, proving
	// the blocked calls left the record untouched.
	clock.Advance(time.Minute)
	result, err := limiter.Check(ctx, "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Error("expected a fresh window after the original one elapsed")
	}
}

func TestFixedWindow_ResetAfter(t *testing.T) {
	limiter, clock := newTestLimiter(t, 5, time.Minute)
	ctx := context.Background()

	result, err := limiter.Check(ctx, "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ResetAfter != time.Minute {
		t.Errorf("reset_after = %s, want %s", result.ResetAfter, time.Minute)
	}

	clock.Advance(40 * time.Second)
	result, err = limiter.Check(ctx, "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ResetAfter != 20*time.Second {
		t.Errorf("reset_after = %s, want %s", result.ResetAfter, 20*time.Second)
	}
	if result.RetryAfterSeconds() != 20 {
		t.Errorf("retry_after_seconds = %d, want 20", result.RetryAfterSeconds())
	}
}

func TestFixedWindow_IdentityIsolation(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	// Exhaust identity A.
	for i := 0; i < 3; i++ {
		if _, err := limiter.Check(ctx, "user-a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Identity B is unaffected.
	result, err := limiter.Check(ctx, "user-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Allowed {
		t.Error("expected user-b to be allowed")
	}
	if result.Remaining != 1 {
		t.Errorf("user-b remaining = %d, want 1", result.Remaining)
	}
}

func TestFixedWindow_PeekDoesNotConsume(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)
	ctx := context.Background()

	if _, err := limiter.Check(ctx, "user-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		result, err := limiter.Peek(ctx, "user-a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Remaining != 2 {
			t.Errorf("peek %d: remaining = %d, want 2", i+1, result.Remaining)
		}
	}
}

func TestFixedWindow_EmptyIdentity(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3, time.Minute)

	if _, err := limiter.Check(context.Background(), ""); err != ErrInvalidIdentity {
		t.Errorf("expected ErrInvalidIdentity, got %v", err)
	}
}

func TestFixedWindow_PurgeExpired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	limiter, err := NewFixedWindow(3, time.Minute, store, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}

	ctx := context.Background()
	if _, err := limiter.Check(ctx, "user-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := limiter.Check(ctx, "user-b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := limiter.Check(ctx, "user-c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := limiter.PurgeExpired(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Size() != 1 {
		t.Errorf("store size after purge = %d, want 1", store.Size())
	}
}

func TestRateLimitError(t *testing.T) {
	result := &Result{Allowed: false, Remaining: 0, Limit: 3, ResetAfter: 90 * time.Second}
	err := NewRateLimitError(result)

	if !IsRateLimitError(err) {
		t.Error("expected IsRateLimitError to be true")
	}
	if got := GetResult(err); got != result {
		t.Errorf("GetResult returned %v, want original result", got)
	}
	if err.RetryAfterSeconds() != 90 {
		t.Errorf("retry_after_seconds = %d, want 90", err.RetryAfterSeconds())
	}
	if IsRateLimitError(context.Canceled) {
		t.Error("unrelated error must not be a rate limit error")
	}
}

func TestSQLStore_RoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer db.Close()

	store, err := NewSQLStore(db, "sqlite")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()

	got, err := store.Get(ctx, "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil record for unknown identity, got %+v", got)
	}

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := &Record{Identity: "user-a", WindowStart: start, Count: 1}
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record.Count = 2
	if err := store.Put(ctx, record); err != nil {
		t.Fatalf("unexpected error on upsert: %v", err)
	}

	got, err = store.Get(ctx, "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Count != 2 {
		t.Fatalf("got %+v, want count 2", got)
	}

	if err := store.DeleteExpired(ctx, start.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = store.Get(ctx, "user-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected record to be purged, got %+v", got)
	}
}

func TestFixedWindow_ConcurrentChecks(t *testing.T) {
	limiter, _ := newTestLimiter(t, 10, time.Minute)
	ctx := context.Background()

	results := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		go func() {
			result, err := limiter.Check(ctx, "user-a")
			if err != nil {
				results <- false
				return
			}
			results <- result.Allowed
		}()
	}

	allowed := 0
	for i := 0; i < 50; i++ {
		if <-results {
			allowed++
		}
	}
	if allowed != 10 {
		t.Errorf("allowed = %d, want exactly 10", allowed)
	}
}
