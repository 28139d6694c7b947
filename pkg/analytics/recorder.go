// Package analytics records gateway usage events and maintains rolling
// daily aggregates.
//
// Recording is best-effort by contract: the gateway logs and discards
// Track errors, so a broken analytics store can never fail a user-facing
// request. The event log is append-only and authoritative; the daily
// rollup exists solely for reporting and can be rebuilt from the log.
package analytics

import (
	"context"
	"time"
)

// Recorder persists usage events and serves the daily rollup.
//
// Implementations must be thread-safe.
type Recorder interface {
	// Track appends one event and folds it into the daily aggregate.
	// A zero ID or CreatedAt is filled in.
	Track(ctx context.Context, event Event) error

	// DailySummary returns aggregates for days in [from, to], inclusive,
	// ordered by day then feature.
	DailySummary(ctx context.Context, from, to time.Time) ([]DailyAggregate, error)

	// Rebuild recomputes one day's aggregates from the event log,
	// replacing whatever the rollup currently holds for that day.
	Rebuild(ctx context.Context, day time.Time) error

	// Close closes the recorder and releases resources.
	Close() error
}

// Ensure interface compliance at compile time.
var (
	_ Recorder = (*MemoryRecorder)(nil)
	_ Recorder = (*SQLRecorder)(nil)
	_ Recorder = (*NoopRecorder)(nil)
)

// NoopRecorder drops everything. Used when analytics is disabled.
type NoopRecorder struct{}

func (NoopRecorder) Track(ctx context.Context, event Event) error { return nil }

func (NoopRecorder) DailySummary(ctx context.Context, from, to time.Time) ([]DailyAggregate, error) {
	return nil, nil
}

func (NoopRecorder) Rebuild(ctx context.Context, day time.Time) error { return nil }

func (NoopRecorder) Close() error { return nil }
