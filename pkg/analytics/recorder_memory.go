package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type aggregateKey struct {
	Day     string
	Feature Feature
}

// MemoryRecorder is an in-memory implementation of Recorder, suitable for
// tests and single-process deployments where durability doesn't matter.
type MemoryRecorder struct {
	mu         sync.RWMutex
	events     []Event
	aggregates map[aggregateKey]*DailyAggregate
	dayUsers   map[aggregateKey]map[string]bool
	now        func() time.Time
}

// MemoryOption configures a MemoryRecorder.
type MemoryOption func(*MemoryRecorder)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRecorder) {
		r.now = now
	}
}

// NewMemoryRecorder creates a new in-memory recorder.
func NewMemoryRecorder(opts ...MemoryOption) *MemoryRecorder {
	r := &MemoryRecorder{
		aggregates: make(map[aggregateKey]*DailyAggregate),
		dayUsers:   make(map[aggregateKey]map[string]bool),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Track appends one event and folds it into the daily aggregate.
func (r *MemoryRecorder) Track(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}

	r.events = append(r.events, event)
	r.fold(&event)
	return nil
}

// fold applies one event to the rollup. Caller holds the lock.
func (r *MemoryRecorder) fold(event *Event) {
	key := aggregateKey{Day: DayKey(event.CreatedAt), Feature: event.Feature}

	agg, exists := r.aggregates[key]
	if !exists {
		agg = &DailyAggregate{Day: key.Day, Feature: key.Feature}
		r.aggregates[key] = agg
	}
	agg.apply(event)

	if event.UserID != "" {
		users := r.dayUsers[key]
		if users == nil {
			users = make(map[string]bool)
			r.dayUsers[key] = users
		}
		if !users[event.UserID] {
			users[event.UserID] = true
			agg.UniqueUsers++
		}
	}
}

// DailySummary returns aggregates for days in [from, to], inclusive.
func (r *MemoryRecorder) DailySummary(ctx context.Context, from, to time.Time) ([]DailyAggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fromKey, toKey := DayKey(from), DayKey(to)

	result := make([]DailyAggregate, 0, len(r.aggregates))
	for key, agg := range r.aggregates {
		if key.Day >= fromKey && key.Day <= toKey {
			result = append(result, *agg)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Day != result[j].Day {
			return result[i].Day < result[j].Day
		}
		return result[i].Feature < result[j].Feature
	})
	return result, nil
}

// Rebuild recomputes one day's aggregates from the event log.
func (r *MemoryRecorder) Rebuild(ctx context.Context, day time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dayStr := DayKey(day)
	for key := range r.aggregates {
		if key.Day == dayStr {
			delete(r.aggregates, key)
			delete(r.dayUsers, key)
		}
	}

	for i := range r.events {
		if DayKey(r.events[i].CreatedAt) == dayStr {
			r.fold(&r.events[i])
		}
	}
	return nil
}

// Events returns a copy of the event log (for testing and reporting).
func (r *MemoryRecorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]Event, len(r.events))
	copy(events, r.events)
	return events
}

// Close clears the recorder.
func (r *MemoryRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
	r.aggregates = make(map[aggregateKey]*DailyAggregate)
	r.dayUsers = make(map[aggregateKey]map[string]bool)
	return nil
}
