package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store.
// It is thread-safe and suitable for development, testing, and
// single-instance deployments. Records do not survive a restart; this is
// a best-effort fairness control, not a distributed guarantee.
type MemoryStore struct {
	data map[string]*Record
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*Record),
	}
}

// Get returns the record for an identity, or nil if none exists.
func (s *MemoryStore) Get(ctx context.Context, identity string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.data[identity]
	if !exists {
		return nil, nil
	}

	// Copy so the caller can mutate freely before Put.
	cp := *record
	return &cp, nil
}

// Put upserts the record for record.Identity.
func (s *MemoryStore) Put(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *record
	s.data[record.Identity] = &cp
	return nil
}

// Delete removes the record for an identity.
func (s *MemoryStore) Delete(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, identity)
	return nil
}

// DeleteExpired removes records whose window started before cutoff.
func (s *MemoryStore) DeleteExpired(ctx context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for identity, record := range s.data {
		if record.WindowStart.Before(cutoff) {
			delete(s.data, identity)
		}
	}
	return nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*Record)
	return nil
}

// Size returns the number of records in the store (for testing).
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
