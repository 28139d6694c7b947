package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store with lazy expiry.
// Entries are lost on restart and not shared across instances; acceptable
// for single-process deployments, swap in the SQL store otherwise.
type MemoryStore struct {
	data map[string]*Entry
	mu   sync.RWMutex
	now  func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a new in-memory cache store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		data: make(map[string]*Entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the payload for key if it has not expired.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.data[key]
	if !exists {
		return nil, false, nil
	}
	if !entry.ExpiresAt.After(s.now()) {
		// Expired entries are left in place; PurgeExpired sweeps them.
		return nil, false, nil
	}

	payload := make([]byte, len(entry.Payload))
	copy(payload, entry.Payload)
	return payload, true, nil
}

// Put upserts the payload under key with expiry now + ttl.
func (s *MemoryStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(payload))
	copy(stored, payload)

	s.data[key] = &Entry{
		Key:       key,
		Payload:   stored,
		ExpiresAt: s.now().Add(ttl),
	}
	return nil
}

// Delete removes the entry for key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// PurgeExpired removes entries that already expired.
func (s *MemoryStore) PurgeExpired(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.data {
		if !entry.ExpiresAt.After(now) {
			delete(s.data, key)
		}
	}
	return nil
}

// Close clears the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]*Entry)
	return nil
}

// Size returns the number of entries, expired ones included (for testing).
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
