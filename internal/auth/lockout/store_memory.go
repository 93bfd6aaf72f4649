package lockout

import (
	"context"
	"sync"
	"time"

	"dlvery/pkg/platform/sentinel"
)

type memoryEntry struct {
	failures    int
	expiresAt   time.Time
	lockedUntil *time.Time
}

// InMemoryStore keeps counters in process. Expired entries are dropped on access.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewInMemoryStore(now func() time.Time) *InMemoryStore {
	if now == nil {
		now = time.Now
	}
	return &InMemoryStore{entries: make(map[string]*memoryEntry), now: now}
}

func (s *InMemoryStore) live(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *InMemoryStore) Get(_ context.Context, key string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return nil, sentinel.ErrNotFound
	}
	return e.record(key), nil
}

func (s *InMemoryStore) Increment(_ context.Context, key string, window time.Duration) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		e = &memoryEntry{expiresAt: s.now().Add(window)}
		s.entries[key] = e
	}
	e.failures++
	return e.record(key), nil
}

func (s *InMemoryStore) Lock(_ context.Context, key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		e = &memoryEntry{}
		s.entries[key] = e
	}
	e.lockedUntil = &until
	if until.After(e.expiresAt) {
		e.expiresAt = until
	}
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (e *memoryEntry) record(key string) *Record {
	rec := &Record{Key: key, Failures: e.failures}
	if e.lockedUntil != nil {
		until := *e.lockedUntil
		rec.LockedUntil = &until
	}
	return rec
}
