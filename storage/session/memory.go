package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/tutoring/core/session"
)

var NowFunc = time.Now // mockable

type memEntry struct {
	fields    map[string]string
	expiresAt time.Time // zero: never
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memEntry
}

var _ session.Store = (*memoryStore)(nil) // interface compliance check

// NewMemoryStore returns a process-local store, used when no redis server is configured & in tests.
func NewMemoryStore() session.Store {
	return &memoryStore{sessions: make(map[string]*memEntry)}
}

func (s *memoryStore) Get(_ context.Context, key, field string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[key]
	if !ok || (!e.expiresAt.IsZero() && !NowFunc().Before(e.expiresAt)) {
		return "", nil
	}
	return e.fields[field], nil
}

func (s *memoryStore) Set(_ context.Context, key, field, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[key]
	if !ok || (!e.expiresAt.IsZero() && !NowFunc().Before(e.expiresAt)) {
		e = &memEntry{fields: make(map[string]string)}
		s.sessions[key] = e
	}
	e.fields[field] = value
	if ttl > 0 {
		e.expiresAt = NowFunc().Add(ttl)
	}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}
