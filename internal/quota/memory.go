package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local CounterStore.  It backs tests and the
// single-instance fallback used when Redis is not reachable at startup.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	value   int
	expires time.Time
}

// NewMemoryStore returns an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry), now: time.Now}
}

// WithClock makes the store read time from now; expiry follows that clock.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	return e.value, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{value: value, expires: s.now().Add(ttl)}
	return nil
}

// Consume implements AtomicConsumer under the store mutex.
func (s *MemoryStore) Consume(_ context.Context, key string, limit int, ttl time.Duration) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _ := s.live(key)
	if e.value >= limit {
		return e.value, false, nil
	}
	e = memEntry{value: e.value + 1, expires: s.now().Add(ttl)}
	s.entries[key] = e
	return e.value, true, nil
}

// live returns the entry at key, dropping it when expired.  Callers hold mu.
func (s *MemoryStore) live(key string) (memEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return memEntry{}, false
	}
	return e, true
}
