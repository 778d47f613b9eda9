package banstore

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	count     int64
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemory returns a Store local to this process.
func NewMemory() Store {
	return &memoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// get returns the live entry for key, dropping it when expired. Callers hold mu.
func (s *memoryStore) get(key string) *entry {
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

func (s *memoryStore) Ban(_ context.Context, ip string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[banPrefix+ip] = &entry{count: 1, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memoryStore) IsBanned(_ context.Context, ip string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(banPrefix+ip) != nil, nil
}

func (s *memoryStore) Unban(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, banPrefix+ip)
	return nil
}

func (s *memoryStore) Allow(_ context.Context, key string, limit int64, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.get(ratePrefix + key)
	if e == nil {
		e = &entry{expiresAt: s.now().Add(window)}
		s.entries[ratePrefix+key] = e
	}
	e.count++
	s.sweep()
	return e.count <= limit, nil
}

// sweep drops expired entries once the map grows. Callers hold mu.
func (s *memoryStore) sweep() {
	if len(s.entries) < 10_000 {
		return
	}
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}
