package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for single-instance deployments and
// tests. It is not shared across server instances; multi-instance deployments
// must use the redis store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore and starts a background sweep that
// evicts expired entries every sweepInterval, keeping the map bounded.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
		now:     time.Now,
	}

	if sweepInterval > 0 {
		go s.sweepLoop(sweepInterval)
	}

	return s
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// Sweep removes all expired entries.
func (s *MemoryStore) Sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

// Close stops the background sweep.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// Increment adds one to the key, creating it with the given TTL.
func (s *MemoryStore) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = memoryEntry{count: 0, expiresAt: now.Add(ttl)}
	}
	entry.count++
	s.entries[key] = entry

	return entry.count, nil
}

// Get returns the current count, zero when absent or expired.
func (s *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.expiresAt) {
		return 0, nil
	}
	return entry.count, nil
}

// TTL returns the remaining lifetime of the key, zero when absent.
func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.expiresAt) {
		return 0, nil
	}
	return entry.expiresAt.Sub(now), nil
}

// Touch sets the key to one with the given TTL, overwriting any state.
func (s *MemoryStore) Touch(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{count: 1, expiresAt: s.now().Add(ttl)}
	return nil
}

// Evict removes the key.
func (s *MemoryStore) Evict(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
