// Package ratelimit implements per-key sliding-window request limiting with
// pluggable storage. The in-memory store serves a single process; the Redis
// store shares the window across replicas.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store answers whether the caller identified by key may make another request
// within the window. Implementations must be safe for concurrent use.
type Store interface {
	// Allow records the request and reports whether it is within limit.
	// A denied request is not recorded.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// MemoryStore keeps per-key request timestamps in process memory. Entries
// whose requests have all aged out are dropped by a background sweep.
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
	stop chan struct{}
}

// NewMemoryStore starts the store and its cleanup goroutine.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		hits: make(map[string][]time.Time),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *MemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-window)
	kept := s.hits[key][:0]
	for _, t := range s.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		s.hits[key] = kept
		return false, nil
	}
	s.hits[key] = append(kept, s.now())
	return true, nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() {
	close(s.stop)
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops keys whose newest request is older than the longest window any
// caller uses. An hour comfortably covers the configured request classes.
func (s *MemoryStore) sweep() {
	cutoff := s.now().Add(-time.Hour)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, times := range s.hits {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(s.hits, key)
		}
	}
}
