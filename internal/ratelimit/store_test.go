package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore builds a store with a controllable clock and no background
// sweep.
func newTestStore(start time.Time) (*MemoryStore, *time.Time) {
	now := start
	s := &MemoryStore{
		hits: make(map[string][]time.Time),
		now:  func() time.Time { return now },
		stop: make(chan struct{}),
	}
	return s, &now
}

func TestMemoryStoreAllow(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Unix(1_700_000_000, 0))

	for i := 0; i < 5; i++ {
		ok, err := s.Allow(ctx, "deploy:u1", 5, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i)
	}

	ok, err := s.Allow(ctx, "deploy:u1", 5, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "sixth request must be rejected")
}

func TestMemoryStoreWindowSlides(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(time.Unix(1_700_000_000, 0))

	for i := 0; i < 3; i++ {
		ok, _ := s.Allow(ctx, "k", 3, time.Hour)
		require.True(t, ok)
	}
	ok, _ := s.Allow(ctx, "k", 3, time.Hour)
	require.False(t, ok)

	// Half the window later the budget is still used up.
	*now = now.Add(30 * time.Minute)
	ok, _ = s.Allow(ctx, "k", 3, time.Hour)
	assert.False(t, ok)

	// Once the original requests age out, capacity returns.
	*now = now.Add(31 * time.Minute)
	ok, _ = s.Allow(ctx, "k", 3, time.Hour)
	assert.True(t, ok)
}

func TestMemoryStoreDeniedNotRecorded(t *testing.T) {
	ctx := context.Background()
	s, now := newTestStore(time.Unix(1_700_000_000, 0))

	ok, _ := s.Allow(ctx, "k", 1, time.Hour)
	require.True(t, ok)

	// Hammering while over the limit must not extend the lockout.
	for i := 0; i < 10; i++ {
		*now = now.Add(time.Minute)
		ok, _ = s.Allow(ctx, "k", 1, time.Hour)
		require.False(t, ok)
	}

	*now = now.Add(51 * time.Minute)
	ok, _ = s.Allow(ctx, "k", 1, time.Hour)
	assert.True(t, ok, "original request is older than the window by now")
}

func TestMemoryStoreKeysIndependent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(time.Unix(1_700_000_000, 0))

	ok, _ := s.Allow(ctx, "deploy:u1", 1, time.Hour)
	require.True(t, ok)
	ok, _ = s.Allow(ctx, "deploy:u1", 1, time.Hour)
	require.False(t, ok)

	// Different user, same class.
	ok, _ = s.Allow(ctx, "deploy:u2", 1, time.Hour)
	assert.True(t, ok)

	// Same user, different class.
	ok, _ = s.Allow(ctx, "delete:u1", 1, time.Hour)
	assert.True(t, ok)
}

func TestMemoryStoreSweep(t *testing.T) {
	s, now := newTestStore(time.Unix(1_700_000_000, 0))
	ctx := context.Background()

	_, _ = s.Allow(ctx, "stale", 5, time.Hour)
	*now = now.Add(2 * time.Hour)
	_, _ = s.Allow(ctx, "fresh", 5, time.Hour)

	s.sweep()

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NotContains(t, s.hits, "stale")
	assert.Contains(t, s.hits, "fresh")
}
