package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb)
}

func TestRedisStoreAllow(t *testing.T) {
	ctx := context.Background()
	s := newRedisTestStore(t)

	for i := 0; i < 5; i++ {
		ok, err := s.Allow(ctx, "deploy:u1", 5, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should pass", i)
	}

	ok, err := s.Allow(ctx, "deploy:u1", 5, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "sixth request must be rejected")

	// A different key is unaffected.
	ok, err = s.Allow(ctx, "deploy:u2", 5, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

// Concurrent requests racing at the limit boundary must not admit more than
// the configured budget.
func TestRedisStoreConcurrentBoundary(t *testing.T) {
	ctx := context.Background()
	s := newRedisTestStore(t)

	const limit = 10
	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < limit*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Allow(ctx, "deploy:u1", limit, time.Hour)
			if !assert.NoError(t, err) {
				return
			}
			if ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted.Load())
}
