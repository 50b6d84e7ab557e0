package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// allowScript trims, counts, and conditionally records in one atomic step so
// concurrent requests at the limit boundary cannot both slip in. Returns 1
// when the request is admitted.
var allowScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
if redis.call("ZCARD", KEYS[1]) >= tonumber(ARGV[2]) then
	return 0
end
redis.call("ZADD", KEYS[1], ARGV[3], ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return 1
`)

// RedisStore implements the sliding window on a Redis sorted set per key,
// scored by request time. It is the store to use when the API runs more than
// one replica.
type RedisStore struct {
	rdb redis.UniversalClient
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	cutoff := now.Add(-window).UnixNano()

	// Member must be unique per request; two requests can share a nanosecond.
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	admitted, err := allowScript.Run(ctx, s.rdb, []string{"ratelimit:" + key},
		cutoff,
		limit,
		now.UnixNano(),
		member,
		window.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return admitted == 1, nil
}
