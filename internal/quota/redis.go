package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript checks and increments a counter in one round trip.
// KEYS[1] counter key, ARGV[1] limit, ARGV[2] ttl seconds.
var consumeScript = redis.NewScript(`
	local current = tonumber(redis.call('GET', KEYS[1]) or '0')
	local limit = tonumber(ARGV[1])
	if current >= limit then
		return { 0, current }
	end
	current = redis.call('INCR', KEYS[1])
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
	return { 1, current }
`)

// RedisStore is the shared CounterStore backed by Redis.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps a Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) (int, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("quota counter %s: %w", key, err)
	}
	return n, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value int, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, strconv.Itoa(value), ttl).Err()
}

// Consume implements AtomicConsumer with a Lua script.
func (s *RedisStore) Consume(ctx context.Context, key string, limit int, ttl time.Duration) (int, bool, error) {
	secs := int64(ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	vals, err := consumeScript.Run(ctx, s.rdb, []string{key}, limit, secs).Int64Slice()
	if err != nil {
		return 0, false, err
	}
	if len(vals) != 2 {
		return 0, false, fmt.Errorf("quota consume %s: unexpected script result %v", key, vals)
	}
	return int(vals[1]), vals[0] == 1, nil
}
