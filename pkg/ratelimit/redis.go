package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimiterUnavailable wraps failures talking to the shared counter store.
var ErrLimiterUnavailable = errors.New("rate limiter unavailable")

// hitLua counts one request in the current window.
// KEYS[1] = counter key
// ARGV[1] = window in milliseconds
//
// Returns {count, remaining ttl in milliseconds}.
var hitLua = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter is a fixed window counter shared by every process using the same
// Redis. A key allows limit requests per window, counted from the first one.
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter stores counters under prefix:<key>
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		redis:  client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (l *RedisLimiter) key(key string) string {
	return l.prefix + ":" + key
}

// Allow counts the request and reports whether it fits in the window. A denied
// request returns the time left until the window closes.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := hitLua.Run(ctx, l.redis, []string{l.key(key)}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("%w: unexpected script reply %v", ErrLimiterUnavailable, res)
	}
	if int(res[0]) <= l.limit {
		return true, 0, nil
	}
	return false, time.Duration(res[1]) * time.Millisecond, nil
}

// Reset drops the counter for key
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}
