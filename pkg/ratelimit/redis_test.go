package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisLimiter_Window(t *testing.T) {
	client, mr := newTestRedis(t)
	rl := NewRedisLimiter(client, "test:send", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := rl.Allow(ctx, "user1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}

	ok, retry, err := rl.Allow(ctx, "user1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _, err = rl.Allow(ctx, "user2")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	assert.True(t, mr.Exists("test:send:user1"))
	assert.Equal(t, time.Minute, mr.TTL("test:send:user1"))

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = rl.Allow(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, ok, "window expired")
}

func TestRedisLimiter_SharedBudget(t *testing.T) {
	client, _ := newTestRedis(t)
	first := NewRedisLimiter(client, "test:send", 3, time.Minute)
	second := NewRedisLimiter(client, "test:send", 3, time.Minute)
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 3; i++ {
		for _, rl := range []*RedisLimiter{first, second} {
			ok, _, err := rl.Allow(ctx, "user1")
			require.NoError(t, err)
			if ok {
				allowed++
			}
		}
	}
	assert.Equal(t, 3, allowed)
}

func TestRedisLimiter_Reset(t *testing.T) {
	client, mr := newTestRedis(t)
	rl := NewRedisLimiter(client, "test:send", 1, time.Minute)
	ctx := context.Background()

	ok, _, err := rl.Allow(ctx, "user1")
	require.NoError(t, err)
	require.True(t, ok)
	ok, _, err = rl.Allow(ctx, "user1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, rl.Reset(ctx, "user1"))
	assert.False(t, mr.Exists("test:send:user1"))

	ok, _, err = rl.Allow(ctx, "user1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_CounterWithoutExpiry(t *testing.T) {
	client, mr := newTestRedis(t)
	rl := NewRedisLimiter(client, "test:send", 5, time.Minute)

	require.NoError(t, mr.Set("test:send:user1", "7"))

	ok, _, err := rl.Allow(context.Background(), "user1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("test:send:user1"), "a stray counter gets an expiry")
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	client, mr := newTestRedis(t)
	rl := NewRedisLimiter(client, "test:send", 1, time.Minute)
	mr.Close()

	ctx := context.Background()
	_, _, err := rl.Allow(ctx, "user1")
	assert.ErrorIs(t, err, ErrLimiterUnavailable)
	assert.ErrorIs(t, rl.Reset(ctx, "user1"), ErrLimiterUnavailable)
}
