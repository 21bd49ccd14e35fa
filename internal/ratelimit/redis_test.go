package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milehighpros/lead-intake/pkg/logging"
)

func TestRedisLimiter_AllowsFiveThenRejects(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, 5, time.Minute, logging.New("error"))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.Truef(t, l.Allow(ctx, "203.0.113.7"), "request %d should be allowed", i+1)
	}
	assert.False(t, l.Allow(ctx, "203.0.113.7"))
	assert.True(t, l.Allow(ctx, "203.0.113.8"))

	ttl := mr.TTL(defaultKeyPrefix + "203.0.113.7")
	assert.True(t, ttl > 0 && ttl <= time.Minute, "expected window ttl, got %s", ttl)
}

func TestRedisLimiter_WindowResets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, 2, time.Minute, logging.New("error"))
	ctx := context.Background()

	require.True(t, l.Allow(ctx, "k"))
	require.True(t, l.Allow(ctx, "k"))
	require.False(t, l.Allow(ctx, "k"))

	mr.FastForward(time.Minute)
	assert.True(t, l.Allow(ctx, "k"))
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, 1, time.Minute, logging.New("error"))
	mr.Close()

	assert.True(t, l.Allow(context.Background(), "k"))
	assert.True(t, l.Allow(context.Background(), "k"))
}

func TestRedisLimiter_RetryAfterFollowsKeyTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, 1, time.Minute, logging.New("error"))
	ctx := context.Background()

	assert.Zero(t, l.RetryAfter(ctx, "203.0.113.7"))

	require.True(t, l.Allow(ctx, "203.0.113.7"))
	mr.FastForward(40 * time.Second)
	require.False(t, l.Allow(ctx, "203.0.113.7"))
	assert.Equal(t, 20*time.Second, l.RetryAfter(ctx, "203.0.113.7"))
}

func TestRedisLimiter_RetryAfterZeroWhenUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, 1, time.Minute, logging.New("error"))
	mr.Close()

	assert.Zero(t, l.RetryAfter(context.Background(), "k"))
}
