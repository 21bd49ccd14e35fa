package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/milehighpros/lead-intake/pkg/logging"
)

const defaultKeyPrefix = "ratelimit:leads:"

// incrWindow increments the counter and starts its TTL on the first hit so
// both happen atomically.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

var windowTTL = redis.NewScript(`return redis.call("PTTL", KEYS[1])`)

// RedisLimiter shares fixed-window counters between instances through
// Redis. Redis failures allow the request.
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
	logger *logging.Logger
}

// NewRedisLimiter allows limit requests per key per window.
func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration, logger *logging.Logger) *RedisLimiter {
	if client == nil {
		panic("ratelimit: redis client required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: defaultKeyPrefix,
		logger: logger,
	}
}

// Allow records a request for key and reports whether it is within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	count, err := incrWindow.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request", "error", err, "key", key)
		return true
	}
	return count <= int64(l.limit)
}

// RetryAfter reports the remaining TTL of key's counter. Errors and keys
// without a TTL report zero.
func (l *RedisLimiter) RetryAfter(ctx context.Context, key string) time.Duration {
	ms, err := windowTTL.Run(ctx, l.client, []string{l.prefix + key}).Int64()
	if err != nil {
		l.logger.Warn("rate limiter ttl lookup failed", "error", err, "key", key)
		return 0
	}
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// Window returns the configured window length.
func (l *RedisLimiter) Window() time.Duration {
	return l.window
}
