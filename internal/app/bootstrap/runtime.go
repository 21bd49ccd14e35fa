package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/milehighpros/lead-intake/internal/config"
	"github.com/milehighpros/lead-intake/internal/leads"
	"github.com/milehighpros/lead-intake/internal/ratelimit"
	"github.com/milehighpros/lead-intake/pkg/logging"
)

const redisPingTimeout = 3 * time.Second

// BuildRedisClient connects to REDIS_ADDR for the shared rate limiter. It
// returns nil when no address is configured, or when verify is set and the
// server does not answer a ping.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil {
		return nil
	}
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	opts := &redis.Options{Addr: addr, Password: cfg.RedisPassword, DialTimeout: redisPingTimeout}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}

	if ctx == nil {
		ctx = context.Background()
	}
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		if logger == nil {
			logger = logging.Default()
		}
		logger.Warn("redis ping failed, shared limiter disabled", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildLimiter picks the submission limiter. The Redis backend shares
// counters across instances; without a reachable Redis it falls back to the
// in-process limiter.
func BuildLimiter(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) leads.Limiter {
	if logger == nil {
		logger = logging.Default()
	}
	limit, window := ratelimit.DefaultLimit, ratelimit.DefaultWindow
	if cfg != nil {
		limit, window = cfg.RateLimitMax, cfg.RateLimitWindow
	}

	if cfg != nil && cfg.RateLimitBackend == "redis" {
		if redisClient != nil {
			logger.Info("rate limiter using redis", "limit", limit, "window", window.String())
			return ratelimit.NewRedisLimiter(redisClient, limit, window, logger)
		}
		logger.Warn("RATE_LIMIT_BACKEND=redis but redis unavailable; using in-memory limiter")
	}
	logger.Info("rate limiter using memory", "limit", limit, "window", window.String())
	return ratelimit.NewMemoryLimiter(limit, window)
}
