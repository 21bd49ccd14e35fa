// Package ratelimit bounds how many lead submissions a client address can
// make per fixed window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of submissions allowed per window.
	DefaultLimit = 5
	// DefaultWindow is the fixed window length.
	DefaultWindow = time.Minute
)

// Option configures a MemoryLimiter.
type Option func(*MemoryLimiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *MemoryLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

type counter struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a process-local fixed-window limiter. State is lost on
// restart and is not shared between instances.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewMemoryLimiter allows limit requests per key per window. Non-positive
// values fall back to DefaultLimit and DefaultWindow.
func NewMemoryLimiter(limit int, window time.Duration, opts ...Option) *MemoryLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &MemoryLimiter{
		counters: make(map[string]*counter),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for key and reports whether it is within the
// limit. The first request after a window expires starts a new window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok || !now.Before(c.resetAt) {
		l.counters[key] = &counter{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	c.count++
	return c.count <= l.limit
}

// RetryAfter reports how long until key's current window resets, or zero
// when key has no open window.
func (l *MemoryLimiter) RetryAfter(_ context.Context, key string) time.Duration {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok || !now.Before(c.resetAt) {
		return 0
	}
	return c.resetAt.Sub(now)
}

// Window returns the configured window length.
func (l *MemoryLimiter) Window() time.Duration {
	return l.window
}

// Sweep deletes counters whose window has expired and returns how many were
// removed.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, c := range l.counters {
		if !now.Before(c.resetAt) {
			delete(l.counters, key)
			removed++
		}
	}
	return removed
}

// Run sweeps once per window until ctx is cancelled.
func (l *MemoryLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Len reports how many addresses are currently tracked.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}
