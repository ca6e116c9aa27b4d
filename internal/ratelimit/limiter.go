// Package ratelimit throttles verification attempts per tenant. Limits are
// fixed one-minute windows; the Redis limiter shares counters across
// instances, the memory limiter covers single-instance and test setups.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultWindow is the counting window for all limiters.
const DefaultWindow = time.Minute

// Result describes the limiter's verdict for one request.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the seconds until the window resets, at least 1.
func (r Result) RetryAfter() int {
	secs := int(time.Until(r.ResetAt).Seconds())
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter counts requests in Redis so the limit holds across
// instances.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: DefaultWindow}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now()
	windowStart := now.Truncate(l.window)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, windowStart.Unix())

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	// Expire a window late so a clock-skewed instance never loses the key
	// mid-window.
	pipe.Expire(ctx, redisKey, 2*l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit check: %w", err)
	}

	used := int(count.Val())
	remaining := l.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   used <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   windowStart.Add(l.window),
	}, nil
}

// MemoryLimiter is the in-process fallback when Redis is not configured.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]*windowCount
}

type windowCount struct {
	start time.Time
	used  int
}

func NewMemoryLimiter(limit int) *MemoryLimiter {
	return &MemoryLimiter{
		limit:  limit,
		window: DefaultWindow,
		counts: make(map[string]*windowCount),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now()
	windowStart := now.Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	wc, ok := l.counts[key]
	if !ok || !wc.start.Equal(windowStart) {
		wc = &windowCount{start: windowStart}
		l.counts[key] = wc
	}
	wc.used++

	remaining := l.limit - wc.used
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   wc.used <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   windowStart.Add(l.window),
	}, nil
}
