// Package ratelimit implements fixed-window request limits per client IP and
// per user, counted in Redis so every replica shares the same window.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter increments the counter for key in the current window and returns
// the new value.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter keys counters by window start; each key expires with its window.
type RedisCounter struct {
	client redis.UniversalClient
	prefix string
	clock  func() time.Time
}

func NewRedisCounter(client redis.UniversalClient, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix, clock: time.Now}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	windowStart := r.clock().Truncate(window).Unix()
	redisKey := fmt.Sprintf("%s:%s:%d", r.prefix, key, windowStart)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	return incr.Val(), nil
}

// MemoryCounter is a single-process Counter for development and tests.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]memoryWindow
	clock   func() time.Time
}

type memoryWindow struct {
	start time.Time
	count int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]memoryWindow), clock: time.Now}
}

func (m *MemoryCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	start := m.clock().Truncate(window)

	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.windows[key]
	if !w.start.Equal(start) {
		w = memoryWindow{start: start}
	}
	w.count++
	m.windows[key] = w

	if len(m.windows) > 10000 {
		for k, old := range m.windows {
			if old.start.Before(start) {
				delete(m.windows, k)
			}
		}
	}
	return w.count, nil
}

// Limits are the per-window budgets. A zero limit disables that tier.
type Limits struct {
	Window    time.Duration
	IPLimit   int64
	UserLimit int64
}

// CheckResult describes the tightest tier for the request.
type CheckResult struct {
	Allowed    bool
	LimitedBy  string
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

type TieredLimiter struct {
	counter Counter
	limits  Limits
	clock   func() time.Time
}

func NewTieredLimiter(counter Counter, limits Limits) *TieredLimiter {
	return &TieredLimiter{counter: counter, limits: limits, clock: time.Now}
}

// Check counts the request against the IP tier and, when userID is set, the
// user tier. The first exhausted tier wins.
func (t *TieredLimiter) Check(ctx context.Context, ip, userID string) (*CheckResult, error) {
	tiers := []struct {
		name  string
		key   string
		limit int64
	}{
		{"ip", "ip:" + ip, t.limits.IPLimit},
		{"user", "user:" + userID, t.limits.UserLimit},
	}

	result := &CheckResult{Allowed: true, Remaining: -1}
	for _, tier := range tiers {
		if tier.limit <= 0 || (tier.name == "user" && userID == "") {
			continue
		}
		count, err := t.counter.Incr(ctx, tier.key, t.limits.Window)
		if err != nil {
			return nil, err
		}
		remaining := tier.limit - count
		if remaining < 0 {
			remaining = 0
		}
		if count > tier.limit {
			return &CheckResult{
				Allowed:    false,
				LimitedBy:  tier.name,
				Limit:      tier.limit,
				Remaining:  0,
				RetryAfter: t.retryAfter(),
			}, nil
		}
		if result.Remaining < 0 || remaining < result.Remaining {
			result.LimitedBy = tier.name
			result.Limit = tier.limit
			result.Remaining = remaining
		}
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	return result, nil
}

func (t *TieredLimiter) retryAfter() time.Duration {
	now := t.clock()
	return now.Truncate(t.limits.Window).Add(t.limits.Window).Sub(now)
}
