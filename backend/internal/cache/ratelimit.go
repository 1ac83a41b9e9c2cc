package cache

import (
	"context"
	"time"
)

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// CheckRateLimit：固定窗口限流。
// 原子 INCR 后若计数恰好为 1（窗口内第一个请求）就设置 TTL，
// 窗口边界锚定在上个窗口过期后的第一个请求。
// 已知竞态：INCR 和过期同时发生时，两个调用都可能观察到 count==1
// 并各自设置一次 TTL——无害但不原子。
func (c *Cache) CheckRateLimit(ctx context.Context, identifier string, limit int, window time.Duration) (RateLimitResult, error) {
	key := rateLimitKey(identifier)

	count, err := c.kv.Incr(ctx, key)
	if err != nil {
		return RateLimitResult{}, err
	}
	if count == 1 {
		if _, err := c.kv.Expire(ctx, key, window); err != nil {
			return RateLimitResult{}, err
		}
	}

	ttl, err := c.kv.TTL(ctx, key)
	if err != nil {
		return RateLimitResult{}, err
	}
	if ttl < 0 {
		ttl = window
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   count <= int64(limit),
		Remaining: remaining,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}
