package cache

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitFixedWindow(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()

	limit := 10
	window := time.Minute

	// 第 1..10 次放行，remaining 逐次递减
	for i := 1; i <= limit; i++ {
		res, err := c.CheckRateLimit(ctx, "ip:1.2.3.4", limit, window)
		if err != nil {
			t.Fatalf("call %d error: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("call %d must be allowed", i)
		}
		if res.Remaining != limit-i {
			t.Fatalf("call %d remaining=%d want %d", i, res.Remaining, limit-i)
		}
	}

	// 第 11 次拒绝，remaining 夹在 0
	res, err := c.CheckRateLimit(ctx, "ip:1.2.3.4", limit, window)
	if err != nil {
		t.Fatalf("call 11 error: %v", err)
	}
	if res.Allowed {
		t.Fatalf("call 11 must be denied")
	}
	if res.Remaining != 0 {
		t.Fatalf("remaining=%d want 0", res.Remaining)
	}
	if res.ResetAt.Before(time.Now()) {
		t.Fatalf("ResetAt must be in the future: %v", res.ResetAt)
	}
}

func TestRateLimitIsolatedPerIdentifier(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()

	for i := 0; i < 3; i++ {
		_, _ = c.CheckRateLimit(ctx, "ip:a", 3, time.Minute)
	}
	res, _ := c.CheckRateLimit(ctx, "ip:a", 3, time.Minute)
	if res.Allowed {
		t.Fatalf("ip:a must be over limit")
	}

	// 另一个 identifier 不受影响
	res, _ = c.CheckRateLimit(ctx, "ip:b", 3, time.Minute)
	if !res.Allowed || res.Remaining != 2 {
		t.Fatalf("ip:b allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()

	window := 50 * time.Millisecond
	for i := 0; i < 2; i++ {
		_, _ = c.CheckRateLimit(ctx, "ip:x", 2, window)
	}
	res, _ := c.CheckRateLimit(ctx, "ip:x", 2, window)
	if res.Allowed {
		t.Fatalf("expected denial within window")
	}

	// 窗口过期后计数重新开始
	time.Sleep(80 * time.Millisecond)
	res, err := c.CheckRateLimit(ctx, "ip:x", 2, window)
	if err != nil {
		t.Fatalf("post-window call error: %v", err)
	}
	if !res.Allowed || res.Remaining != 1 {
		t.Fatalf("post-window allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}
