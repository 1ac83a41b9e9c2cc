package kvstore

import (
	"context"
	"time"
)

// Store：统一的 KV 存储能力接口（string / JSON / hash / set / scan / pubsub / 计数器）。
// cache 和 session 都通过这个接口访问同一个存储，各自管理自己的键名空间。
// 约定：未命中（key 不存在）返回 ok=false，不是 error。
type Store interface {
	// string 基本操作
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)

	// JSON 操作（值以 JSON 序列化存储）
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error

	// hash 操作
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSet(ctx context.Context, key, field, value string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)

	// set 操作
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)

	// 模式扫描（glob，如 "cache:token:r1:*"）
	Keys(ctx context.Context, pattern string) ([]string, error)

	// pubsub
	Publish(ctx context.Context, channel, message string) error

	// 原子增减（限流等依赖 Incr 的原子性）
	Incr(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, n int64) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)

	Close() error
}
