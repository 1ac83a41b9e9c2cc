package cache

import "time"

// 键语义：
// - cache:room:{name}        单个房间快照（JSON，TTL 由调用方定，默认 300s）
// - cache:room:list          房间列表（JSON）
// - cache:token:{room}:{id}  加入令牌（string，短 TTL）
// - ratelimit:{identifier}   固定窗口计数器（INCR + 首次设置 TTL）
const (
	CachePrefix = "cache:"
	RoomPrefix  = "cache:room:"
	TokenPrefix = "cache:token:"

	roomListKey     = "cache:room:list"
	rateLimitPrefix = "ratelimit:"
)

const (
	DefaultTTL      = 300 * time.Second
	DefaultTokenTTL = 60 * time.Second
)

func roomKey(roomName string) string { return RoomPrefix + roomName }

func tokenKey(roomName, identity string) string { return TokenPrefix + roomName + ":" + identity }

func rateLimitKey(identifier string) string { return rateLimitPrefix + identifier }
