package session

import "time"

// 键语义（和 cache: 名字空间完全分开——这里记录的是本地会话事实，
// 不是 Room Backend 响应的缓存）：
// - session:user:{userId}   用户会话（JSON，TTL 1h，join/leave/refresh 时重置）
// - session:room:{roomName} 房间会话（JSON，TTL 24h）
const (
	UserSessionPrefix = "session:user:"
	RoomSessionPrefix = "session:room:"
)

const (
	DefaultTTL     = time.Hour
	DefaultRoomTTL = 24 * time.Hour
)

func userSessionKey(userID string) string { return UserSessionPrefix + userID }

func roomSessionKey(roomName string) string { return RoomSessionPrefix + roomName }
