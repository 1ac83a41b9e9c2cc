package session

import (
	"context"
	"strings"
	"time"

	"github.com/JayStevency/livekit-msa-server/backend/internal/kvstore"
)

// UserSession：一个已连接用户的本地会话。
// RoomName 非空 ⇔ 该用户当前在那个房间的参与者列表里（尽力而为）。
type UserSession struct {
	UserID       string            `json:"userId"`
	Identity     string            `json:"identity"`
	RoomName     string            `json:"roomName,omitempty"`
	ConnectedAt  int64             `json:"connectedAt"`  // epoch ms
	LastActiveAt int64             `json:"lastActiveAt"` // epoch ms
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// RoomSession：一个活跃房间的本地会话。participants 语义上是集合
//（存储为列表，成员唯一，顺序无意义）。
type RoomSession struct {
	RoomName     string            `json:"roomName"`
	CreatedAt    int64             `json:"createdAt"` // epoch ms
	Participants []string          `json:"participants"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Store：临时会话/成员关系存储。不缓存 Room Backend 的响应。
type Store struct {
	kv kvstore.Store
}

func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// ==================== 用户会话 ====================

// CreateUserSession：upsert。identity 缺省取 userId；
// connectedAt 调用方给了就保留，否则取当前时间；lastActiveAt 每次写都刷新。
func (s *Store) CreateUserSession(ctx context.Context, userID string, data UserSession, ttl time.Duration) (*UserSession, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	sess := UserSession{
		UserID:       userID,
		Identity:     data.Identity,
		RoomName:     data.RoomName,
		ConnectedAt:  data.ConnectedAt,
		LastActiveAt: nowMillis(),
		Metadata:     data.Metadata,
	}
	if sess.Identity == "" {
		sess.Identity = userID
	}
	if sess.ConnectedAt == 0 {
		sess.ConnectedAt = nowMillis()
	}
	if err := s.kv.SetJSON(ctx, userSessionKey(userID), sess, ttl); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) GetUserSession(ctx context.Context, userID string) (*UserSession, error) {
	var sess UserSession
	ok, err := s.kv.GetJSON(ctx, userSessionKey(userID), &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

// RefreshUserSession：刷新活跃时间并重置 TTL。会话不存在返回 false——
// refresh 从不创建会话。
func (s *Store) RefreshUserSession(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	sess, err := s.GetUserSession(ctx, userID)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}
	sess.LastActiveAt = nowMillis()
	if err := s.kv.SetJSON(ctx, userSessionKey(userID), sess, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteUserSession(ctx context.Context, userID string) (bool, error) {
	n, err := s.kv.Del(ctx, userSessionKey(userID))
	return n > 0, err
}

// JoinRoom：用户会话存在时写入 roomName 并重置 TTL；
// 房间侧的成员登记无条件执行（用户会话不存在也要记成员）。
func (s *Store) JoinRoom(ctx context.Context, userID, roomName string) error {
	sess, err := s.GetUserSession(ctx, userID)
	if err != nil {
		return err
	}
	if sess != nil {
		sess.RoomName = roomName
		sess.LastActiveAt = nowMillis()
		if err := s.kv.SetJSON(ctx, userSessionKey(userID), sess, DefaultTTL); err != nil {
			return err
		}
	}
	return s.AddParticipantToRoom(ctx, roomName, userID)
}

// LeaveRoom：只有会话里的 roomName 等于本次离开的房间才清空——
// 防止迟到的 leave 把用户之后加入的新房间覆盖掉。
// 房间侧的成员移除无条件执行。
func (s *Store) LeaveRoom(ctx context.Context, userID, roomName string) error {
	sess, err := s.GetUserSession(ctx, userID)
	if err != nil {
		return err
	}
	if sess != nil && sess.RoomName == roomName {
		sess.RoomName = ""
		sess.LastActiveAt = nowMillis()
		if err := s.kv.SetJSON(ctx, userSessionKey(userID), sess, DefaultTTL); err != nil {
			return err
		}
	}
	return s.RemoveParticipantFromRoom(ctx, roomName, userID)
}

// ==================== 房间会话 ====================

// CreateRoomSession：总是新建（空参与者集合），覆盖旧会话
func (s *Store) CreateRoomSession(ctx context.Context, roomName string, metadata map[string]string, ttl time.Duration) (*RoomSession, error) {
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	sess := RoomSession{
		RoomName:     roomName,
		CreatedAt:    nowMillis(),
		Participants: []string{},
		Metadata:     metadata,
	}
	if err := s.kv.SetJSON(ctx, roomSessionKey(roomName), sess, ttl); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) GetRoomSession(ctx context.Context, roomName string) (*RoomSession, error) {
	var sess RoomSession
	ok, err := s.kv.GetJSON(ctx, roomSessionKey(roomName), &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) DeleteRoomSession(ctx context.Context, roomName string) (bool, error) {
	n, err := s.kv.Del(ctx, roomSessionKey(roomName))
	return n > 0, err
}

// AddParticipantToRoom：房间会话不存在就先懒创建。
// 已是成员时不执行任何写入（避免无谓的 TTL 抖动）。
func (s *Store) AddParticipantToRoom(ctx context.Context, roomName, userID string) error {
	sess, err := s.GetRoomSession(ctx, roomName)
	if err != nil {
		return err
	}
	if sess == nil {
		sess, err = s.CreateRoomSession(ctx, roomName, nil, 0)
		if err != nil {
			return err
		}
	}
	for _, p := range sess.Participants {
		if p == userID {
			return nil
		}
	}
	sess.Participants = append(sess.Participants, userID)
	return s.kv.SetJSON(ctx, roomSessionKey(roomName), sess, DefaultRoomTTL)
}

// RemoveParticipantFromRoom：房间会话不存在就是 no-op（不会创建）
func (s *Store) RemoveParticipantFromRoom(ctx context.Context, roomName, userID string) error {
	sess, err := s.GetRoomSession(ctx, roomName)
	if err != nil || sess == nil {
		return err
	}
	filtered := sess.Participants[:0]
	for _, p := range sess.Participants {
		if p != userID {
			filtered = append(filtered, p)
		}
	}
	sess.Participants = filtered
	return s.kv.SetJSON(ctx, roomSessionKey(roomName), sess, DefaultRoomTTL)
}

// GetRoomParticipants：没有会话时返回空列表
func (s *Store) GetRoomParticipants(ctx context.Context, roomName string) ([]string, error) {
	sess, err := s.GetRoomSession(ctx, roomName)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return []string{}, nil
	}
	return sess.Participants, nil
}

// GetActiveRooms：扫描所有房间会话键，剥掉前缀得到房间名
func (s *Store) GetActiveRooms(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, RoomSessionPrefix+"*")
	if err != nil {
		return nil, err
	}
	rooms := make([]string, 0, len(keys))
	for _, key := range keys {
		rooms = append(rooms, strings.TrimPrefix(key, RoomSessionPrefix))
	}
	return rooms, nil
}
