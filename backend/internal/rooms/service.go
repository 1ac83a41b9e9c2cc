package rooms

import (
	"context"
	"log"
	"time"

	"github.com/JayStevency/livekit-msa-server/backend/internal/cache"
	"github.com/JayStevency/livekit-msa-server/backend/internal/rpc"
	"github.com/JayStevency/livekit-msa-server/backend/internal/session"
	"github.com/JayStevency/livekit-msa-server/backend/internal/shared"
	"github.com/JayStevency/livekit-msa-server/backend/internal/store"
)

// 编排层的缓存 TTL：读路径比通用默认值更短
const (
	RoomCacheTTL     = 60 * time.Second
	RoomListCacheTTL = 30 * time.Second
)

// Sender：RPC 客户端能力（rpc.Client 实现）
type Sender interface {
	Send(ctx context.Context, pattern string, payload any, timeout time.Duration) (rpc.Response, error)
}

// Service：房间操作的编排器。
// 读操作先查缓存；写操作先走 RPC，只有后端回复成功才按固定顺序
// 执行缓存/会话副作用。副作用失败不回滚远端变更——变更成功是权威事实，
// 缓存/会话漂移记一条告警日志，靠 TTL 收敛。
type Service struct {
	rpc      Sender
	cache    *cache.Cache
	sessions *session.Store
	records  *store.RoomStore // 可为 nil（本地开发不连 mysql）
}

func NewService(sender Sender, c *cache.Cache, sessions *session.Store, records *store.RoomStore) *Service {
	return &Service{rpc: sender, cache: c, sessions: sessions, records: records}
}

// CreateRoom：RPC 成功后 → 失效房间列表缓存 → 创建房间会话 → 落房间记录
func (s *Service) CreateRoom(ctx context.Context, req shared.CreateRoomRequest) (rpc.Response, error) {
	resp, err := s.rpc.Send(ctx, shared.RoomCreate, req, 0)
	if err != nil {
		return rpc.Response{}, err
	}
	if !resp.Success {
		return resp, nil
	}

	if err := s.cache.InvalidateRoomList(ctx); err != nil {
		log.Printf("rooms: invalidate room list after create %s: %v", req.Name, err)
	}

	var metadata map[string]string
	if req.Metadata != "" {
		metadata = map[string]string{"metadata": req.Metadata}
	}
	if _, err := s.sessions.CreateRoomSession(ctx, req.Name, metadata, 0); err != nil {
		log.Printf("rooms: create room session %s: %v", req.Name, err)
	}

	if s.records != nil {
		var room shared.Room
		if err := resp.Decode(&room); err == nil {
			if err := s.records.SaveCreated(ctx, room); err != nil {
				log.Printf("rooms: persist room record %s: %v", req.Name, err)
			}
		}
	}
	return resp, nil
}

// ListRooms：无过滤时先查列表缓存；带名字过滤总是绕过缓存。
// 只有无过滤的成功结果才回填缓存。
func (s *Service) ListRooms(ctx context.Context, names []string) (rpc.Response, error) {
	if len(names) == 0 {
		var rooms []shared.Room
		hit, err := s.cache.GetCachedRoomList(ctx, &rooms)
		if err != nil {
			return rpc.Response{}, err
		}
		if hit {
			return rpc.OK(rooms), nil
		}
	}

	resp, err := s.rpc.Send(ctx, shared.RoomListRooms, shared.ListRoomsRequest{Names: names}, 0)
	if err != nil {
		return rpc.Response{}, err
	}
	if resp.Success && len(names) == 0 {
		var rooms []shared.Room
		if err := resp.Decode(&rooms); err == nil {
			if err := s.cache.CacheRoomList(ctx, rooms, RoomListCacheTTL); err != nil {
				log.Printf("rooms: cache room list: %v", err)
			}
		}
	}
	return resp, nil
}

// GetRoom：缓存命中直接返回，不触发 RPC
func (s *Service) GetRoom(ctx context.Context, name string) (rpc.Response, error) {
	var room shared.Room
	hit, err := s.cache.GetCachedRoom(ctx, name, &room)
	if err != nil {
		return rpc.Response{}, err
	}
	if hit {
		return rpc.OK(room), nil
	}

	resp, err := s.rpc.Send(ctx, shared.RoomGetRoom, shared.GetRoomRequest{Name: name}, 0)
	if err != nil {
		return rpc.Response{}, err
	}
	if resp.Success {
		if err := resp.Decode(&room); err == nil {
			if err := s.cache.CacheRoom(ctx, name, room, RoomCacheTTL); err != nil {
				log.Printf("rooms: cache room %s: %v", name, err)
			}
		}
	}
	return resp, nil
}

// DeleteRoom：RPC 成功后按固定顺序清理：
// 单房间缓存 → 列表缓存 → 该房间全部 token → 房间会话 → 房间记录
func (s *Service) DeleteRoom(ctx context.Context, name string) (rpc.Response, error) {
	resp, err := s.rpc.Send(ctx, shared.RoomDeleteRoom, shared.DeleteRoomRequest{Name: name}, 0)
	if err != nil {
		return rpc.Response{}, err
	}
	if !resp.Success {
		return resp, nil
	}

	if err := s.cache.InvalidateRoom(ctx, name); err != nil {
		log.Printf("rooms: invalidate room %s: %v", name, err)
	}
	if err := s.cache.InvalidateRoomList(ctx); err != nil {
		log.Printf("rooms: invalidate room list after delete %s: %v", name, err)
	}
	if _, err := s.cache.InvalidateRoomTokens(ctx, name); err != nil {
		log.Printf("rooms: invalidate tokens for %s: %v", name, err)
	}
	if _, err := s.sessions.DeleteRoomSession(ctx, name); err != nil {
		log.Printf("rooms: delete room session %s: %v", name, err)
	}
	if s.records != nil {
		if err := s.records.MarkDeleted(ctx, name); err != nil {
			log.Printf("rooms: mark room record deleted %s: %v", name, err)
		}
	}
	return resp, nil
}

// JoinRoom：token 签发。RPC 成功后 → 创建/更新用户会话 → 登记房间成员 → 缓存 token
func (s *Service) JoinRoom(ctx context.Context, req shared.CreateTokenRequest) (rpc.Response, error) {
	resp, err := s.rpc.Send(ctx, shared.RoomCreateToken, req, 0)
	if err != nil {
		return rpc.Response{}, err
	}
	if !resp.Success {
		return resp, nil
	}

	if _, err := s.sessions.CreateUserSession(ctx, req.Identity, session.UserSession{
		Identity: req.Identity,
	}, 0); err != nil {
		log.Printf("rooms: create user session %s: %v", req.Identity, err)
	}
	if err := s.sessions.JoinRoom(ctx, req.Identity, req.RoomName); err != nil {
		log.Printf("rooms: record join %s -> %s: %v", req.Identity, req.RoomName, err)
	}

	var result shared.CreateTokenResult
	if err := resp.Decode(&result); err == nil && result.Token != "" {
		if err := s.cache.CacheToken(ctx, req.RoomName, req.Identity, result.Token, 0); err != nil {
			log.Printf("rooms: cache token %s/%s: %v", req.RoomName, req.Identity, err)
		}
	}
	return resp, nil
}

// LeaveRoom：移除参与者，成功后做本地会话登出。
// 会话层自带防迟到保护（用户已加入别的房间时不会被误清）。
func (s *Service) LeaveRoom(ctx context.Context, roomName, identity string) (rpc.Response, error) {
	resp, err := s.rpc.Send(ctx, shared.RoomRemoveParticipant, shared.RemoveParticipantRequest{
		RoomName: roomName,
		Identity: identity,
	}, 0)
	if err != nil {
		return rpc.Response{}, err
	}
	if !resp.Success {
		return resp, nil
	}

	if err := s.sessions.LeaveRoom(ctx, identity, roomName); err != nil {
		log.Printf("rooms: record leave %s <- %s: %v", identity, roomName, err)
	}
	if err := s.cache.InvalidateToken(ctx, roomName, identity); err != nil {
		log.Printf("rooms: invalidate token %s/%s: %v", roomName, identity, err)
	}
	return resp, nil
}

// 参与者操作：直通，不做缓存——参与者列表太易变，
// 而 Room Backend 没有推送失效的通道。

func (s *Service) ListParticipants(ctx context.Context, roomName string) (rpc.Response, error) {
	return s.rpc.Send(ctx, shared.RoomListParticipants, shared.ListParticipantsRequest{RoomName: roomName}, 0)
}

func (s *Service) RemoveParticipant(ctx context.Context, roomName, identity string) (rpc.Response, error) {
	return s.rpc.Send(ctx, shared.RoomRemoveParticipant, shared.RemoveParticipantRequest{
		RoomName: roomName,
		Identity: identity,
	}, 0)
}

func (s *Service) MuteParticipant(ctx context.Context, roomName, identity, trackSource string, muted bool) (rpc.Response, error) {
	return s.rpc.Send(ctx, shared.RoomMuteParticipant, shared.MuteParticipantRequest{
		RoomName:    roomName,
		Identity:    identity,
		TrackSource: trackSource,
		Muted:       muted,
	}, 0)
}
