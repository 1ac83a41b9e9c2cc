package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/JayStevency/livekit-msa-server/backend/internal/cache"
	"github.com/JayStevency/livekit-msa-server/backend/internal/kvstore"
	"github.com/JayStevency/livekit-msa-server/backend/internal/rpc"
	"github.com/JayStevency/livekit-msa-server/backend/internal/session"
	"github.com/JayStevency/livekit-msa-server/backend/internal/shared"
)

// fakeSender：按 pattern 预置应答，并记录每次调用
type fakeSender struct {
	responses map[string]rpc.Response
	err       error
	calls     []string
}

func (f *fakeSender) Send(ctx context.Context, pattern string, payload any, timeout time.Duration) (rpc.Response, error) {
	f.calls = append(f.calls, pattern)
	if f.err != nil {
		return rpc.Response{}, f.err
	}
	resp, ok := f.responses[pattern]
	if !ok {
		return rpc.Fail("unexpected pattern: " + pattern), nil
	}
	return resp, nil
}

type testEnv struct {
	svc      *Service
	sender   *fakeSender
	kv       kvstore.Store
	cache    *cache.Cache
	sessions *session.Store
}

func newTestEnv() *testEnv {
	kv := kvstore.NewMemoryStore()
	c := cache.New(kv)
	sessions := session.NewStore(kv)
	sender := &fakeSender{responses: make(map[string]rpc.Response)}
	return &testEnv{
		svc:      NewService(sender, c, sessions, nil),
		sender:   sender,
		kv:       kv,
		cache:    c,
		sessions: sessions,
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestCreateRoomSuccessSideEffects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	// 预置一份旧的列表缓存，验证创建后会被失效
	_ = env.cache.CacheRoomList(ctx, []shared.Room{{Name: "old"}}, time.Minute)

	env.sender.responses[shared.RoomCreate] = rpc.OK(shared.Room{SID: "RM_1", Name: "r1"})
	resp, err := env.svc.CreateRoom(ctx, shared.CreateRoomRequest{Name: "r1", Metadata: "demo"})
	if err != nil {
		t.Fatalf("CreateRoom error: %v", err)
	}
	if !resp.Success {
		t.Fatalf("unexpected failure: %+v", resp)
	}

	var rooms []shared.Room
	if hit, _ := env.cache.GetCachedRoomList(ctx, &rooms); hit {
		t.Fatalf("room list cache must be invalidated")
	}
	sess, _ := env.sessions.GetRoomSession(ctx, "r1")
	if sess == nil {
		t.Fatalf("room session must be created")
	}
	if sess.Metadata["metadata"] != "demo" {
		t.Fatalf("metadata not propagated: %+v", sess)
	}
}

func TestCreateRoomBackendFailureNoSideEffects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_ = env.cache.CacheRoomList(ctx, []shared.Room{{Name: "old"}}, time.Minute)
	env.sender.responses[shared.RoomCreate] = rpc.Fail("room limit reached")

	resp, err := env.svc.CreateRoom(ctx, shared.CreateRoomRequest{Name: "r1"})
	if err != nil {
		t.Fatalf("backend failure is not a transport error: %v", err)
	}
	if resp.Success {
		t.Fatalf("expected failure envelope")
	}

	// 失败时一个副作用都不能发生
	var rooms []shared.Room
	if hit, _ := env.cache.GetCachedRoomList(ctx, &rooms); !hit {
		t.Fatalf("room list cache must be untouched on failure")
	}
	if sess, _ := env.sessions.GetRoomSession(ctx, "r1"); sess != nil {
		t.Fatalf("no room session on failure")
	}
}

func TestCreateRoomTimeoutAbortsSideEffects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_ = env.cache.CacheRoomList(ctx, []shared.Room{{Name: "old"}}, time.Minute)
	env.sender.err = rpc.ErrTimeout

	_, err := env.svc.CreateRoom(ctx, shared.CreateRoomRequest{Name: "r1"})
	if !errors.Is(err, rpc.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	var rooms []shared.Room
	if hit, _ := env.cache.GetCachedRoomList(ctx, &rooms); !hit {
		t.Fatalf("timeout must leave caches untouched")
	}
}

func TestListRoomsCachesUnfilteredResult(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	env.sender.responses[shared.RoomListRooms] = rpc.Response{
		Success: true,
		Data:    mustJSON(t, []shared.Room{{Name: "r1"}, {Name: "r2"}}),
	}

	resp, err := env.svc.ListRooms(ctx, nil)
	if err != nil || !resp.Success {
		t.Fatalf("ListRooms resp=%+v err=%v", resp, err)
	}
	if len(env.sender.calls) != 1 {
		t.Fatalf("expected 1 RPC, got %d", len(env.sender.calls))
	}

	// 第二次命中缓存，不再发 RPC
	resp, err = env.svc.ListRooms(ctx, nil)
	if err != nil || !resp.Success {
		t.Fatalf("cached ListRooms resp=%+v err=%v", resp, err)
	}
	if len(env.sender.calls) != 1 {
		t.Fatalf("cache hit must not issue an RPC, calls=%v", env.sender.calls)
	}
	var rooms []shared.Room
	if err := resp.Decode(&rooms); err != nil || len(rooms) != 2 {
		t.Fatalf("decode cached list: %v rooms=%v", err, rooms)
	}
}

func TestListRoomsFilteredBypassesCache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_ = env.cache.CacheRoomList(ctx, []shared.Room{{Name: "cached"}}, time.Minute)
	env.sender.responses[shared.RoomListRooms] = rpc.Response{
		Success: true,
		Data:    mustJSON(t, []shared.Room{{Name: "r1"}}),
	}

	resp, err := env.svc.ListRooms(ctx, []string{"r1"})
	if err != nil || !resp.Success {
		t.Fatalf("filtered ListRooms resp=%+v err=%v", resp, err)
	}
	if len(env.sender.calls) != 1 {
		t.Fatalf("filtered list must always hit the backend")
	}

	// 过滤查询不回填列表缓存
	var rooms []shared.Room
	hit, _ := env.cache.GetCachedRoomList(ctx, &rooms)
	if !hit || rooms[0].Name != "cached" {
		t.Fatalf("filtered result must not overwrite the list cache: hit=%v rooms=%v", hit, rooms)
	}
}

func TestGetRoomCacheHitSkipsRPC(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	env.sender.responses[shared.RoomGetRoom] = rpc.OK(shared.Room{SID: "RM_1", Name: "r1"})

	resp, err := env.svc.GetRoom(ctx, "r1")
	if err != nil || !resp.Success {
		t.Fatalf("GetRoom resp=%+v err=%v", resp, err)
	}
	if len(env.sender.calls) != 1 {
		t.Fatalf("expected 1 RPC on miss")
	}

	resp, err = env.svc.GetRoom(ctx, "r1")
	if err != nil || !resp.Success {
		t.Fatalf("cached GetRoom resp=%+v err=%v", resp, err)
	}
	if len(env.sender.calls) != 1 {
		t.Fatalf("cache hit must not issue an RPC")
	}
	var room shared.Room
	if err := resp.Decode(&room); err != nil || room.Name != "r1" {
		t.Fatalf("decode cached room: %v room=%+v", err, room)
	}
}

func TestDeleteRoomClearsEverything(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	// 预置本次删除应当清掉的所有状态
	_ = env.cache.CacheRoom(ctx, "r1", shared.Room{Name: "r1"}, time.Minute)
	_ = env.cache.CacheRoomList(ctx, []shared.Room{{Name: "r1"}}, time.Minute)
	_ = env.cache.CacheToken(ctx, "r1", "u1", "tok", time.Minute)
	_, _ = env.sessions.CreateRoomSession(ctx, "r1", nil, 0)
	// 其他房间的状态必须保留
	_ = env.cache.CacheToken(ctx, "r2", "u1", "tok2", time.Minute)

	env.sender.responses[shared.RoomDeleteRoom] = rpc.OKMessage(nil, "deleted")
	resp, err := env.svc.DeleteRoom(ctx, "r1")
	if err != nil || !resp.Success {
		t.Fatalf("DeleteRoom resp=%+v err=%v", resp, err)
	}

	var room shared.Room
	if hit, _ := env.cache.GetCachedRoom(ctx, "r1", &room); hit {
		t.Fatalf("room cache must be cleared")
	}
	var rooms []shared.Room
	if hit, _ := env.cache.GetCachedRoomList(ctx, &rooms); hit {
		t.Fatalf("room list cache must be cleared")
	}
	if _, hit, _ := env.cache.GetCachedToken(ctx, "r1", "u1"); hit {
		t.Fatalf("tokens of the room must be cleared")
	}
	if sess, _ := env.sessions.GetRoomSession(ctx, "r1"); sess != nil {
		t.Fatalf("room session must be cleared")
	}
	if _, hit, _ := env.cache.GetCachedToken(ctx, "r2", "u1"); !hit {
		t.Fatalf("other rooms' tokens must survive")
	}
}

func TestDeleteRoomBackendFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	_ = env.cache.CacheRoom(ctx, "r1", shared.Room{Name: "r1"}, time.Minute)
	env.sender.responses[shared.RoomDeleteRoom] = rpc.Fail("room not found")

	resp, err := env.svc.DeleteRoom(ctx, "r1")
	if err != nil || resp.Success {
		t.Fatalf("expected failure envelope: resp=%+v err=%v", resp, err)
	}
	var room shared.Room
	if hit, _ := env.cache.GetCachedRoom(ctx, "r1", &room); !hit {
		t.Fatalf("failed delete must not touch the cache")
	}
}

func TestJoinRoomRecordsSessionAndToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	env.sender.responses[shared.RoomCreateToken] = rpc.OK(shared.CreateTokenResult{
		Token:    "jwt-abc",
		WsURL:    "ws://localhost:7880",
		RoomName: "r1",
		Identity: "u1",
	})

	resp, err := env.svc.JoinRoom(ctx, shared.CreateTokenRequest{RoomName: "r1", Identity: "u1"})
	if err != nil || !resp.Success {
		t.Fatalf("JoinRoom resp=%+v err=%v", resp, err)
	}

	sess, _ := env.sessions.GetUserSession(ctx, "u1")
	if sess == nil || sess.RoomName != "r1" {
		t.Fatalf("user session not recorded: %+v", sess)
	}
	parts, _ := env.sessions.GetRoomParticipants(ctx, "r1")
	if len(parts) != 1 || parts[0] != "u1" {
		t.Fatalf("membership not recorded: %v", parts)
	}
	tok, hit, _ := env.cache.GetCachedToken(ctx, "r1", "u1")
	if !hit || tok != "jwt-abc" {
		t.Fatalf("token not cached: hit=%v tok=%q", hit, tok)
	}
}

func TestLeaveRoomClearsSessionAndToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	env.sender.responses[shared.RoomCreateToken] = rpc.OK(shared.CreateTokenResult{Token: "jwt-abc"})
	env.sender.responses[shared.RoomRemoveParticipant] = rpc.OKMessage(nil, "removed")

	_, _ = env.svc.JoinRoom(ctx, shared.CreateTokenRequest{RoomName: "r1", Identity: "u1"})
	resp, err := env.svc.LeaveRoom(ctx, "r1", "u1")
	if err != nil || !resp.Success {
		t.Fatalf("LeaveRoom resp=%+v err=%v", resp, err)
	}

	sess, _ := env.sessions.GetUserSession(ctx, "u1")
	if sess == nil || sess.RoomName != "" {
		t.Fatalf("user session roomName must be cleared: %+v", sess)
	}
	parts, _ := env.sessions.GetRoomParticipants(ctx, "r1")
	if len(parts) != 0 {
		t.Fatalf("membership must be cleared: %v", parts)
	}
	if _, hit, _ := env.cache.GetCachedToken(ctx, "r1", "u1"); hit {
		t.Fatalf("cached token must be invalidated")
	}
}

func TestParticipantOpsPassThrough(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	env.sender.responses[shared.RoomListParticipants] = rpc.OK([]shared.Participant{{Identity: "u1"}})
	env.sender.responses[shared.RoomRemoveParticipant] = rpc.OKMessage(nil, "removed")
	env.sender.responses[shared.RoomMuteParticipant] = rpc.OKMessage(nil, "muted")

	if resp, err := env.svc.ListParticipants(ctx, "r1"); err != nil || !resp.Success {
		t.Fatalf("ListParticipants resp=%+v err=%v", resp, err)
	}
	if resp, err := env.svc.RemoveParticipant(ctx, "r1", "u1"); err != nil || !resp.Success {
		t.Fatalf("RemoveParticipant resp=%+v err=%v", resp, err)
	}
	if resp, err := env.svc.MuteParticipant(ctx, "r1", "u1", "microphone", true); err != nil || !resp.Success {
		t.Fatalf("MuteParticipant resp=%+v err=%v", resp, err)
	}
	want := []string{shared.RoomListParticipants, shared.RoomRemoveParticipant, shared.RoomMuteParticipant}
	if len(env.sender.calls) != len(want) {
		t.Fatalf("unexpected call count: %v", env.sender.calls)
	}
	for i, p := range want {
		if env.sender.calls[i] != p {
			t.Fatalf("call %d = %s, want %s", i, env.sender.calls[i], p)
		}
	}
}
