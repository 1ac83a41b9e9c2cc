package livekit

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/JayStevency/livekit-msa-server/backend/internal/rpc"
	"github.com/JayStevency/livekit-msa-server/backend/internal/shared"
)

// Handler：把 room.* pattern 映射到 Registry / token 签发。
// 每个 handler 把业务失败包成 Fail(...) 信封返回，不向传输层抛错。
type Handler struct {
	registry  *Registry
	apiKey    string
	apiSecret string
	wsURL     string
}

func NewHandler(registry *Registry, apiKey, apiSecret, wsURL string) *Handler {
	return &Handler{registry: registry, apiKey: apiKey, apiSecret: apiSecret, wsURL: wsURL}
}

// Register 把全部 pattern 挂到 rpc.Server 上
func (h *Handler) Register(srv *rpc.Server) {
	srv.Handle(shared.RoomCreate, h.CreateRoom)
	srv.Handle(shared.RoomListRooms, h.ListRooms)
	srv.Handle(shared.RoomGetRoom, h.GetRoom)
	srv.Handle(shared.RoomDeleteRoom, h.DeleteRoom)
	srv.Handle(shared.RoomCreateToken, h.CreateToken)
	srv.Handle(shared.RoomListParticipants, h.ListParticipants)
	srv.Handle(shared.RoomRemoveParticipant, h.RemoveParticipant)
	srv.Handle(shared.RoomMuteParticipant, h.MuteParticipant)
}

func (h *Handler) CreateRoom(ctx context.Context, payload []byte) rpc.Response {
	var req shared.CreateRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return rpc.Fail("invalid payload: " + err.Error())
	}
	if strings.TrimSpace(req.Name) == "" {
		return rpc.Fail("room name is required")
	}
	room := h.registry.CreateRoom(req.Name, req.EmptyTimeout, req.MaxParticipants, req.Metadata)
	log.Printf("livekit: created room %s", room.Name)
	return rpc.OK(room)
}

func (h *Handler) ListRooms(ctx context.Context, payload []byte) rpc.Response {
	var req shared.ListRoomsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return rpc.Fail("invalid payload: " + err.Error())
	}
	return rpc.OK(h.registry.ListRooms(req.Names))
}

func (h *Handler) GetRoom(ctx context.Context, payload []byte) rpc.Response {
	var req shared.GetRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return rpc.Fail("invalid payload: " + err.Error())
	}
	room, ok := h.registry.GetRoom(req.Name)
	if !ok {
		return rpc.Fail("room " + req.Name + " not found")
	}
	return rpc.OK(room)
}

func (h *Handler) DeleteRoom(ctx context.Context, payload []byte) rpc.Response {
	var req shared.DeleteRoomRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return rpc.Fail("invalid payload: " + err.Error())
	}
	if err := h.registry.DeleteRoom(req.Name); err != nil {
		return rpc.Fail(err.Error())
	}
	log.Printf("livekit: deleted room %s", req.Name)
	return rpc.OKMessage(nil, "room deleted")
}

func (h *Handler) CreateToken(ctx context.Context, payload []byte) rpc.Response {
	var req shared.CreateTokenRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return rpc.Fail("invalid payload: " + err.Error())
	}
	if req.RoomName == "" || req.Identity == "" {
		return rpc.Fail("roomName and identity are required")
	}

	// 签发 token 同时登记参与者（token 即加入凭证）
	if _, err := h.registry.AddParticipant(req.RoomName, req.Identity, req.Name, req.Metadata); err != nil {
		return rpc.Fail(err.Error())
	}

	token, err := SignAccessToken(h.apiKey, h.apiSecret, TokenOptions{
		RoomName:       req.RoomName,
		Identity:       req.Identity,
		Name:           req.Name,
		Metadata:       req.Metadata,
		CanPublish:     req.CanPublish,
		CanSubscribe:   req.CanSubscribe,
		CanPublishData: req.CanPublishData,
	})
	if err != nil {
		return rpc.Fail("sign token: " + err.Error())
	}
	return rpc.OK(shared.CreateTokenResult{
		Token:    token,
		WsURL:    h.wsURL,
		RoomName: req.RoomName,
		Identity: req.Identity,
	})
}

func (h *Handler) ListParticipants(ctx context.Context, payload []byte) rpc.Response {
	var req shared.ListParticipantsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return rpc.Fail("invalid payload: " + err.Error())
	}
	participants, err := h.registry.ListParticipants(req.RoomName)
	if err != nil {
		return rpc.Fail(err.Error())
	}
	return rpc.OK(participants)
}

func (h *Handler) RemoveParticipant(ctx context.Context, payload []byte) rpc.Response {
	var req shared.RemoveParticipantRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return rpc.Fail("invalid payload: " + err.Error())
	}
	if err := h.registry.RemoveParticipant(req.RoomName, req.Identity); err != nil {
		return rpc.Fail(err.Error())
	}
	return rpc.OKMessage(nil, "participant removed")
}

func (h *Handler) MuteParticipant(ctx context.Context, payload []byte) rpc.Response {
	var req shared.MuteParticipantRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return rpc.Fail("invalid payload: " + err.Error())
	}
	if err := h.registry.MuteParticipant(req.RoomName, req.Identity, req.TrackSource, req.Muted); err != nil {
		return rpc.Fail(err.Error())
	}
	return rpc.OK(map[string]bool{"muted": req.Muted})
}
