package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JayStevency/livekit-msa-server/backend/internal/rpc"
	"github.com/JayStevency/livekit-msa-server/backend/internal/shared"
)

// RoomService：编排层能力（rooms.Service 实现）
type RoomService interface {
	CreateRoom(ctx context.Context, req shared.CreateRoomRequest) (rpc.Response, error)
	ListRooms(ctx context.Context, names []string) (rpc.Response, error)
	GetRoom(ctx context.Context, name string) (rpc.Response, error)
	DeleteRoom(ctx context.Context, name string) (rpc.Response, error)
	JoinRoom(ctx context.Context, req shared.CreateTokenRequest) (rpc.Response, error)
	LeaveRoom(ctx context.Context, roomName, identity string) (rpc.Response, error)
	ListParticipants(ctx context.Context, roomName string) (rpc.Response, error)
	RemoveParticipant(ctx context.Context, roomName, identity string) (rpc.Response, error)
	MuteParticipant(ctx context.Context, roomName, identity, trackSource string, muted bool) (rpc.Response, error)
}

type RoomsHandler struct {
	svc RoomService
}

func NewRoomsHandler(svc RoomService) *RoomsHandler {
	return &RoomsHandler{svc: svc}
}

// RegisterRoutes 挂载 /rooms 路由组
func (h *RoomsHandler) RegisterRoutes(r gin.IRouter) {
	rooms := r.Group("/rooms")
	rooms.POST("", h.CreateRoom)
	rooms.GET("", h.ListRooms)
	rooms.GET("/:name", h.GetRoom)
	rooms.DELETE("/:name", h.DeleteRoom)
	rooms.POST("/:name/join", h.JoinRoom)
	rooms.POST("/:name/leave", h.LeaveRoom)
	rooms.GET("/:name/participants", h.ListParticipants)
	rooms.DELETE("/:name/participants/:identity", h.RemoveParticipant)
	rooms.POST("/:name/participants/:identity/mute", h.MuteParticipant)
}

type createRoomBody struct {
	Name            string `json:"name" binding:"required"`
	EmptyTimeout    uint32 `json:"emptyTimeout"`
	MaxParticipants uint32 `json:"maxParticipants"`
	Metadata        string `json:"metadata"`
}

func (h *RoomsHandler) CreateRoom(c *gin.Context) {
	var body createRoomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.svc.CreateRoom(c.Request.Context(), shared.CreateRoomRequest{
		Name:            body.Name,
		EmptyTimeout:    body.EmptyTimeout,
		MaxParticipants: body.MaxParticipants,
		Metadata:        body.Metadata,
	})
	respond(c, http.StatusCreated, resp, err)
}

func (h *RoomsHandler) ListRooms(c *gin.Context) {
	// ?names=a&names=b 或 ?names=a 都支持
	names := c.QueryArray("names")
	resp, err := h.svc.ListRooms(c.Request.Context(), names)
	respond(c, http.StatusOK, resp, err)
}

func (h *RoomsHandler) GetRoom(c *gin.Context) {
	resp, err := h.svc.GetRoom(c.Request.Context(), c.Param("name"))
	respond(c, http.StatusOK, resp, err)
}

func (h *RoomsHandler) DeleteRoom(c *gin.Context) {
	resp, err := h.svc.DeleteRoom(c.Request.Context(), c.Param("name"))
	respond(c, http.StatusOK, resp, err)
}

type joinRoomBody struct {
	Identity       string `json:"identity" binding:"required"`
	Name           string `json:"name"`
	Metadata       string `json:"metadata"`
	CanPublish     *bool  `json:"canPublish"`
	CanSubscribe   *bool  `json:"canSubscribe"`
	CanPublishData *bool  `json:"canPublishData"`
}

func (h *RoomsHandler) JoinRoom(c *gin.Context) {
	var body joinRoomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.svc.JoinRoom(c.Request.Context(), shared.CreateTokenRequest{
		RoomName:       c.Param("name"),
		Identity:       body.Identity,
		Name:           body.Name,
		Metadata:       body.Metadata,
		CanPublish:     boolOrDefault(body.CanPublish, true),
		CanSubscribe:   boolOrDefault(body.CanSubscribe, true),
		CanPublishData: boolOrDefault(body.CanPublishData, true),
	})
	respond(c, http.StatusOK, resp, err)
}

type leaveRoomBody struct {
	Identity string `json:"identity" binding:"required"`
}

func (h *RoomsHandler) LeaveRoom(c *gin.Context) {
	var body leaveRoomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.svc.LeaveRoom(c.Request.Context(), c.Param("name"), body.Identity)
	respond(c, http.StatusOK, resp, err)
}

func (h *RoomsHandler) ListParticipants(c *gin.Context) {
	resp, err := h.svc.ListParticipants(c.Request.Context(), c.Param("name"))
	respond(c, http.StatusOK, resp, err)
}

func (h *RoomsHandler) RemoveParticipant(c *gin.Context) {
	resp, err := h.svc.RemoveParticipant(c.Request.Context(), c.Param("name"), c.Param("identity"))
	respond(c, http.StatusOK, resp, err)
}

type muteBody struct {
	TrackSource string `json:"trackSource" binding:"required"`
	Muted       bool   `json:"muted"`
}

func (h *RoomsHandler) MuteParticipant(c *gin.Context) {
	var body muteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.svc.MuteParticipant(c.Request.Context(), c.Param("name"), c.Param("identity"), body.TrackSource, body.Muted)
	respond(c, http.StatusOK, resp, err)
}

// respond：信封到 HTTP 的统一映射。
// 传输层失败：超时 504、通道错误 502；后端业务失败：400；成功：展开 data。
func respond(c *gin.Context, okStatus int, resp rpc.Response, err error) {
	if err != nil {
		if errors.Is(err, rpc.ErrTimeout) {
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "room backend timed out"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "room backend unavailable"})
		return
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "internal server error"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	if resp.Data != nil {
		c.JSON(okStatus, resp.Data)
		return
	}
	c.JSON(okStatus, gin.H{"success": true, "message": resp.Message})
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
