package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sujal-2301/SyncCanvasLab/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RoomHandler 封装了与房间相关的 HTTP 查询接口
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler 创建 RoomHandler 实例
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService}
}

// CreateRoomRequest 创建房间的请求体，roomName 可省略
type CreateRoomRequest struct {
	RoomName string `json:"roomName"`
}

// CreatedRoom 是创建成功后返回的房间信息
type CreatedRoom struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidatedRoom 是校验接口返回的房间信息
type ValidatedRoom struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ParticipantCount int    `json:"participantCount"`
}

// ParticipantInfo 只暴露成员的公开字段
type ParticipantInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RoomInfo 是房间详情接口的返回结构
type RoomInfo struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	CreatedAt        time.Time         `json:"createdAt"`
	ParticipantCount int               `json:"participantCount"`
	Participants     []ParticipantInfo `json:"participants"`
}

// CreateRoom 处理 POST /api/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	// 空请求体等价于不提供名称
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		logrus.WithError(err).Warn("Handler.CreateRoom: Invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), req.RoomName)
	if err != nil {
		logrus.WithError(err).Error("Handler.CreateRoom: Failed to create room via service")
		ErrorResponse(c, http.StatusInternalServerError, "Failed to create room")
		return
	}

	SuccessResponse(c, http.StatusOK, "room", CreatedRoom{
		ID:        room.Code(),
		Name:      room.Name(),
		CreatedAt: room.CreatedAt(),
	})
}

// ValidateRoom 处理 GET /api/rooms/:code/validate
func (h *RoomHandler) ValidateRoom(c *gin.Context) {
	code := c.Param("code")
	room, err := h.roomService.ValidateRoom(c.Request.Context(), code)
	if err != nil {
		logrus.WithField("room_code", code).WithError(err).Info("Handler.ValidateRoom: Room validation failed")
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "room", ValidatedRoom{
		ID:               room.Code(),
		Name:             room.Name(),
		ParticipantCount: room.MemberCount(),
	})
}

// GetRoom 处理 GET /api/rooms/:code
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomService.ValidateRoom(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	members := room.Participants()
	participants := make([]ParticipantInfo, 0, len(members))
	for _, p := range members {
		participants = append(participants, ParticipantInfo{ID: p.ID, Name: p.Name, Color: p.Color})
	}

	SuccessResponse(c, http.StatusOK, "room", RoomInfo{
		ID:               room.Code(),
		Name:             room.Name(),
		CreatedAt:        room.CreatedAt(),
		ParticipantCount: len(participants),
		Participants:     participants,
	})
}
