package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
)

// AckResponse 是 ack 事件的负载
type AckResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CanvasState 是加入房间时下发的完整画布状态
type CanvasState struct {
	DrawingData []json.RawMessage `json:"drawingData"`
	Viewport    domain.Viewport   `json:"viewport"`
}

// NewCanvasState 保证 drawingData 序列化为 [] 而不是 null
func NewCanvasState(history []json.RawMessage, viewport domain.Viewport) CanvasState {
	if history == nil {
		history = []json.RawMessage{}
	}
	return CanvasState{DrawingData: history, Viewport: viewport}
}

// RoomSummary 是 room-joined 中的房间信息
type RoomSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserInfo 是成员的公开身份，不含光标和加入时间
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// NewUserInfo 从成员记录提取公开字段
func NewUserInfo(p domain.Participant) UserInfo {
	return UserInfo{ID: p.ID, Name: p.Name, Color: p.Color}
}

// RoomJoined 只发给加入者本人
type RoomJoined struct {
	Room RoomSummary `json:"room"`
	User UserInfo    `json:"user"`
}

// CursorUpdate 光标广播
type CursorUpdate struct {
	UserID  string  `json:"userId"`
	Name    string  `json:"name"`
	Color   string  `json:"color"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Visible bool    `json:"visible"`
}

// NewCursorUpdate 从成员记录生成光标广播
func NewCursorUpdate(p domain.Participant) CursorUpdate {
	return CursorUpdate{
		UserID:  p.ID,
		Name:    p.Name,
		Color:   p.Color,
		X:       p.Cursor.X,
		Y:       p.Cursor.Y,
		Visible: p.Cursor.Visible,
	}
}

// UserLeft 成员离开广播
type UserLeft struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
}

// ErrorMessage 用于无法通过 ack 应答的错误帧
type ErrorMessage struct {
	Message string `json:"message"`
}

// NewEnvelope 序列化一条出站消息
func NewEnvelope(event string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		data = p
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		data = raw
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// NewAckEnvelope 序列化对某个请求的应答
func NewAckEnvelope(ack int64, resp AckResponse) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal ack payload: %w", err)
	}
	return json.Marshal(Envelope{Event: EventAck, Data: data, Ack: &ack})
}
