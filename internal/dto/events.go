package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
)

// 客户端 -> 服务端事件名
const (
	EventJoinRoom       = "join-room"
	EventDrawing        = "drawing"
	EventViewportUpdate = "viewport:update"
	EventCursorMove     = "cursor-move"
	EventCursorLeave    = "cursor-leave"
	EventLeaveRoom      = "leave-room"
	EventForceLeaveRoom = "force-leave-room"
	EventHeartbeat      = "heartbeat"
)

// 服务端 -> 客户端事件名
const (
	EventAck             = "ack"
	EventCanvasState     = "canvas-state"
	EventRoomUsers       = "room-users"
	EventRoomJoined      = "room-joined"
	EventUserJoined      = "user-joined"
	EventViewportUpdated = "viewport:updated"
	EventCursorUpdate    = "cursor-update"
	EventUserLeft        = "user-left"
	EventHeartbeatAck    = "heartbeat-ack"
	EventError           = "error"
)

// ClearCanvasKind 是清屏绘图事件的 type 值
const ClearCanvasKind = "canvas:clear"

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Envelope 是 WebSocket 上每一帧的外层结构。
// 带 ack 的请求会收到一个同 ack 值的 "ack" 事件作为应答。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   *int64          `json:"ack,omitempty"`
}

// InboundEvent 是入站事件的封闭集合，只有本包中的类型实现它。
type InboundEvent interface {
	EventName() string
	inbound()
}

// JoinRoom 请求加入房间
type JoinRoom struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

// Drawing 是一条绘图事件；Payload 保存客户端发来的原始 data，原样存储和转发。
type Drawing struct {
	RoomID  string
	Kind    string
	Payload json.RawMessage
}

// IsClear 判断是否为清屏事件
func (d Drawing) IsClear() bool { return d.Kind == ClearCanvasKind }

// ViewportUpdate 替换房间视口
type ViewportUpdate struct {
	RoomID   string
	Viewport domain.Viewport
}

// CursorMove 光标移动
type CursorMove struct {
	X float64
	Y float64
}

// CursorLeave 光标离开画布
type CursorLeave struct{}

// LeaveRoom 对应 leave-room 和 force-leave-room，Force 区分两者
type LeaveRoom struct {
	RoomID string
	Force  bool
}

// Heartbeat 客户端心跳
type Heartbeat struct{}

func (JoinRoom) EventName() string       { return EventJoinRoom }
func (Drawing) EventName() string        { return EventDrawing }
func (ViewportUpdate) EventName() string { return EventViewportUpdate }
func (CursorMove) EventName() string     { return EventCursorMove }
func (CursorLeave) EventName() string    { return EventCursorLeave }
func (Heartbeat) EventName() string      { return EventHeartbeat }
func (l LeaveRoom) EventName() string {
	if l.Force {
		return EventForceLeaveRoom
	}
	return EventLeaveRoom
}

func (JoinRoom) inbound()       {}
func (Drawing) inbound()        {}
func (ViewportUpdate) inbound() {}
func (CursorMove) inbound()     {}
func (CursorLeave) inbound()    {}
func (LeaveRoom) inbound()      {}
func (Heartbeat) inbound()      {}

// DecodeEvent 解析一帧并按事件名校验负载。
// 只要外层结构能解析，就会返回 ack 值，方便调用方对失败的请求也回一个应答。
func DecodeEvent(raw []byte) (InboundEvent, *int64, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if env.Event == "" {
		return nil, env.Ack, fmt.Errorf("%w: missing event name", ErrMalformedFrame)
	}

	event, err := decodePayload(env.Event, env.Data)
	if err != nil {
		return nil, env.Ack, err
	}
	return event, env.Ack, nil
}

func decodePayload(name string, data json.RawMessage) (InboundEvent, error) {
	switch name {
	case EventJoinRoom:
		return decodeJoinRoom(data)
	case EventDrawing:
		return decodeDrawing(data)
	case EventViewportUpdate:
		var p struct {
			RoomID   string           `json:"roomId"`
			Viewport *domain.Viewport `json:"viewport"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, invalidPayload(name, err.Error())
		}
		if strings.TrimSpace(p.RoomID) == "" {
			return nil, invalidPayload(name, "roomId is required")
		}
		if p.Viewport == nil {
			return nil, invalidPayload(name, "viewport is required")
		}
		return ViewportUpdate{RoomID: p.RoomID, Viewport: *p.Viewport}, nil
	case EventCursorMove:
		var p struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, invalidPayload(name, err.Error())
		}
		if p.X == nil || p.Y == nil {
			return nil, invalidPayload(name, "x and y are required")
		}
		return CursorMove{X: *p.X, Y: *p.Y}, nil
	case EventCursorLeave:
		return CursorLeave{}, nil
	case EventLeaveRoom, EventForceLeaveRoom:
		roomID, err := decodeRoomRef(data)
		if err != nil {
			return nil, invalidPayload(name, err.Error())
		}
		return LeaveRoom{RoomID: roomID, Force: name == EventForceLeaveRoom}, nil
	case EventHeartbeat:
		return Heartbeat{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

// decodeJoinRoom 接受 {roomCode, username} 对象，也接受只有房间码的字符串。
func decodeJoinRoom(data json.RawMessage) (InboundEvent, error) {
	var j JoinRoom
	var code string
	if err := json.Unmarshal(data, &code); err == nil {
		j.RoomCode = code
	} else if err := json.Unmarshal(data, &j); err != nil {
		return nil, invalidPayload(EventJoinRoom, err.Error())
	}
	if strings.TrimSpace(j.RoomCode) == "" {
		return nil, invalidPayload(EventJoinRoom, "roomCode is required")
	}
	return j, nil
}

func decodeDrawing(data json.RawMessage) (InboundEvent, error) {
	var head struct {
		RoomID string          `json:"roomId"`
		Type   json.RawMessage `json:"type"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, invalidPayload(EventDrawing, err.Error())
	}
	if strings.TrimSpace(head.RoomID) == "" {
		return nil, invalidPayload(EventDrawing, "roomId is required")
	}
	// data 可以是任意 JSON，只有对象才可能携带 type
	kind := stringField(head.Type)
	if isObject(head.Data) {
		var inner struct {
			Type json.RawMessage `json:"type"`
		}
		if err := json.Unmarshal(head.Data, &inner); err == nil {
			if t := stringField(inner.Type); t != "" {
				kind = t
			}
		}
	}
	// 拷贝一份，避免引用读缓冲区
	payload := make(json.RawMessage, len(data))
	copy(payload, data)
	return Drawing{RoomID: head.RoomID, Kind: kind, Payload: payload}, nil
}

// stringField 返回 JSON 字符串的值，其他类型返回空串
func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// decodeRoomRef 接受 "AB12CD" 或 {"roomId": "AB12CD"}
func decodeRoomRef(data json.RawMessage) (string, error) {
	var roomID string
	if err := json.Unmarshal(data, &roomID); err != nil {
		var obj struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", errors.New("room id must be a string or {roomId}")
		}
		roomID = obj.RoomID
	}
	if strings.TrimSpace(roomID) == "" {
		return "", errors.New("room id is required")
	}
	return roomID, nil
}

func invalidPayload(event, reason string) error {
	return fmt.Errorf("%w for %s: %s", ErrInvalidPayload, event, reason)
}
