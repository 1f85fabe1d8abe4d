package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
	"github.com/sujal-2301/SyncCanvasLab/internal/repository"

	"github.com/sirupsen/logrus"
)

// CollaborationService 是事件中继的状态机：解释每个连接的入站事件，
// 修改房间和会话状态，并告诉调用方需要把结果扇出给哪些连接。
// 它本身不做任何网络发送。
type CollaborationService struct {
	rooms    repository.RoomRepository
	sessions repository.SessionRepository

	historyLimit int // 0 表示不限制

	now         func() time.Time
	pickColor   func() string
	newUsername func() string
}

// NewCollaborationService 创建 CollaborationService 实例。
func NewCollaborationService(rooms repository.RoomRepository, sessions repository.SessionRepository, historyLimit int) *CollaborationService {
	if rooms == nil || sessions == nil {
		panic("All repositories must be non-nil for CollaborationService")
	}
	if historyLimit < 0 {
		historyLimit = 0
	}
	return &CollaborationService{
		rooms:        rooms,
		sessions:     sessions,
		historyLimit: historyLimit,
		now:          time.Now,
		pickColor:    randomUserColor,
		newUsername:  randomUsername,
	}
}

// JoinResult 描述一次成功加入的结果。
type JoinResult struct {
	Room         *domain.Room
	Participant  domain.Participant
	History      []json.RawMessage
	Viewport     domain.Viewport
	Participants []domain.Participant

	// Peers 是需要收到 user-joined 的其他成员；重复加入同一房间时为空。
	Peers []string

	// Previous 非空表示连接原本在另一个房间，已被隐式离开。
	Previous *LeaveResult
}

// LeaveResult 描述一次离开（主动、强制或断线）的结果。
type LeaveResult struct {
	RoomCode    string
	Participant domain.Participant
	Peers       []string // 剩余成员
	RoomDeleted bool
}

// Fanout 描述一次需要广播给房间其他成员的更新。
type Fanout struct {
	RoomCode string
	Peers    []string
}

// CursorResult 描述光标更新以及它的接收者。
type CursorResult struct {
	RoomCode    string
	Participant domain.Participant
	Peers       []string
}

// Join 让连接加入房间。
// 连接已经在另一个房间时先隐式离开；重复加入同一房间只刷新状态，不重复广播。
func (s *CollaborationService) Join(ctx context.Context, connID, roomCode, username string) (*JoinResult, error) {
	code := NormalizeRoomCode(roomCode)
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": connID, "room_code": code})

	if err := checkRoomCode(code); err != nil {
		logCtx.WithError(err).Debug("Join rejected: bad room code")
		return nil, err
	}
	room, ok := s.rooms.Get(code)
	if !ok {
		logCtx.Info("Join rejected: room not found")
		return nil, ErrRoomNotFound
	}

	result := &JoinResult{Room: room}

	if session, bound := s.sessions.Lookup(connID); bound {
		if session.RoomCode == code {
			if member, isMember := room.Member(connID); isMember {
				logCtx.Debug("Connection re-joined its current room, refreshing state")
				result.Participant = member
				s.fillRoomState(result, room)
				return result, nil
			}
		} else {
			prev, err := s.leave(connID, session.RoomCode)
			if err != nil {
				logCtx.WithError(err).WithField("previous_room", session.RoomCode).Debug("Stale session while switching rooms")
			}
			result.Previous = prev
			logCtx.WithField("previous_room", session.RoomCode).Info("Connection left previous room before joining")
		}
	}

	name := strings.TrimSpace(username)
	if name == "" {
		name = s.newUsername()
	}
	participant := domain.Participant{
		ID:       connID,
		Name:     name,
		Color:    s.pickColor(),
		Cursor:   domain.Cursor{X: 0, Y: 0, Visible: false},
		JoinedAt: s.now(),
	}

	room.AddMember(participant)
	s.sessions.Bind(connID, code, participant)

	result.Participant = participant
	result.Peers = room.PeerIDs(connID)
	s.fillRoomState(result, room)

	logCtx.WithFields(logrus.Fields{
		"user_name":   participant.Name,
		"total_users": len(result.Participants),
	}).Info("User joined room")
	return result, nil
}

func (s *CollaborationService) fillRoomState(result *JoinResult, room *domain.Room) {
	result.History = room.History()
	result.Viewport = room.Viewport()
	result.Participants = room.Participants()
}

// Leave 处理 leave-room 和 force-leave-room。
// 连接不是该房间成员时返回 ErrNotInRoom，状态不变。
func (s *CollaborationService) Leave(ctx context.Context, connID, roomCode string) (*LeaveResult, error) {
	return s.leave(connID, NormalizeRoomCode(roomCode))
}

// Disconnect 在传输层断开时调用，通过会话索引找到连接所在房间并清理。
// 没有会话的连接直接返回 false。
func (s *CollaborationService) Disconnect(ctx context.Context, connID string) (*LeaveResult, bool) {
	session, bound := s.sessions.Lookup(connID)
	if !bound {
		return nil, false
	}
	result, err := s.leave(connID, session.RoomCode)
	if err != nil {
		// 房间已不存在或成员记录已丢失，只需要清掉会话
		s.sessions.Unbind(connID)
		logrus.WithFields(logrus.Fields{"conn_id": connID, "room_code": session.RoomCode}).
			WithError(err).Debug("Disconnect found a stale session")
		return nil, false
	}
	return result, true
}

func (s *CollaborationService) leave(connID, code string) (*LeaveResult, error) {
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": connID, "room_code": code})

	room, ok := s.rooms.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	participant, remaining, removed := room.RemoveMember(connID)
	if !removed {
		return nil, ErrNotInRoom
	}
	if session, bound := s.sessions.Lookup(connID); bound && session.RoomCode == code {
		s.sessions.Unbind(connID)
	}

	result := &LeaveResult{
		RoomCode:    code,
		Participant: participant,
		Peers:       room.PeerIDs(""),
	}
	if remaining == 0 {
		s.rooms.Delete(code)
		result.RoomDeleted = true
		logCtx.Info("Room deleted - no users remaining")
	}
	logCtx.WithFields(logrus.Fields{
		"user_name":       participant.Name,
		"remaining_users": remaining,
	}).Info("User left room")
	return result, nil
}

// RecordDrawing 把绘图事件原样追加到房间历史。
// clear 为 true 时历史被原子地清空，之后加入的人只会看到清屏之后的内容。
func (s *CollaborationService) RecordDrawing(ctx context.Context, connID, roomCode string, payload json.RawMessage, clear bool) (*Fanout, error) {
	code := NormalizeRoomCode(roomCode)
	room, ok := s.rooms.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": connID, "room_code": code})

	if clear {
		cleared := room.ResetHistory()
		logCtx.WithField("cleared_items", cleared).Info("Canvas cleared")
	} else if dropped := room.AppendHistory(payload, s.historyLimit); dropped > 0 {
		logCtx.WithField("dropped_items", dropped).Warn("History limit reached, oldest drawing events dropped")
	}
	logCtx.WithField("history_size", room.HistoryLen()).Debug("Stored drawing event")

	return &Fanout{RoomCode: code, Peers: room.PeerIDs(connID)}, nil
}

// UpdateViewport 整体替换房间视口。
func (s *CollaborationService) UpdateViewport(ctx context.Context, connID, roomCode string, viewport domain.Viewport) (*Fanout, error) {
	code := NormalizeRoomCode(roomCode)
	room, ok := s.rooms.Get(code)
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.SetViewport(viewport)
	return &Fanout{RoomCode: code, Peers: room.PeerIDs(connID)}, nil
}

// MoveCursor 光标事件不带房间码，房间通过会话索引解析。
func (s *CollaborationService) MoveCursor(ctx context.Context, connID string, x, y float64) (*CursorResult, error) {
	return s.updateCursor(connID, func(room *domain.Room) (domain.Participant, bool) {
		return room.SetCursor(connID, domain.Cursor{X: x, Y: y, Visible: true})
	})
}

// HideCursor 把光标标记为不可见。
func (s *CollaborationService) HideCursor(ctx context.Context, connID string) (*CursorResult, error) {
	return s.updateCursor(connID, func(room *domain.Room) (domain.Participant, bool) {
		return room.HideCursor(connID)
	})
}

func (s *CollaborationService) updateCursor(connID string, apply func(*domain.Room) (domain.Participant, bool)) (*CursorResult, error) {
	session, bound := s.sessions.Lookup(connID)
	if !bound {
		return nil, ErrNoSession
	}
	room, ok := s.rooms.Get(session.RoomCode)
	if !ok {
		return nil, ErrRoomNotFound
	}
	participant, ok := apply(room)
	if !ok {
		return nil, ErrNotInRoom
	}
	return &CursorResult{
		RoomCode:    session.RoomCode,
		Participant: participant,
		Peers:       room.PeerIDs(connID),
	}, nil
}

// ReapIdleRooms 删除创建后超过 maxIdle 仍然没有成员的房间，返回被删除的房间码。
// 有过成员的房间在变空时已被立即删除，所以这里只会处理从未被加入的房间。
func (s *CollaborationService) ReapIdleRooms(ctx context.Context, maxIdle time.Duration) []string {
	now := s.now()
	var reaped []string
	for _, room := range s.rooms.List() {
		if room.MemberCount() > 0 || now.Sub(room.CreatedAt()) < maxIdle {
			continue
		}
		s.rooms.Delete(room.Code())
		reaped = append(reaped, room.Code())
	}
	if len(reaped) > 0 {
		logrus.WithFields(logrus.Fields{
			"reaped_rooms": reaped,
			"max_idle":     maxIdle.String(),
		}).Info("Idle rooms reaped")
	}
	return reaped
}

// RoomCount 返回当前房间数。
func (s *CollaborationService) RoomCount() int {
	return s.rooms.Count()
}
