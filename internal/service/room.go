package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
	"github.com/sujal-2301/SyncCanvasLab/internal/repository"

	"github.com/sirupsen/logrus"
)

// RoomService 负责房间的创建、校验和查询，HTTP 查询接口建立在它之上。
type RoomService struct {
	roomRepo repository.RoomRepository
	newCode  CodeGenerator
	now      func() time.Time
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(roomRepo repository.RoomRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	return &RoomService{
		roomRepo: roomRepo,
		newCode:  RandomRoomCode,
		now:      time.Now,
	}
}

// WithCodeGenerator 替换房间码生成器，测试中用于制造冲突。
func (s *RoomService) WithCodeGenerator(gen CodeGenerator) *RoomService {
	s.newCode = gen
	return s
}

// CreateRoom 创建一个新房间并立即注册，名称为空时使用默认名称。
func (s *RoomService) CreateRoom(ctx context.Context, name string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	logCtx := logrus.WithField("room_name", name)

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			logCtx.WithError(err).Error("Failed to generate room code")
			return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
		}

		room := domain.NewRoom(code, name, s.now())
		err = s.roomRepo.Create(room)
		if err == nil {
			logCtx.WithFields(logrus.Fields{
				"room_code": code,
				"attempts":  attempt,
			}).Info("Room created successfully")
			return room, nil
		}
		if !errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Error("Failed to register new room")
			return nil, fmt.Errorf("%w: %v", ErrInternalServer, err)
		}
		// 房间码已被占用，重试
		logCtx.WithField("room_code", code).Warnf("Generated room code already exists, retrying (attempt %d)...", attempt)
	}

	logCtx.Errorf("Failed to generate a unique room code after %d attempts", maxCodeAttempts)
	return nil, fmt.Errorf("%w: no unique room code after %d attempts", ErrInternalServer, maxCodeAttempts)
}

// ValidateRoom 先检查房间码格式，再检查房间是否存在，两种失败返回不同的错误。
func (s *RoomService) ValidateRoom(ctx context.Context, code string) (*domain.Room, error) {
	normalized := NormalizeRoomCode(code)
	if err := checkRoomCode(normalized); err != nil {
		logrus.WithField("room_code", code).WithError(err).Debug("Room code rejected")
		return nil, err
	}
	room, ok := s.roomRepo.Get(normalized)
	if !ok {
		logrus.WithField("room_code", normalized).Debug("Room not found")
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// RoomCount 返回当前存活的房间数。
func (s *RoomService) RoomCount() int {
	return s.roomRepo.Count()
}
