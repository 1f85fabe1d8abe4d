package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
	memorystate "github.com/sujal-2301/SyncCanvasLab/internal/infra/state/memory"
	"github.com/sujal-2301/SyncCanvasLab/internal/repository"
	"github.com/sujal-2301/SyncCanvasLab/internal/repository/mocks"
	"github.com/sujal-2301/SyncCanvasLab/internal/service"
)

// sequenceGenerator 依次返回给定的房间码，用完后重复最后一个
func sequenceGenerator(codes ...string) service.CodeGenerator {
	i := 0
	return func() (string, error) {
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

func TestRandomRoomCode_Format(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := service.RandomRoomCode()
		require.NoError(t, err)
		require.Len(t, code, service.RoomCodeLength)
		for _, ch := range code {
			assert.True(t, strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", ch), "房间码包含非法字符: %q", code)
		}
	}
}

func TestRoomService_CreateRoom_Success(t *testing.T) {
	repo := memorystate.NewRoomRepository()
	svc := service.NewRoomService(repo)
	ctx := context.Background()

	room, err := svc.CreateRoom(ctx, "  Team Sync  ")
	require.NoError(t, err)
	assert.Equal(t, "Team Sync", room.Name())
	assert.Len(t, room.Code(), service.RoomCodeLength)
	assert.False(t, room.CreatedAt().IsZero())

	// 创建后立即可以校验，成员数为 0
	validated, err := svc.ValidateRoom(ctx, room.Code())
	require.NoError(t, err)
	assert.Same(t, room, validated)
	assert.Equal(t, 0, validated.MemberCount())
}

func TestRoomService_CreateRoom_DefaultName(t *testing.T) {
	svc := service.NewRoomService(memorystate.NewRoomRepository())

	room, err := svc.CreateRoom(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRoomName, room.Name())
}

func TestRoomService_CreateRoom_RetriesOnCollision(t *testing.T) {
	// Arrange: 前两次生成的房间码已被占用
	mockRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(mockRepo).WithCodeGenerator(sequenceGenerator("AAAAAA", "BBBBBB", "CCCCCC"))

	mockRepo.On("Create", mock.MatchedBy(func(r *domain.Room) bool { return r.Code() == "AAAAAA" })).
		Return(repository.ErrDuplicateEntry).Once()
	mockRepo.On("Create", mock.MatchedBy(func(r *domain.Room) bool { return r.Code() == "BBBBBB" })).
		Return(repository.ErrDuplicateEntry).Once()
	mockRepo.On("Create", mock.MatchedBy(func(r *domain.Room) bool { return r.Code() == "CCCCCC" })).
		Return(nil).Once()

	// Act
	room, err := svc.CreateRoom(context.Background(), "Retry")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "CCCCCC", room.Code())
	mockRepo.AssertExpectations(t)
}

func TestRoomService_CreateRoom_GivesUpAfterMaxAttempts(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(mockRepo).WithCodeGenerator(sequenceGenerator("AAAAAA"))
	mockRepo.On("Create", mock.Anything).Return(repository.ErrDuplicateEntry)

	room, err := svc.CreateRoom(context.Background(), "Full")

	assert.Nil(t, room)
	assert.ErrorIs(t, err, service.ErrInternalServer, "重试耗尽应返回内部错误")
	mockRepo.AssertNumberOfCalls(t, "Create", 10)
}

func TestRoomService_CreateRoom_RepositoryFailure(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(mockRepo).WithCodeGenerator(sequenceGenerator("AAAAAA"))
	mockRepo.On("Create", mock.Anything).Return(errors.New("boom")).Once()

	_, err := svc.CreateRoom(context.Background(), "x")

	assert.ErrorIs(t, err, service.ErrInternalServer)
	mockRepo.AssertExpectations(t)
}

func TestRoomService_CreateRoom_GeneratorFailure(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	svc := service.NewRoomService(mockRepo).WithCodeGenerator(func() (string, error) {
		return "", errors.New("entropy unavailable")
	})

	_, err := svc.CreateRoom(context.Background(), "x")

	assert.ErrorIs(t, err, service.ErrInternalServer)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestRoomService_ValidateRoom(t *testing.T) {
	repo := memorystate.NewRoomRepository()
	svc := service.NewRoomService(repo).WithCodeGenerator(sequenceGenerator("ABC123"))
	ctx := context.Background()
	_, err := svc.CreateRoom(ctx, "Team Sync")
	require.NoError(t, err)

	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"exact", "ABC123", nil},
		{"lowercase and whitespace", "  abc123 ", nil},
		{"empty", "", service.ErrInvalidRoomCode},
		{"whitespace only", "   ", service.ErrInvalidRoomCode},
		{"too short", "ABC", service.ErrRoomCodeLength},
		{"too long", "ABC1234", service.ErrRoomCodeLength},
		{"bad character", "ABC-12", service.ErrInvalidRoomCode},
		{"unknown", "ZZZ999", service.ErrRoomNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := svc.ValidateRoom(ctx, tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, room)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ABC123", room.Code())
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "Room not found", service.PublicMessage(service.ErrRoomNotFound))
	assert.Equal(t, "Room code must be 6 characters", service.PublicMessage(service.ErrRoomCodeLength))
	assert.Equal(t, "Invalid room code format", service.PublicMessage(service.ErrInvalidRoomCode))
	assert.Equal(t, "An unexpected error occurred", service.PublicMessage(errors.New("db down")))
}
