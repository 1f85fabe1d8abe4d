package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
)

// RoomRepository 是 repository.RoomRepository 的 testify mock。
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) Create(room *domain.Room) error {
	args := m.Called(room)
	return args.Error(0)
}

func (m *RoomRepository) Get(code string) (*domain.Room, bool) {
	args := m.Called(code)
	room, _ := args.Get(0).(*domain.Room)
	return room, args.Bool(1)
}

func (m *RoomRepository) Delete(code string) {
	m.Called(code)
}

func (m *RoomRepository) List() []*domain.Room {
	args := m.Called()
	rooms, _ := args.Get(0).([]*domain.Room)
	return rooms
}

func (m *RoomRepository) Count() int {
	args := m.Called()
	return args.Int(0)
}
