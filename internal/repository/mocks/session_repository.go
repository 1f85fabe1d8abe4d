package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
)

// SessionRepository 是 repository.SessionRepository 的 testify mock。
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Bind(connID, roomCode string, participant domain.Participant) {
	m.Called(connID, roomCode, participant)
}

func (m *SessionRepository) Lookup(connID string) (domain.Session, bool) {
	args := m.Called(connID)
	session, _ := args.Get(0).(domain.Session)
	return session, args.Bool(1)
}

func (m *SessionRepository) Unbind(connID string) {
	m.Called(connID)
}

func (m *SessionRepository) Count() int {
	args := m.Called()
	return args.Int(0)
}
