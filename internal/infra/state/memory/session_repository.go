package memorystate

import (
	"sync"
	"time"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
)

// SessionRepository 是 repository.SessionRepository 的内存实现
type SessionRepository struct {
	sessions map[string]domain.Session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewSessionRepository 创建空的会话注册表
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]domain.Session),
		now:      time.Now,
	}
}

func (r *SessionRepository) Bind(connID, roomCode string, participant domain.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = domain.Session{
		ConnID:      connID,
		RoomCode:    roomCode,
		Participant: participant,
		BoundAt:     r.now(),
	}
}

func (r *SessionRepository) Lookup(connID string) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, exists := r.sessions[connID]
	return session, exists
}

func (r *SessionRepository) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connID)
}

func (r *SessionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
