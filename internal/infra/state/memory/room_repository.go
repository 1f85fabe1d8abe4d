package memorystate

import (
	"sort"
	"sync"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
	"github.com/sujal-2301/SyncCanvasLab/internal/repository"
)

// RoomRepository 是 repository.RoomRepository 的内存实现。
// 房间状态只保存在进程内存中，进程重启即丢失。
type RoomRepository struct {
	rooms map[string]*domain.Room
	mu    sync.RWMutex
}

// NewRoomRepository 创建空的内存房间注册表
func NewRoomRepository() *RoomRepository {
	return &RoomRepository{
		rooms: make(map[string]*domain.Room),
	}
}

// Create 在同一把锁内完成存在性检查和插入，避免两个并发创建拿到同一个房间码。
func (r *RoomRepository) Create(room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rooms[room.Code()]; exists {
		return repository.ErrDuplicateEntry
	}
	r.rooms[room.Code()] = room
	return nil
}

func (r *RoomRepository) Get(code string) (*domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, exists := r.rooms[code]
	return room, exists
}

func (r *RoomRepository) Delete(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
}

// List 按创建时间排序返回房间列表的副本
func (r *RoomRepository) List() []*domain.Room {
	r.mu.RLock()
	list := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		list = append(list, room)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt().Before(list[j].CreatedAt())
	})
	return list
}

func (r *RoomRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
