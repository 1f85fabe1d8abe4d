package repository

import (
	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
)

// RoomRepository 定义了房间注册表：房间是否存在以及房间内容的唯一来源。
// 查找不会返回错误，房间不存在是正常结果。
type RoomRepository interface {
	// Create 注册房间，注册后立即可查。
	// 房间码已存在时返回 ErrDuplicateEntry，调用方应换一个房间码重试。
	Create(room *domain.Room) error

	// Get 按房间码精确查找，调用方负责先规范化大小写。
	Get(code string) (*domain.Room, bool)

	// Delete 删除房间，幂等。
	Delete(code string)

	// List 返回当前所有房间，主要用于统计和空闲房间清理。
	List() []*domain.Room

	// Count 返回当前房间数。
	Count() int
}
