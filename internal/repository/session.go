package repository

import (
	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
)

// SessionRepository 维护连接 ID 到当前房间的反向索引。
// 一个连接同一时间只能在一个房间里。
type SessionRepository interface {
	// Bind 记录连接所在的房间，覆盖之前的记录。
	Bind(connID, roomCode string, participant domain.Participant)

	// Lookup 查找连接当前的会话。
	Lookup(connID string) (domain.Session, bool)

	// Unbind 删除连接的会话，幂等。
	Unbind(connID string)

	// Count 返回当前绑定的连接数。
	Count() int
}
