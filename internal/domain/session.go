package domain

import "time"

// Session 是连接到其当前房间的反向索引。
// 断线时客户端无法告知自己在哪个房间，只能通过它查找。
type Session struct {
	ConnID      string
	RoomCode    string
	Participant Participant // 加入时的快照，光标等实时状态以房间内的记录为准
	BoundAt     time.Time
}
