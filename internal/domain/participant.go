package domain

import "time"

// Cursor 记录参与者最后已知的指针位置。
type Cursor struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Visible bool    `json:"visible"` // 第一次移动之前为 false
}

// Participant 表示某个连接在一个房间内的成员身份。
// ID 即传输层分配的连接 ID，连接存活期间不会复用。
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	Cursor   Cursor    `json:"cursor"`
	JoinedAt time.Time `json:"joinedAt"`
}
