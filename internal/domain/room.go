package domain

import (
	"encoding/json"
	"sync"
	"time"
)

// DefaultRoomName 是未提供名称时使用的房间名。
const DefaultRoomName = "Untitled Room"

// Room 表示一个协作白板房间。
// 成员、历史记录和视口都由房间自己的读写锁保护，
// 这样 HTTP 查询可以在中继调度 goroutine 之外安全读取。
type Room struct {
	mu sync.RWMutex

	code      string
	name      string
	createdAt time.Time

	members map[string]*Participant
	order   []string // 加入顺序，仅用于展示

	history  []json.RawMessage
	viewport Viewport
}

// NewRoom 创建一个空房间：没有成员，没有历史，视口为单位矩阵。
func NewRoom(code, name string, createdAt time.Time) *Room {
	if name == "" {
		name = DefaultRoomName
	}
	return &Room{
		code:      code,
		name:      name,
		createdAt: createdAt,
		members:   make(map[string]*Participant),
		viewport:  IdentityViewport(),
	}
}

func (r *Room) Code() string         { return r.code }
func (r *Room) Name() string         { return r.name }
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// AddMember 添加成员；同一连接重复加入时覆盖原记录，不会重复计数。
func (r *Room) AddMember(p Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.members[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	member := p
	r.members[p.ID] = &member
}

// RemoveMember 移除成员，返回被移除的记录和剩余成员数。
func (r *Room) RemoveMember(id string) (Participant, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, exists := r.members[id]
	if !exists {
		return Participant{}, len(r.members), false
	}
	delete(r.members, id)
	for i, memberID := range r.order {
		if memberID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return *p, len(r.members), true
}

// Member 返回成员记录的副本。
func (r *Room) Member(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, exists := r.members[id]
	if !exists {
		return Participant{}, false
	}
	return *p, true
}

func (r *Room) HasMember(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.members[id]
	return exists
}

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Participants 按加入顺序返回所有成员的副本。
func (r *Room) Participants() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, *r.members[id])
	}
	return list
}

// PeerIDs 返回除 exclude 以外所有成员的连接 ID，用于扇出。
func (r *Room) PeerIDs(exclude string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peers := make([]string, 0, len(r.order))
	for _, id := range r.order {
		if id != exclude {
			peers = append(peers, id)
		}
	}
	return peers
}

// SetCursor 更新成员光标并返回更新后的记录。
func (r *Room) SetCursor(id string, cursor Cursor) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, exists := r.members[id]
	if !exists {
		return Participant{}, false
	}
	p.Cursor = cursor
	return *p, true
}

// HideCursor 只把光标标记为不可见，保留最后位置。
func (r *Room) HideCursor(id string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, exists := r.members[id]
	if !exists {
		return Participant{}, false
	}
	p.Cursor.Visible = false
	return *p, true
}

// AppendHistory 追加一条绘图事件。limit > 0 时丢弃最旧的记录，返回丢弃条数。
func (r *Room) AppendHistory(entry json.RawMessage, limit int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, entry)
	if limit <= 0 || len(r.history) <= limit {
		return 0
	}
	dropped := len(r.history) - limit
	// 复制到新切片，释放旧底层数组
	kept := make([]json.RawMessage, limit)
	copy(kept, r.history[dropped:])
	r.history = kept
	return dropped
}

// ResetHistory 清空历史（清屏），返回被清除的条数。
func (r *Room) ResetHistory() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.history)
	r.history = nil
	return n
}

// History 返回历史记录的副本，顺序与追加顺序一致。
func (r *Room) History() []json.RawMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]json.RawMessage, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Room) HistoryLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.history)
}

func (r *Room) Viewport() Viewport {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.viewport
}

// SetViewport 整体替换视口，后写者胜出。
func (r *Room) SetViewport(v Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewport = v
}
