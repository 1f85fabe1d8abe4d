package tasks

import (
	"encoding/json"
	"fmt"
	"time"
)

// 定义任务类型常量
const (
	TypeRoomReapIdle = "room:reap-idle" // 清理从未被加入的空闲房间
)

// RoomReapPayload 定义了空闲房间清理任务的数据结构
type RoomReapPayload struct {
	MaxIdleSeconds int `json:"max_idle_seconds"`
}

// MaxIdle 返回空闲阈值
func (p RoomReapPayload) MaxIdle() time.Duration {
	return time.Duration(p.MaxIdleSeconds) * time.Second
}

// NewRoomReapTask 创建一个新的空闲房间清理任务负载
func NewRoomReapTask(maxIdle time.Duration) ([]byte, error) {
	payload := RoomReapPayload{MaxIdleSeconds: int(maxIdle / time.Second)}
	return json.Marshal(payload)
}

// ParseRoomReapPayload 解析并校验任务负载
func ParseRoomReapPayload(data []byte) (RoomReapPayload, error) {
	var payload RoomReapPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("unmarshal room reap payload: %w", err)
	}
	if payload.MaxIdleSeconds <= 0 {
		return payload, fmt.Errorf("max_idle_seconds must be positive, got %d", payload.MaxIdleSeconds)
	}
	return payload, nil
}
