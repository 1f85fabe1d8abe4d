package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/sujal-2301/SyncCanvasLab/internal/tasks"
)

// ErrReapNotQueued 表示 Hub 队列已满或已停止，任务稍后重试
var ErrReapNotQueued = errors.New("reap request was not accepted by the hub")

// Reaper 把清理请求交给中继调度循环，由 Hub 实现
type Reaper interface {
	RequestReap(maxIdle time.Duration) bool
}

// RoomReapHandler 处理空闲房间清理任务
type RoomReapHandler struct {
	reaper Reaper
}

// NewRoomReapHandler 创建 Handler 实例
func NewRoomReapHandler(reaper Reaper) *RoomReapHandler {
	if reaper == nil {
		panic("Reaper cannot be nil for RoomReapHandler")
	}
	return &RoomReapHandler{reaper: reaper}
}

// ProcessTask 实现 asynq.Handler 接口。
// 清理本身在 Hub 的 goroutine 中执行，这里只负责投递。
func (h *RoomReapHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
	})

	payload, err := tasks.ParseRoomReapPayload(t.Payload())
	if err != nil {
		logCtx.WithError(err).Error("Invalid room reap payload")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if !h.reaper.RequestReap(payload.MaxIdle()) {
		logCtx.Warn("Hub did not accept reap request")
		return ErrReapNotQueued
	}
	logCtx.WithField("max_idle", payload.MaxIdle().String()).Debug("Room reap request queued")
	return nil
}
