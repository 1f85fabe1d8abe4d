package worker

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/sujal-2301/SyncCanvasLab/internal/tasks"
)

// LocalScheduler 在没有配置 Redis 时代替 asynq：用 ticker 周期性地
// 构造同样的任务并直接交给 RoomReapHandler 处理。
type LocalScheduler struct {
	handler  *RoomReapHandler
	interval time.Duration
	maxIdle  time.Duration
	log      *logrus.Entry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLocalScheduler 创建进程内调度器
func NewLocalScheduler(handler *RoomReapHandler, interval, maxIdle time.Duration, logger *logrus.Logger) *LocalScheduler {
	return &LocalScheduler{
		handler:  handler,
		interval: interval,
		maxIdle:  maxIdle,
		log:      logger.WithField("component", "local_scheduler"),
	}
}

// Start 启动后台 ticker
func (s *LocalScheduler) Start() error {
	payload, err := tasks.NewRoomReapTask(s.maxIdle)
	if err != nil {
		return err
	}
	task := asynq.NewTask(tasks.TypeRoomReapIdle, payload)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.handler.ProcessTask(ctx, task); err != nil {
					s.log.WithError(err).Warn("Room reap tick failed")
				}
			}
		}
	}()
	s.log.WithField("interval", s.interval.String()).Info("Local room reaper started")
	return nil
}

// Shutdown 停止 ticker 并等待 goroutine 退出
func (s *LocalScheduler) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("Local room reaper stopped")
}
