package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/sujal-2301/SyncCanvasLab/internal/tasks"
)

// WorkerServer 封装了 Asynq Worker Server 和周期任务调度器的启动和关闭逻辑
type WorkerServer struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	log       *logrus.Entry

	reapHandler  *RoomReapHandler
	reapInterval time.Duration
	maxIdle      time.Duration
}

// NewWorkerServer 创建一个新的 WorkerServer 实例
func NewWorkerServer(redisOpt asynq.RedisClientOpt, reapHandler *RoomReapHandler, reapInterval, maxIdle time.Duration, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
			Logger: logEntry,
		},
	)
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: logEntry})

	return &WorkerServer{
		server:       server,
		scheduler:    scheduler,
		log:          logEntry,
		reapHandler:  reapHandler,
		reapInterval: reapInterval,
		maxIdle:      maxIdle,
	}
}

// Start 注册处理器和周期任务，然后在后台运行 server 和 scheduler。
func (ws *WorkerServer) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRoomReapIdle, ws.reapHandler.ProcessTask)

	payload, err := tasks.NewRoomReapTask(ws.maxIdle)
	if err != nil {
		return fmt.Errorf("create room reap task payload: %w", err)
	}
	// 任务在一个周期内没被执行就不再需要
	task := asynq.NewTask(tasks.TypeRoomReapIdle, payload, asynq.MaxRetry(1), asynq.Timeout(ws.reapInterval))
	schedule := fmt.Sprintf("@every %s", ws.reapInterval)
	entryID, err := ws.scheduler.Register(schedule, task, asynq.Queue("default"))
	if err != nil {
		return fmt.Errorf("register periodic room reap task: %w", err)
	}
	ws.log.Infof("Periodic room reap task registered with schedule '%s' (EntryID: %s)", schedule, entryID)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Start(mux); err != nil {
		return fmt.Errorf("start worker server: %w", err)
	}
	if err := ws.scheduler.Start(); err != nil {
		ws.server.Shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}
	ws.log.Info("Asynq scheduler started")
	return nil
}

// Shutdown 优雅地关闭 scheduler 和 Worker Server
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.scheduler.Shutdown()
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
