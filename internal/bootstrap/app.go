package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	httpHandler "github.com/sujal-2301/SyncCanvasLab/internal/handler/http"
	wsHandler "github.com/sujal-2301/SyncCanvasLab/internal/handler/websocket"
	"github.com/sujal-2301/SyncCanvasLab/internal/hub"
	"github.com/sujal-2301/SyncCanvasLab/internal/infra/setup"
	memorystate "github.com/sujal-2301/SyncCanvasLab/internal/infra/state/memory"
	"github.com/sujal-2301/SyncCanvasLab/internal/middleware"
	"github.com/sujal-2301/SyncCanvasLab/internal/service"
	"github.com/sujal-2301/SyncCanvasLab/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// backgroundRunner 是周期任务的运行方式：有 Redis 时是 asynq，否则是进程内 ticker
type backgroundRunner interface {
	Start() error
	Shutdown()
}

// App 结构体包含应用的所有组件和配置
type App struct {
	Config      *Config
	Log         *logrus.Logger
	RedisClient *redis.Client // 未配置 Redis 时为 nil
	Hub         *hub.Hub
	Router      *gin.Engine
	HttpServer  *http.Server

	background backgroundRunner
}

// NewApp 根据配置创建并初始化应用的所有组件
func NewApp(cfg *Config) (*App, error) {
	// 1. 初始化 Logger，包级别的 logrus 调用共享同一配置
	log := logrus.StandardLogger()
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel) // cfg.LogLevel 已被 LoadConfig 验证
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	log.Infof("Logger initialized (Level: %s)", logLevel.String())

	// 2. 可选的 Redis
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client, err := setup.InitRedis(context.Background(), setup.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init Redis: %w", err)
		}
		redisClient = client
	} else {
		log.Info("REDIS_ADDR not set, using in-process rate limiting and room reaper")
	}

	// 3. Repositories 和 Services
	roomRepo := memorystate.NewRoomRepository()
	sessionRepo := memorystate.NewSessionRepository()
	roomService := service.NewRoomService(roomRepo)
	collabService := service.NewCollaborationService(roomRepo, sessionRepo, cfg.HistoryLimit)
	log.Info("Services initialized")

	// 4. Hub
	hubInstance := hub.NewHub(collabService)

	// 5. 周期任务
	reapHandler := worker.NewRoomReapHandler(hubInstance)
	var background backgroundRunner
	if redisClient != nil {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		background = worker.NewWorkerServer(redisOpt, reapHandler, cfg.ReapInterval, cfg.IdleRoomTTL, log)
	} else {
		background = worker.NewLocalScheduler(reapHandler, cfg.ReapInterval, cfg.IdleRoomTTL, log)
	}

	// 6. 中间件依赖
	originMatcher, err := middleware.NewOriginMatcher(cfg.CORSAllowedOrigins)
	if err != nil {
		closeRedis(redisClient, log)
		return nil, fmt.Errorf("invalid CORS_ALLOWED_ORIGINS: %w", err)
	}
	var limiter middleware.Limiter
	if redisClient != nil {
		limiter = middleware.NewRedisLimiter(redisClient, cfg.KeyPrefix, cfg.RateLimitMax, cfg.RateLimitWindow)
	} else {
		limiter = middleware.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	// 7. Handlers 和路由
	roomHandler := httpHandler.NewRoomHandler(roomService)
	statsHandler := httpHandler.NewStatsHandler(hubInstance)
	wsH := wsHandler.NewWebSocketHandler(hubInstance, wsHandler.Options{
		ReadBufferSize:  cfg.WSReadBuffer,
		WriteBufferSize: cfg.WSWriteBuffer,
		MaxMessageSize:  cfg.WSMaxMessageBytes,
		CheckOrigin:     originMatcher.Allowed,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(log))
	router.Use(middleware.CORS(originMatcher))

	api := router.Group("/api")
	api.Use(middleware.RateLimit(limiter))
	{
		api.POST("/rooms", roomHandler.CreateRoom)
		api.GET("/rooms/:code/validate", roomHandler.ValidateRoom)
		api.GET("/rooms/:code", roomHandler.GetRoom)
		api.GET("/stats", statsHandler.Stats)
	}
	router.GET("/ws", wsH.HandleConnection)
	router.GET("/ping", httpHandler.Ping)
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Config:      cfg,
		Log:         log,
		RedisClient: redisClient,
		Hub:         hubInstance,
		Router:      router,
		HttpServer:  httpServer,
		background:  background,
	}, nil
}

// Start 启动 Hub、周期任务和 HTTP 服务器
func (a *App) Start() error {
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	if err := a.background.Start(); err != nil {
		a.Hub.Stop()
		return fmt.Errorf("failed to start background tasks: %w", err)
	}

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
	return nil
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	a.background.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// WebSocket 连接已被劫持，不受 HttpServer.Shutdown 管理，由 Hub 关闭
	a.Hub.Stop()
	if err := a.Hub.Wait(ctx); err != nil {
		a.Log.WithError(err).Warn("Hub did not stop in time")
	}

	closeRedis(a.RedisClient, a.Log)
	a.Log.Info("Application shutdown complete.")
}

func closeRedis(client *redis.Client, log *logrus.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Errorf("Error closing Redis connection: %v", err)
	} else {
		log.Info("Redis connection closed.")
	}
}
