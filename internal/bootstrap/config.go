package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// defaultCORSOrigins 允许本机任意端口的开发前端
const defaultCORSOrigins = `/^http://localhost:\d+$/`

// Config 结构体用于存储从环境变量或 .env 文件加载的配置
type Config struct {
	ServerPort string
	AppEnv     string // development / production
	LogLevel   string

	CORSAllowedOrigins []string

	RateLimitMax    int
	RateLimitWindow time.Duration

	// RedisAddr 为空时限流和周期任务都在进程内完成
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	HistoryLimit int // 0 表示不限制
	IdleRoomTTL  time.Duration
	ReapInterval time.Duration

	WSReadBuffer      int
	WSWriteBuffer     int
	WSMaxMessageBytes int64
}

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "3001"),
		AppEnv:             getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		RateLimitMax:       getEnvAsInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow:    getEnvAsSeconds("RATE_LIMIT_WINDOW_SECONDS", 1),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		KeyPrefix:          getEnv("REDIS_KEY_PREFIX", "scl:"),
		HistoryLimit:       getEnvAsInt("HISTORY_LIMIT", 0),
		IdleRoomTTL:        getEnvAsSeconds("IDLE_ROOM_TTL_SECONDS", 600),
		ReapInterval:       getEnvAsSeconds("REAP_INTERVAL_SECONDS", 60),
		WSReadBuffer:       getEnvAsInt("WS_READ_BUFFER", 1024),
		WSWriteBuffer:      getEnvAsInt("WS_WRITE_BUFFER", 1024),
		WSMaxMessageBytes:  int64(getEnvAsInt("WS_MAX_MESSAGE_BYTES", 1<<20)),
	}

	if cfg.ServerPort == "" {
		return nil, fmt.Errorf("SERVER_PORT must not be empty")
	}
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	if cfg.HistoryLimit < 0 {
		return nil, fmt.Errorf("HISTORY_LIMIT must not be negative, got %d", cfg.HistoryLimit)
	}
	if cfg.IdleRoomTTL <= 0 || cfg.ReapInterval <= 0 {
		return nil, fmt.Errorf("IDLE_ROOM_TTL_SECONDS and REAP_INTERVAL_SECONDS must be positive")
	}
	if cfg.WSMaxMessageBytes <= 0 {
		return nil, fmt.Errorf("WS_MAX_MESSAGE_BYTES must be positive")
	}

	// 验证日志级别
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// IsProduction 判断是否为生产环境
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return intVal
		}
		logrus.WithFields(logrus.Fields{"key": key, "value": value}).WithError(err).Warn("Invalid integer environment variable, using default")
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}

func getEnvAsSlice(key string, fallback string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
