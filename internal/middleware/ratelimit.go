package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Limiter 判断某个 key（通常是客户端 IP）的请求是否放行
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter 用 Redis 计数器做固定窗口限流，多实例部署时共享计数。
type RedisLimiter struct {
	client      *redis.Client
	prefix      string
	maxRequests int
	window      time.Duration
}

// NewRedisLimiter 创建基于 Redis 的限流器
func NewRedisLimiter(client *redis.Client, prefix string, maxRequests int, window time.Duration) *RedisLimiter {
	if client == nil {
		panic("Redis client cannot be nil for RedisLimiter")
	}
	mustPositive(maxRequests, window)
	return &RedisLimiter{client: client, prefix: prefix, maxRequests: maxRequests, window: window}
}

// Allow 用 Pipeline 执行 INCR 和 EXPIRE，计数超过上限即拒绝。
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + "ratelimit:" + key

	pipe := l.client.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit pipeline: %w", err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr result: %w", err)
	}
	return count <= int64(l.maxRequests), nil
}

// MemoryLimiter 在进程内为每个 key 维护一个令牌桶。
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastGC   time.Time
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter 创建进程内限流器：每个窗口最多 maxRequests 个请求，允许一次性突发到上限。
func NewMemoryLimiter(maxRequests int, window time.Duration) *MemoryLimiter {
	mustPositive(maxRequests, window)
	return &MemoryLimiter{
		limiters: make(map[string]*visitor),
		limit:    rate.Limit(float64(maxRequests) / window.Seconds()),
		burst:    maxRequests,
		idleTTL:  10 * window,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	v, ok := l.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1), nil
}

// prune 定期清理长时间没有请求的 key，调用方持有锁
func (l *MemoryLimiter) prune(now time.Time) {
	if now.Sub(l.lastGC) < l.idleTTL {
		return
	}
	for key, v := range l.limiters {
		if now.Sub(v.lastSeen) > l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastGC = now
}

func mustPositive(maxRequests int, window time.Duration) {
	if maxRequests <= 0 {
		panic("maxRequests must be positive for rate limiter")
	}
	if window <= 0 {
		panic("window duration must be positive for rate limiter")
	}
}

// RateLimit 返回一个 Gin 中间件，用于基于客户端 IP 地址进行速率限制。
func RateLimit(limiter Limiter) gin.HandlerFunc {
	if limiter == nil {
		panic("Limiter cannot be nil for RateLimit middleware")
	}
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logrus.WithError(err).Error("RateLimit: limiter failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Rate limiting error"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "Too many requests"})
			return
		}
		c.Next()
	}
}
