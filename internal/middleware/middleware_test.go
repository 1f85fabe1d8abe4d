package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sujal-2301/SyncCanvasLab/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestOriginMatcher(t *testing.T) {
	m, err := middleware.NewOriginMatcher([]string{
		"http://localhost:3000",
		`/^https://[a-z0-9-]+\.vercel\.app$/`,
		"https://example.com/",
	})
	require.NoError(t, err)

	assert.True(t, m.Allowed("http://localhost:3000"))
	assert.True(t, m.Allowed("https://sync-canvas-lab.vercel.app"))
	assert.True(t, m.Allowed("https://example.com"), "末尾斜杠被忽略")
	assert.False(t, m.Allowed("http://localhost:4000"))
	assert.False(t, m.Allowed("https://evil.vercel.app.attacker.com"))

	all, err := middleware.NewOriginMatcher([]string{"*"})
	require.NoError(t, err)
	assert.True(t, all.Allowed("http://anything"))

	_, err = middleware.NewOriginMatcher([]string{"/[unclosed/"})
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	m, err := middleware.NewOriginMatcher([]string{"http://localhost:3000"})
	require.NoError(t, err)
	r := newEngine(middleware.CORS(m))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), "未允许的来源不回写 CORS 头")

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code, "预检请求直接返回 204")
}

func TestMemoryLimiter(t *testing.T) {
	limiter := middleware.NewMemoryLimiter(3, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _ := limiter.Allow(ctx, "1.2.3.4")
	assert.False(t, ok, "超过突发上限应被拒绝")

	ok, _ = limiter.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "不同 key 互不影响")
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := middleware.NewRedisLimiter(client, "scl:", 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists("scl:ratelimit:1.2.3.4"))
	assert.Greater(t, mr.TTL("scl:ratelimit:1.2.3.4"), time.Duration(0), "计数器必须带过期时间")

	// 窗口过期后重新计数
	mr.FastForward(2 * time.Minute)
	ok, err = limiter.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiter_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := newEngine(middleware.RateLimit(middleware.NewRedisLimiter(client, "", 1, time.Second)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(middleware.RateLimit(middleware.NewMemoryLimiter(1, time.Minute)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Too many requests"}`, w.Body.String())
}

func TestLogger(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	r := newEngine(middleware.Logger(log))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x?y=1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
