package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatsProvider 提供房间数和连接数，由 Hub 实现
type StatsProvider interface {
	Stats() (rooms, clients int)
}

// StatsHandler 暴露运行时统计信息
type StatsHandler struct {
	provider StatsProvider
}

func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// Stats 处理 GET /api/stats
func (h *StatsHandler) Stats(c *gin.Context) {
	rooms, clients := h.provider.Stats()
	c.JSON(http.StatusOK, gin.H{"rooms": rooms, "clients": clients})
}

// Ping 处理 GET /ping
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
