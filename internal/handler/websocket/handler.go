package websocket

import (
	"net/http"

	"github.com/sujal-2301/SyncCanvasLab/internal/hub"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Options 控制升级器的缓冲区和单帧大小
type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	// CheckOrigin 为 nil 时允许所有来源
	CheckOrigin func(origin string) bool
}

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册。
// 房间在升级之后通过 join-room 事件加入，而不是在 URL 中指定。
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	hub            *hub.Hub
	maxMessageSize int64
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub, opts Options) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// 非浏览器客户端不带 Origin
			if origin == "" || opts.CheckOrigin == nil {
				return true
			}
			allowed := opts.CheckOrigin(origin)
			if !allowed {
				logrus.WithField("origin", origin).Warn("WS Handler: Origin rejected")
			}
			return allowed
		},
	}

	return &WebSocketHandler{
		upgrader:       upgrader,
		hub:            h,
		maxMessageSize: opts.MaxMessageSize,
	}
}

// HandleConnection 处理 GET /ws
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	connID := uuid.NewString()
	logCtx := logrus.WithFields(logrus.Fields{
		"conn_id":   connID,
		"client_ip": c.ClientIP(),
	})

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回了 HTTP 错误
		logCtx.WithError(err).Warn("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, connID, h.maxMessageSize)
	if !h.hub.QueueMessage(hub.HubMessage{Type: hub.MessageRegister, Client: client}) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	go client.Run()
	logCtx.Debug("WS Handler: Client read/write pumps started")
}
