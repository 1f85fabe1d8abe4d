package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
// 连接 ID 在升级时分配，同时也是它在房间内的参与者 ID。
type Client struct {
	id             string
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte // 出站消息缓冲队列，只由 Hub 关闭
	maxMessageSize int64
}

// NewClient 创建一个新的 Client 实例。maxMessageSize <= 0 时使用默认值。
func NewClient(hub *Hub, conn *websocket.Conn, id string, maxMessageSize int64) *Client {
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}
	return &Client{
		id:             id,
		hub:            hub,
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		maxMessageSize: maxMessageSize,
	}
}

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump 将消息从 WebSocket 连接泵送到 Hub 的事件队列。
// 同一连接的事件按读取顺序入队，退出时请求 Hub 注销。
func (c *Client) ReadPump() {
	logCtx := logrus.WithField("conn_id", c.id)
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		logCtx.Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait)) // 收到 Pong 后重置读取超时
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			return
		}

		if messageType != websocket.TextMessage {
			logCtx.Debugf("Received non-text message type: %d", messageType)
			continue
		}
		logCtx.Debugf("Received raw message (size: %d)", len(message))

		if !c.hub.enqueueEvent(c, message) {
			logCtx.Info("Hub stopped, closing read loop")
			return
		}
	}
}

// WritePump 将消息从 send 通道泵送到 WebSocket 连接，并定期发送 Ping。
func (c *Client) WritePump() {
	logCtx := logrus.WithField("conn_id", c.id)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logCtx.Debug("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了 send 通道
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logCtx.WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logCtx.WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}

func (c *Client) ID() string { return c.id }

// CloseConn 在客户端未能注册到 Hub 时关闭底层连接
func (c *Client) CloseConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}
