package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sujal-2301/SyncCanvasLab/internal/domain"
	"github.com/sujal-2301/SyncCanvasLab/internal/dto"
	"github.com/sujal-2301/SyncCanvasLab/internal/service"

	"github.com/sirupsen/logrus"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// 默认的单帧大小上限，绘图事件可能较大
	defaultMaxMessageSize = 1 << 20

	sendBufferSize    = 256
	messageBufferSize = 1024
)

// HubMessage 的类型
const (
	MessageRegister   = "register"
	MessageUnregister = "unregister"
	MessageEvent      = "event"
	MessageReap       = "reap"
)

// HubMessage 定义了在 Hub 内部通道传递的消息
type HubMessage struct {
	Type    string        // register / unregister / event / reap
	Client  *Client       // register、unregister、event 使用
	RawData []byte        // 仅 event：原始 WebSocket 帧
	MaxIdle time.Duration // 仅 reap
}

// Hub 维护活跃连接，并在单个 goroutine 中按顺序处理所有中继事件。
// 房间和会话的每一次修改都发生在 Run 所在的 goroutine 上。
type Hub struct {
	messageChan chan HubMessage

	// 连接 ID -> Client；只在 Run 中写入，Stats 从其他 goroutine 读取
	clients   map[string]*Client
	clientsMu sync.RWMutex

	collabService *service.CollaborationService

	done     chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(collabService *service.CollaborationService) *Hub {
	if collabService == nil {
		panic("CollaborationService cannot be nil for Hub")
	}
	return &Hub{
		messageChan:   make(chan HubMessage, messageBufferSize),
		clients:       make(map[string]*Client),
		collabService: collabService,
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
}

// Run 启动 Hub 的主事件处理循环，应该在单独的 goroutine 中运行。
// 调用 Stop 后返回。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")
	defer close(h.stopped)

	for {
		select {
		case msg := <-h.messageChan:
			h.handle(msg)
		case <-h.done:
			h.closeAllClients()
			log.Info("Hub is shutting down...")
			return
		}
	}
}

// Stop 停止事件循环并关闭所有客户端的发送通道，可重复调用。
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Wait 阻塞直到 Run 返回或 ctx 结束。
func (h *Hub) Wait(ctx context.Context) error {
	select {
	case <-h.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) handle(msg HubMessage) {
	switch msg.Type {
	case MessageRegister:
		h.registerClient(msg.Client)
	case MessageUnregister:
		h.unregisterClient(msg.Client)
	case MessageEvent:
		h.handleClientEvent(msg.Client, msg.RawData)
	case MessageReap:
		h.collabService.ReapIdleRooms(context.Background(), msg.MaxIdle)
	default:
		logrus.WithField("component", "hub").Warnf("Hub: Received unknown message type: %s", msg.Type)
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	h.clientsMu.Lock()
	h.clients[client.ID()] = client
	total := len(h.clients)
	h.clientsMu.Unlock()

	logrus.WithFields(logrus.Fields{
		"conn_id":       client.ID(),
		"total_clients": total,
	}).Info("Client registered to Hub")
}

// unregisterClient 走与 leave-room 相同的清理路径，然后关闭发送通道。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithField("conn_id", client.ID())

	h.clientsMu.Lock()
	_, exists := h.clients[client.ID()]
	delete(h.clients, client.ID())
	h.clientsMu.Unlock()
	if !exists {
		logCtx.Warn("Client not found during unregister")
		return
	}

	if left, ok := h.collabService.Disconnect(context.Background(), client.ID()); ok {
		h.broadcastUserLeft(left)
	}
	close(client.send)
	logCtx.Info("Client unregistered from Hub")
}

func (h *Hub) closeAllClients() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for id, client := range h.clients {
		close(client.send)
		delete(h.clients, id)
	}
}

// handleClientEvent 解析一帧并分发给对应的处理函数。
func (h *Hub) handleClientEvent(client *Client, raw []byte) {
	if client == nil {
		return
	}
	h.clientsMu.RLock()
	_, registered := h.clients[client.ID()]
	h.clientsMu.RUnlock()
	if !registered {
		// 连接已注销，残留的帧直接丢弃
		return
	}

	logCtx := logrus.WithField("conn_id", client.ID())
	event, ack, err := dto.DecodeEvent(raw)
	if err != nil {
		logCtx.WithError(err).Warn("Rejected client frame")
		h.reject(client, ack, err.Error())
		return
	}
	logCtx.WithField("event", event.EventName()).Debug("Processing client event")

	ctx := context.Background()
	switch e := event.(type) {
	case dto.JoinRoom:
		h.handleJoin(ctx, client, ack, e)
	case dto.Drawing:
		h.handleDrawing(ctx, client, ack, e)
	case dto.ViewportUpdate:
		h.handleViewport(ctx, client, ack, e)
	case dto.CursorMove:
		res, err := h.collabService.MoveCursor(ctx, client.ID(), e.X, e.Y)
		h.finishCursor(client, ack, res, err)
	case dto.CursorLeave:
		res, err := h.collabService.HideCursor(ctx, client.ID())
		h.finishCursor(client, ack, res, err)
	case dto.LeaveRoom:
		h.handleLeave(ctx, client, ack, e)
	case dto.Heartbeat:
		h.sendAck(client, ack, nil)
		h.sendTo(client, dto.EventHeartbeatAck, struct{}{})
	}
}

func (h *Hub) handleJoin(ctx context.Context, client *Client, ack *int64, e dto.JoinRoom) {
	result, err := h.collabService.Join(ctx, client.ID(), e.RoomCode, e.Username)
	if err != nil {
		h.sendAck(client, ack, err)
		if ack == nil {
			h.sendTo(client, dto.EventError, dto.ErrorMessage{Message: service.PublicMessage(err)})
		}
		return
	}
	if result.Previous != nil {
		h.broadcastUserLeft(result.Previous)
	}

	h.sendAck(client, ack, nil)
	h.sendTo(client, dto.EventCanvasState, dto.NewCanvasState(result.History, result.Viewport))
	h.sendTo(client, dto.EventRoomUsers, participantsOrEmpty(result.Participants))
	h.sendTo(client, dto.EventRoomJoined, dto.RoomJoined{
		Room: dto.RoomSummary{
			ID:        result.Room.Code(),
			Name:      result.Room.Name(),
			CreatedAt: result.Room.CreatedAt(),
		},
		User: dto.NewUserInfo(result.Participant),
	})
	h.broadcast(result.Peers, dto.EventUserJoined, result.Participant)
}

func (h *Hub) handleDrawing(ctx context.Context, client *Client, ack *int64, e dto.Drawing) {
	fanout, err := h.collabService.RecordDrawing(ctx, client.ID(), e.RoomID, e.Payload, e.IsClear())
	if err != nil {
		h.dropOrphan(client, ack, e.EventName(), err)
		return
	}
	h.sendAck(client, ack, nil)
	h.broadcast(fanout.Peers, dto.EventDrawing, e.Payload)
}

func (h *Hub) handleViewport(ctx context.Context, client *Client, ack *int64, e dto.ViewportUpdate) {
	fanout, err := h.collabService.UpdateViewport(ctx, client.ID(), e.RoomID, e.Viewport)
	if err != nil {
		h.dropOrphan(client, ack, e.EventName(), err)
		return
	}
	h.sendAck(client, ack, nil)
	h.broadcast(fanout.Peers, dto.EventViewportUpdated, e.Viewport)
}

func (h *Hub) finishCursor(client *Client, ack *int64, res *service.CursorResult, err error) {
	if err != nil {
		h.dropOrphan(client, ack, "cursor", err)
		return
	}
	h.sendAck(client, ack, nil)
	h.broadcast(res.Peers, dto.EventCursorUpdate, dto.NewCursorUpdate(res.Participant))
}

func (h *Hub) handleLeave(ctx context.Context, client *Client, ack *int64, e dto.LeaveRoom) {
	left, err := h.collabService.Leave(ctx, client.ID(), e.RoomID)
	if err != nil {
		h.dropOrphan(client, ack, e.EventName(), err)
		return
	}
	h.sendAck(client, ack, nil)
	h.broadcastUserLeft(left)
}

func (h *Hub) broadcastUserLeft(left *service.LeaveResult) {
	h.broadcast(left.Peers, dto.EventUserLeft, dto.UserLeft{
		UserID: left.Participant.ID,
		Name:   left.Participant.Name,
	})
}

// dropOrphan 处理引用不存在房间或无会话的事件：不改状态，不广播。
// 只有带 ack 的请求会收到失败应答。
func (h *Hub) dropOrphan(client *Client, ack *int64, event string, err error) {
	logCtx := logrus.WithFields(logrus.Fields{"conn_id": client.ID(), "event": event})
	if errors.Is(err, service.ErrRoomNotFound) || errors.Is(err, service.ErrNotInRoom) || errors.Is(err, service.ErrNoSession) {
		logCtx.WithError(err).Debug("Ignoring event")
	} else {
		logCtx.WithError(err).Warn("Event failed")
	}
	h.sendAck(client, ack, err)
}

// reject 回复无法解析的帧：有 ack 时回失败应答，否则发 error 帧。
func (h *Hub) reject(client *Client, ack *int64, message string) {
	if ack != nil {
		h.sendAckPayload(client, *ack, dto.AckResponse{Success: false, Error: message})
		return
	}
	h.sendTo(client, dto.EventError, dto.ErrorMessage{Message: message})
}

func (h *Hub) sendAck(client *Client, ack *int64, err error) {
	if ack == nil {
		return
	}
	resp := dto.AckResponse{Success: err == nil}
	if err != nil {
		resp.Error = service.PublicMessage(err)
	}
	h.sendAckPayload(client, *ack, resp)
}

func (h *Hub) sendAckPayload(client *Client, ack int64, resp dto.AckResponse) {
	msg, err := dto.NewAckEnvelope(ack, resp)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal ack")
		return
	}
	h.deliver(client, msg)
}

func (h *Hub) sendTo(client *Client, event string, payload interface{}) {
	msg, err := dto.NewEnvelope(event, payload)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to marshal outbound message")
		return
	}
	h.deliver(client, msg)
}

// broadcast 把同一条消息发给一组连接，只序列化一次。
func (h *Hub) broadcast(connIDs []string, event string, payload interface{}) {
	if len(connIDs) == 0 {
		return
	}
	msg, err := dto.NewEnvelope(event, payload)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to marshal broadcast message")
		return
	}

	h.clientsMu.RLock()
	recipients := make([]*Client, 0, len(connIDs))
	for _, id := range connIDs {
		if client, ok := h.clients[id]; ok {
			recipients = append(recipients, client)
		}
	}
	h.clientsMu.RUnlock()

	logrus.WithFields(logrus.Fields{
		"event":           event,
		"message_size":    len(msg),
		"recipient_count": len(recipients),
	}).Debug("Broadcasting message to clients")

	for _, client := range recipients {
		h.deliver(client, msg)
	}
}

// deliver 非阻塞地放入客户端发送队列，队列满时丢弃。
func (h *Hub) deliver(client *Client, msg []byte) {
	select {
	case client.send <- msg:
	default:
		logrus.WithField("conn_id", client.ID()).Warn("Client send channel full, message dropped")
	}
}

func participantsOrEmpty(list []domain.Participant) []domain.Participant {
	if list == nil {
		return []domain.Participant{}
	}
	return list
}

// --- 公共方法 ---

// QueueMessage 将消息放入 Hub 的处理队列（非阻塞），只用于允许失败的调用方。
// 队列已满或 Hub 已停止时返回 false。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// enqueueEvent 阻塞直到帧入队或 Hub 停止，Hub 已停止时返回 false。
// 队列满时由读 goroutine 等待，压力只会回传到这一个连接，帧不会丢失。
func (h *Hub) enqueueEvent(client *Client, raw []byte) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.messageChan <- HubMessage{Type: MessageEvent, Client: client, RawData: raw}:
		return true
	case <-h.done:
		return false
	}
}

// unregister 阻塞直到注销消息入队或 Hub 停止。
// 注销消息不能像普通事件那样被丢弃，否则成员会永远留在房间里。
func (h *Hub) unregister(client *Client) {
	select {
	case h.messageChan <- HubMessage{Type: MessageUnregister, Client: client}:
	case <-h.done:
	}
}

// RequestReap 把空闲房间清理排进事件队列，保证它不会与 join 交错执行。
func (h *Hub) RequestReap(maxIdle time.Duration) bool {
	return h.QueueMessage(HubMessage{Type: MessageReap, MaxIdle: maxIdle})
}

// Stats 返回当前房间数和连接数。
func (h *Hub) Stats() (rooms, clients int) {
	h.clientsMu.RLock()
	clients = len(h.clients)
	h.clientsMu.RUnlock()
	return h.collabService.RoomCount(), clients
}
