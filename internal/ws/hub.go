package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"radwatch/internal/metrics"
	"radwatch/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// AlertRoom 报警事件默认房间名
const AlertRoom = "alerts"

const (
	// writeTimeout 单次向客户端写入的截止时间
	writeTimeout = 10 * time.Second

	// pongWait 等待 pong 的最长时间，超时视为连接已死
	pongWait = 60 * time.Second

	// pingPeriod 发送 ping 帧的周期，必须小于 pongWait
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize 每个客户端的发送缓冲深度
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 跨域控制交给反向代理层
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub 实时观察端连接管理器
// 观察端按房间名订阅；事件对当前已连接的观察端至多送达一次，不回放历史
// 某个观察端断开或写入失败不影响其他观察端
type Hub struct {
	logger *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

type client struct {
	room string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// trySend 向客户端投递一条消息，不阻塞
// 客户端已关闭或缓冲已满时返回 false；发送和关闭用同一把锁串行化，
// 广播协程永远不会写到已关闭的通道上
func (c *client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// shutdown 关闭客户端发送通道（幂等）
func (c *client) shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// NewHub 创建连接管理器
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP 将 HTTP 连接升级为 WebSocket 并加入指定房间
// 房间名取 query 参数 room，缺省为 AlertRoom；阻塞直到连接关闭
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = AlertRoom
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader 已经写了错误响应
		return
	}

	c := &client{
		room: room,
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	defer h.unregister(c)

	go c.writePump()
	c.readPump() // 阻塞直到连接关闭
}

// Broadcast 向房间内所有当前连接的观察端推送一个事件
// 发送是尽力而为：缓冲已满的客户端直接断开，不等待
func (h *Hub) Broadcast(room string, event models.AlertEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast event", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.trySend(data) {
			// 缓冲已满或客户端已在关闭中，断开它
			h.unregister(c)
		}
	}

	h.logger.Debug("Broadcast event",
		zap.String("room", room),
		zap.String("event_kind", event.EventKind),
		zap.Int("observers", len(targets)),
	)
}

// Count 返回房间内当前连接的观察端数量
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// CloseAll 关闭全部连接（优雅停机用）
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, clients := range h.rooms {
		for c := range clients {
			c.shutdown()
			delete(clients, c)
		}
		metrics.LiveObservers.WithLabelValues(room).Set(0)
		delete(h.rooms, room)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	if h.rooms[c.room] == nil {
		h.rooms[c.room] = make(map[*client]struct{})
	}
	h.rooms[c.room][c] = struct{}{}
	metrics.LiveObservers.WithLabelValues(c.room).Inc()
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if clients, ok := h.rooms[c.room]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			c.shutdown()
			metrics.LiveObservers.WithLabelValues(c.room).Dec()
		}
		if len(clients) == 0 {
			delete(h.rooms, c.room)
		}
	}
	h.mu.Unlock()
}

// writePump 把发送缓冲里的消息写到连接，并周期性发 ping 帧
// 每个客户端一个 goroutine
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// 通道被关闭（停机或客户端被移除）
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取控制帧（pong、close）并感知断连，阻塞直到连接关闭
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
