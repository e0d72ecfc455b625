// file: internal/services/notification_hub.go
package services

import (
	"net/http"
	"sync"
	"time"

	"goldhub/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	hubWriteWait  = 10 * time.Second
	hubSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust for production
	},
}

// NotificationHub tracks live websocket connections per user and pushes
// notifications to them as they are created. A user may hold several
// connections (multiple devices); a push fans out to all of them.
type NotificationHub struct {
	mu      sync.Mutex
	clients map[int64]map[*hubClient]struct{}
	logger  *zap.Logger
}

type hubClient struct {
	conn   *websocket.Conn
	userID int64
	send   chan *models.Notification
}

// NewNotificationHub creates an empty hub.
func NewNotificationHub(logger *zap.Logger) *NotificationHub {
	return &NotificationHub{
		clients: make(map[int64]map[*hubClient]struct{}),
		logger:  logger,
	}
}

// HandleConnection upgrades the request and serves the connection until the
// client disconnects. The caller must have authenticated userID already.
func (h *NotificationHub) HandleConnection(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return
	}

	client := &hubClient{
		conn:   conn,
		userID: userID,
		send:   make(chan *models.Notification, hubSendBuffer),
	}
	h.register(client)
	h.logger.Debug("WebSocket client connected", zap.Int64("user_id", userID))

	go client.writeLoop(h)
	client.readLoop(h)
}

// Push implements Pusher. Slow or full clients are skipped rather than
// blocking the caller; the notification is already persisted.
func (h *NotificationHub) Push(userID int64, n *models.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- n:
		default:
			h.logger.Warn("Dropping push to slow websocket client",
				zap.Int64("user_id", userID),
			)
		}
	}
}

// ConnectionCount reports how many live connections the hub tracks.
func (h *NotificationHub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var total int
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}

func (h *NotificationHub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*hubClient]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *NotificationHub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

// readLoop drains the connection until it closes. Clients do not send
// meaningful payloads; reading is only how the peer's close is observed.
func (c *hubClient) readLoop(h *NotificationHub) {
	defer func() {
		h.unregister(c)
		close(c.send)
		c.conn.Close()
		h.logger.Debug("WebSocket client disconnected", zap.Int64("user_id", c.userID))
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *hubClient) writeLoop(h *NotificationHub) {
	for n := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
		if err := c.conn.WriteJSON(n); err != nil {
			h.logger.Warn("WebSocket write failed",
				zap.Int64("user_id", c.userID),
				zap.Error(err),
			)
			return
		}
	}
}
