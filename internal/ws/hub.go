package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vostrikal/stream-anomaly-worker/internal/model"
)

const (
	// sendBuffer bounds the per-client outgoing queue; a client that falls
	// further behind than this starts losing frames rather than stalling
	// the stream.
	sendBuffer = 100

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // must be less than pongWait
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans classified samples out to websocket subscribers. It implements
// the visual sink contract of the stream driver: Update reports true while
// the hub accepts points and false permanently once it has been closed.
type Hub struct {
	logger  *zap.Logger
	gauge   prometheus.Gauge
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub; gauge tracks the number of connected clients.
func NewHub(logger *zap.Logger, gauge prometheus.Gauge) *Hub {
	return &Hub{
		logger:  logger,
		gauge:   gauge,
		clients: make(map[*client]struct{}),
	}
}

// HandleStream upgrades the request and subscribes the peer to the live feed.
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "stream closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.gauge.Inc()

	h.logger.Info("live feed client connected", zap.String("remote", conn.RemoteAddr().String()))

	go c.writePump()
	go h.readPump(c)
}

// Update broadcasts one classified point to every subscriber. Clients whose
// queues are full miss this frame. Returns false once the hub is closed.
func (h *Hub) Update(ctx context.Context, p model.Point) bool {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return false
	}
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return true
	}
	h.mu.RUnlock()

	payload, err := json.Marshal(p)
	if err != nil {
		h.logger.Error("failed to marshal point for live feed", zap.Error(err))
		return true
	}

	dropped := 0
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return false
	}
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	if dropped > 0 {
		h.logger.Warn("dropped live feed frames for slow clients",
			zap.Int("clients", dropped),
			zap.Int64("seq", p.Seq))
	}
	return true
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all subscribers and makes Update report false from now on.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
		h.gauge.Dec()
	}
	h.mu.Unlock()

	h.logger.Info("live feed hub closed")
}

// remove unsubscribes a client after its read side failed or closed.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	h.gauge.Dec()
}

// readPump consumes inbound frames to keep pong handling alive and to
// notice disconnects; the feed itself is one-way.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
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

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
