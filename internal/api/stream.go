package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"marketlabels/pkg/map/host"
	"marketlabels/pkg/map/labels"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamMessage is one frame pushed to renderers.
type StreamMessage struct {
	Type      string    `json:"type"` // "pass" or "graphic"
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

type streamClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// StreamHub fans pass results and graphic writes out to websocket clients.
// Slow clients are dropped rather than allowed to block a pass.
type StreamHub struct {
	mu      sync.RWMutex
	clients map[string]*streamClient
}

// NewStreamHub creates an empty hub.
func NewStreamHub() *StreamHub {
	return &StreamHub{clients: make(map[string]*streamClient)}
}

// PublishPass broadcasts a pass result.
func (h *StreamHub) PublishPass(res *labels.Result) {
	h.broadcast(StreamMessage{Type: "pass", Data: res, Timestamp: time.Now()})
}

// PublishGraphic broadcasts a single graphic change.
func (h *StreamHub) PublishGraphic(g host.GraphicState) {
	h.broadcast(StreamMessage{Type: "graphic", Data: g, Timestamp: time.Now()})
}

// Clients returns the number of connected clients.
func (h *StreamHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *StreamHub) broadcast(msg StreamMessage) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	h.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Stream: failed to marshal message", "type", msg.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("Stream: dropping slow client", "client", id)
			close(c.send)
			delete(h.clients, id)
		}
	}
}

func (h *StreamHub) unregister(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// HandleStream upgrades the connection and streams messages until the client leaves.
// GET /api/labels/stream
func (h *StreamHub) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Stream: failed to upgrade connection", "error", err)
		return
	}
	c := &streamClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	slog.Info("Stream: client connected", "client", c.id, "clients", n)

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and detects disconnects.
func (h *StreamHub) readPump(c *streamClient) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		slog.Info("Stream: client disconnected", "client", c.id)
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHub) writePump(c *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
