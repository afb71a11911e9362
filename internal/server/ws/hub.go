package ws

import (
	"encoding/json"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/net/websocket"

	"github.com/flowmetrics/semgraph/pkg/logger"
)

// Hub fans graph update events out to connected websocket subscribers.
// Subscribers that fail a write are dropped.
type Hub struct {
	mu   sync.Mutex
	subs map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[*websocket.Conn]bool),
	}
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[conn] = true
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, conn)
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast sends data to every subscriber. A subscriber whose write fails
// is closed and removed.
func (h *Hub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.subs {
		if err := websocket.Message.Send(conn, string(data)); err != nil {
			logger.Warn("[WS] Dropping subscriber", "err", err)
			conn.Close()
			delete(h.subs, conn)
		}
	}
}

// Handler upgrades the request to a websocket and keeps the connection
// registered until the client disconnects. Pings are answered with pongs,
// node_selection messages are relayed to every subscriber, everything else
// is ignored.
func (h *Hub) Handler(c echo.Context) error {
	websocket.Handler(func(conn *websocket.Conn) {
		h.add(conn)
		defer func() {
			h.remove(conn)
			conn.Close()
		}()

		for {
			var msg string
			if err := websocket.Message.Receive(conn, &msg); err != nil {
				return
			}

			var envelope struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal([]byte(msg), &envelope); err != nil {
				continue
			}

			switch envelope.Type {
			case "ping":
				if err := websocket.Message.Send(conn, `{"type":"pong"}`); err != nil {
					return
				}
			case "node_selection":
				h.Broadcast([]byte(msg))
			}
		}
	}).ServeHTTP(c.Response(), c.Request())
	return nil
}
