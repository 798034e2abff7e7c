package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	applog "ledgerchat/internal/log"
	"ledgerchat/internal/view"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served same-origin; permissive check keeps local
	// development behind proxies working.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHub tracks connected dashboard clients and fans each new view out to all
// of them. Writes go through each client's mutex because gorilla/websocket
// allows only one concurrent writer per connection.
type wsHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSHub() *wsHub {
	return &wsHub{clients: make(map[*wsClient]struct{})}
}

func (h *wsHub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *wsHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// broadcast sends the view to every connected client. A client whose write
// fails is dropped; it will reconnect and receive the current view again.
func (h *wsHub) broadcast(v view.View) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode view for broadcast", applog.FieldError, err)
		return
	}

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.write(payload); err != nil {
			h.remove(c)
			c.conn.Close()
		}
	}
}

func (h *wsHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

func (c *wsClient) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// handleWS upgrades the connection, pushes the current view immediately, then
// keeps the client registered for broadcasts until it disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", applog.FieldError, err, applog.FieldClientIP, clientIP(r))
		return
	}

	client := &wsClient{conn: conn}
	s.hub.add(client)

	payload, err := json.Marshal(s.coordinator.View())
	if err == nil {
		if err := client.write(payload); err != nil {
			s.hub.remove(client)
			conn.Close()
			return
		}
	}

	// Drain reads so we notice client disconnects; the dashboard never
	// sends application messages.
	go func() {
		defer func() {
			s.hub.remove(client)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
