package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"subchapter-tutor-be/internal/dto"
	"subchapter-tutor-be/internal/pkg/logger"
)

type Hub struct {
	// Registered clients map: SessionID -> List of Clients (multi-tab)
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Closed when Run returns.
	done chan struct{}

	// Bounds socket commands; replaced by Run's context.
	ctx context.Context

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		done:       make(chan struct{}),
		ctx:        context.Background(),
		logger:     log,
	}
}

// Run serves register and unregister requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.clients {
				for _, c := range clients {
					close(c.Send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
					h.logger.Info("Hub", "Session has no connected clients", map[string]interface{}{"session_id": client.SessionID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client; it reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// NotifySession pushes a session view to every client of that session.
func (h *Hub) NotifySession(sessionID string, view *dto.SessionView) {
	h.deliver(sessionID, "session", view)
}

func (h *Hub) sendError(c *Client, message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
	h.push(c, data)
}

func (h *Hub) deliver(sessionID, kind string, payload interface{}) {
	data, err := json.Marshal(map[string]interface{}{
		"type": kind,
		"data": payload,
	})
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal message", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[sessionID] {
		h.push(client, data)
	}
}

// push never blocks; a client that cannot keep up misses the message and
// picks up the full state with the next one.
func (h *Hub) push(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"session_id": c.SessionID})
	}
}

// Context is cancelled when the hub shuts down.
func (h *Hub) Context() context.Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ctx
}

// ConnectedClients reports how many sockets a session has.
func (h *Hub) ConnectedClients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}
