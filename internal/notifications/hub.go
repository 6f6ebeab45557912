package notifications

import (
	"context"
	"errors"
	"sync"

	"inkwell/internal/middleware"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per caller key
	maxConnsPerKey = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerConnLimit = errors.New("server connection limit reached")
	ErrCallerConnLimit = errors.New("caller connection limit reached")
	ErrHubShutdown     = errors.New("realtime hub is shutting down")
)

// Hub tracks realtime clients by caller key and enforces connection limits.
type Hub struct {
	mu         sync.RWMutex
	conns      map[string]map[*Client]struct{}
	totalConns int
	closed     bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*Client]struct{})}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "realtime hub" }

// Register adds a client streaming sub over conn for key.
func (h *Hub) Register(key string, conn *websocket.Conn, sub *Subscription) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubShutdown
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerConnLimit
	}
	m, ok := h.conns[key]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[key] = m
	}
	if len(m) >= maxConnsPerKey {
		return nil, ErrCallerConnLimit
	}

	client := NewClient(h, conn, key, sub)
	m[client] = struct{}{}
	h.totalConns++
	middleware.ActiveWebSockets.Inc()
	return client, nil
}

// UnregisterClient forgets client. Unknown clients are ignored.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.Key]
	if !ok {
		return
	}
	if _, exists := m[client]; exists {
		delete(m, client)
		h.totalConns--
		middleware.ActiveWebSockets.Dec()
	}
	if len(m) == 0 {
		delete(h.conns, client.Key)
	}
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// Shutdown refuses new clients and ends every client's subscription, which closes its
// stream with a close frame.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, h.totalConns)
	for _, m := range h.conns {
		for c := range m {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	return nil
}
