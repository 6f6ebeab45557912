package notifications

import (
	"encoding/json"
	"log/slog"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send control frames.
	maxMessageSize = 1024

	sendBuffer = 256
)

// WSHub is implemented by hubs that own Clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client streams one change feed subscription to one WebSocket connection.
type Client struct {
	Hub  WSHub
	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan []byte

	// Key groups connections for per-caller limits: a user ID or "ip:<addr>".
	Key string

	sub        *Subscription
	writerDone chan struct{}
}

// NewClient creates a Client for sub.
func NewClient(hub WSHub, conn *websocket.Conn, key string, sub *Subscription) *Client {
	return &Client{
		Hub:        hub,
		Conn:       conn,
		Key:        key,
		Send:       make(chan []byte, sendBuffer),
		sub:        sub,
		writerDone: make(chan struct{}),
	}
}

// Serve runs the client until the peer disconnects or the subscription is closed. It
// blocks, and the connection is not touched after it returns.
func (c *Client) Serve() {
	go c.WritePump()
	go c.forward()

	c.ReadPump()
	c.sub.Close()
	<-c.writerDone
}

// Close ends the subscription; Serve then winds the connection down.
func (c *Client) Close() {
	c.sub.Close()
}

// forward encodes subscription events onto Send and closes Send once the subscription
// ends.
func (c *Client) forward() {
	defer close(c.Send)
	for ev := range c.sub.Events() {
		payload, err := json.Marshal(ev)
		if err != nil {
			middleware.Logger.Error("failed to encode change event", slog.String("error", err.Error()))
			continue
		}
		c.TrySend(payload)
	}
}

// ReadPump consumes control frames until the connection fails, then unregisters.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				middleware.Logger.Info("realtime read failed", slog.String("key", c.Key), slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump writes queued frames and keepalive pings. A closed Send channel ends the
// stream with a close frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking and reports whether it was queued. A full
// buffer ends the subscription, so the peer gets the queued frames and then a close
// frame rather than a stream with holes in it.
func (c *Client) TrySend(message []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
			sent = false
		}
	}()

	select {
	case c.Send <- message:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		middleware.Logger.Warn("realtime client buffer full, closing stream",
			slog.String("key", c.Key), slog.String("hub", c.Hub.Name()))
		c.sub.Close()
		return false
	}
}
