package server

import (
	"log/slog"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	localRealtimeFilter = "realtimeFilter"
	localRealtimeKey    = "realtimeKey"
)

// RealtimeUpgrade validates a change feed subscription before the WebSocket upgrade so
// bad filters are answered with a normal HTTP error. A bearer token is optional; when
// present it must be valid and connection limits apply per user instead of per IP.
func (s *Server) RealtimeUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	filter, err := models.ParseFilter(c.Query("table"), c.Query("event"), c.Query("filter"))
	if err != nil {
		return err
	}

	key := "ip:" + c.IP()
	if token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization)); ok {
		id, err := s.authService.ValidateToken(c.UserContext(), token)
		if err != nil {
			return err
		}
		key = "user:" + id.UserID
		c.Locals(middleware.LocalUserID, id.UserID)
	}

	c.Locals(localRealtimeFilter, filter)
	c.Locals(localRealtimeKey, key)
	return c.Next()
}

// RealtimeHandler streams change events matching the subscription filter as JSON text
// frames until either side closes.
func (s *Server) RealtimeHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		filter, _ := conn.Locals(localRealtimeFilter).(models.Filter)
		key, _ := conn.Locals(localRealtimeKey).(string)

		sub := s.feed.Subscribe(filter)
		client, err := s.hub.Register(key, conn, sub)
		if err != nil {
			sub.Close()
			middleware.Logger.Warn("realtime connection refused",
				slog.String("key", key), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			_ = conn.Close()
			return
		}

		middleware.Logger.Info("realtime subscriber connected",
			slog.String("key", key), slog.String("filter", filter.Predicate()))
		client.Serve()
		middleware.Logger.Info("realtime subscriber disconnected", slog.String("key", key))
	})
}
