package server

import (
	"context"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired rejects requests without a valid bearer token before any handler runs
// and attaches the caller's identity to the request.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return models.NewUnauthorizedError("Unauthorized")
		}

		id, err := s.authService.ValidateToken(c.UserContext(), token)
		if err != nil {
			return err
		}

		c.Locals(middleware.LocalUserID, id.UserID)
		c.Locals(middleware.LocalToken, token)

		ctx := auth.WithIdentity(c.UserContext(), id)
		ctx = context.WithValue(ctx, middleware.UserIDKey, id.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}
