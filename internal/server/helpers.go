package server

import (
	"strconv"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// queryInt reads an optional integer query parameter. Values that are present but not
// integers are a validation error; range checks are left to the service.
func queryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError(name + " must be a positive integer")
	}
	return v, nil
}

// parseBody decodes the JSON request body into dst.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

// identity returns the caller attached by AuthRequired.
func identity(c *fiber.Ctx) (auth.Identity, error) {
	id, ok := auth.FromContext(c.UserContext())
	if !ok || id.UserID == "" {
		return auth.Identity{}, models.NewUnauthorizedError("Unauthorized")
	}
	return id, nil
}
