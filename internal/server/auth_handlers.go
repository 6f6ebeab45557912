package server

import (
	"inkwell/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// SignUp handles POST /api/auth/signup
func (s *Server) SignUp(c *fiber.Ctx) error {
	var req auth.Credentials
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := s.authService.SignUp(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":    session.User,
		"session": session,
	})
}

// SignIn handles POST /api/auth/signin
func (s *Server) SignIn(c *fiber.Ctx) error {
	var req auth.Credentials
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := s.authService.SignIn(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"user":    session.User,
		"session": session,
	})
}

// SignOut handles POST /api/auth/signout
func (s *Server) SignOut(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := s.authService.SignOut(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSession handles GET /api/auth/session
func (s *Server) GetSession(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	user, err := s.authService.CurrentUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"user":       user,
		"expires_at": id.ExpiresAt,
	})
}

// Refresh handles POST /api/auth/refresh
func (s *Server) Refresh(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	session, err := s.authService.Refresh(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(session)
}
