package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /api/posts?page&limit&search
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page, err := queryInt(c, "page", service.DefaultPage)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", service.DefaultLimit)
	if err != nil {
		return err
	}

	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Page:   page,
		Limit:  limit,
		Search: c.Query("search"),
	})
	if err != nil {
		return err
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return err
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:  id.UserID,
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id. Only title and content are read from the body.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	var patch models.PostPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID: id.UserID,
		PostID: c.Params("id"),
		Patch:  patch,
	})
	if err != nil {
		return err
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	if err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: id.UserID,
		PostID: c.Params("id"),
	}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
