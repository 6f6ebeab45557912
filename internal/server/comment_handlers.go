package server

import (
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Content string `json:"content"`
	// PostID is accepted for compatibility; the path parameter always wins.
	PostID string `json:"postId"`
}

// GetComments handles GET /api/posts/:postId/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	comments, err := s.commentService.ListComments(c.UserContext(), c.Params("postId"))
	if err != nil {
		return err
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/posts/:postId/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID:  id.UserID,
		PostID:  c.Params("postId"),
		Content: req.Content,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/posts/:postId/comments/:commentId
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), service.UpdateCommentInput{
		UserID:    id.UserID,
		PostID:    c.Params("postId"),
		CommentID: c.Params("commentId"),
		Content:   req.Content,
	})
	if err != nil {
		return err
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/posts/:postId/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	if err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		UserID:    id.UserID,
		PostID:    c.Params("postId"),
		CommentID: c.Params("commentId"),
	}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
