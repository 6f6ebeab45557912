package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	publisher   ChangePublisher
}

type CreateCommentInput struct {
	UserID  string
	PostID  string
	Content string
}

type UpdateCommentInput struct {
	UserID    string
	PostID    string
	CommentID string
	Content   string
}

type DeleteCommentInput struct {
	UserID    string
	PostID    string
	CommentID string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	publisher ChangePublisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		publisher:   publisher,
	}
}

func (s *CommentService) ListComments(ctx context.Context, postID string) (comments []*models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "ListComments", attribute.String("post.id", postID))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, models.StoreErr(err, "Post", postID)
	}
	comments, err = s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	return comments, nil
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "CreateComment", attribute.String("post.id", in.PostID))
	defer func() { observability.EndSpan(span, err) }()

	if in.UserID == "" {
		return nil, models.NewUnauthorizedError("Unauthorized")
	}
	content, err := validation.Content(in.Content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, models.StoreErr(err, "Post", in.PostID)
	}

	comment = &models.Comment{
		PostID:  in.PostID,
		Content: content,
		UserID:  in.UserID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, models.NewStoreError(err)
	}

	publish(ctx, s.publisher, models.TableComments, models.EventInsert, comment, nil)
	return comment, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "UpdateComment", attribute.String("comment.id", in.CommentID))
	defer func() { observability.EndSpan(span, err) }()

	content, err := validation.Content(in.Content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment, err = s.ownedComment(ctx, in.UserID, in.PostID, in.CommentID, "update")
	if err != nil {
		return nil, err
	}

	old := *comment
	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, models.NewStoreError(err)
	}

	publish(ctx, s.publisher, models.TableComments, models.EventUpdate, comment, &old)
	return comment, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "CommentService", "DeleteComment", attribute.String("comment.id", in.CommentID))
	defer func() { observability.EndSpan(span, err) }()

	comment, err := s.ownedComment(ctx, in.UserID, in.PostID, in.CommentID, "delete")
	if err != nil {
		return err
	}
	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return models.StoreErr(err, "Comment", in.CommentID)
	}

	publish(ctx, s.publisher, models.TableComments, models.EventDelete, nil, comment)
	return nil
}

// ownedComment loads a comment of postID and checks userID wrote it.
func (s *CommentService) ownedComment(ctx context.Context, userID, postID, commentID, action string) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, models.StoreErr(err, "Comment", commentID)
	}
	if comment.PostID != postID {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	if comment.UserID != userID {
		return nil, models.NewForbiddenError("You can only " + action + " your own comments")
	}
	return comment, nil
}
