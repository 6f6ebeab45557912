// Package service holds the post and comment business rules between the HTTP layer and
// the repositories.
package service

import (
	"context"
	"log/slog"
	"math"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ChangePublisher fans a committed row change out to live subscribers.
type ChangePublisher interface {
	PublishChange(ctx context.Context, ev models.ChangeEvent) error
}

type PostService struct {
	postRepo  repository.PostRepository
	publisher ChangePublisher
}

type ListPostsInput struct {
	Page   int
	Limit  int
	Search string
}

type CreatePostInput struct {
	UserID  string
	Title   string
	Content string
}

type UpdatePostInput struct {
	UserID string
	PostID string
	Patch  models.PostPatch
}

type DeletePostInput struct {
	UserID string
	PostID string
}

// NewPostService creates a PostService. publisher may be nil.
func NewPostService(postRepo repository.PostRepository, publisher ChangePublisher) *PostService {
	return &PostService{postRepo: postRepo, publisher: publisher}
}

// PageRange converts a 1-based page of limit rows into the zero-indexed inclusive row
// range it covers. page*limit must fit in an int.
func PageRange(page, limit int) (from, to int) {
	from = (page - 1) * limit
	return from, from + limit - 1
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) (posts []*models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "ListPosts",
		attribute.Int("page", in.Page), attribute.Int("limit", in.Limit))
	defer func() { observability.EndSpan(span, err) }()

	if in.Page < 1 {
		return nil, models.NewValidationError("page must be a positive integer")
	}
	if in.Limit < 1 {
		return nil, models.NewValidationError("limit must be a positive integer")
	}
	if in.Limit > MaxLimit {
		in.Limit = MaxLimit
	}
	if in.Page > math.MaxInt/in.Limit {
		return nil, models.NewValidationError("page is out of range")
	}

	from, to := PageRange(in.Page, in.Limit)
	posts, err = s.postRepo.List(ctx, repository.ListPostsQuery{From: from, To: to, Search: in.Search})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, models.StoreErr(err, "Post", id)
	}
	return post, nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "CreatePost")
	defer func() { observability.EndSpan(span, err) }()

	if in.UserID == "" {
		return nil, models.NewUnauthorizedError("Unauthorized")
	}
	title, err := validation.Title(in.Title)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	content, err := validation.Content(in.Content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post = &models.Post{Title: title, Content: content, UserID: in.UserID}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, models.NewStoreError(err)
	}

	publish(ctx, s.publisher, models.TablePosts, models.EventInsert, post, nil)
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "UpdatePost", attribute.String("post.id", in.PostID))
	defer func() { observability.EndSpan(span, err) }()

	if in.Patch.Empty() {
		return nil, models.NewValidationError("nothing to update: provide title or content")
	}

	post, err = s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, models.StoreErr(err, "Post", in.PostID)
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only update your own posts")
	}

	old := *post
	if in.Patch.Title != nil {
		if post.Title, err = validation.Title(*in.Patch.Title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if in.Patch.Content != nil {
		if post.Content, err = validation.Content(*in.Patch.Content); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, models.NewStoreError(err)
	}

	publish(ctx, s.publisher, models.TablePosts, models.EventUpdate, post, &old)
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (err error) {
	ctx, span := observability.StartSpan(ctx, "PostService", "DeletePost", attribute.String("post.id", in.PostID))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return models.StoreErr(err, "Post", in.PostID)
	}
	if post.UserID != in.UserID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	comments, err := s.postRepo.Delete(ctx, in.PostID)
	if err != nil {
		return models.StoreErr(err, "Post", in.PostID)
	}

	for _, c := range comments {
		publish(ctx, s.publisher, models.TableComments, models.EventDelete, nil, c)
	}
	publish(ctx, s.publisher, models.TablePosts, models.EventDelete, nil, post)
	return nil
}

// publish announces a committed change. The write already succeeded, so failures are
// logged rather than returned.
func publish(ctx context.Context, p ChangePublisher, table string, typ models.EventType, newRow, oldRow any) {
	if p == nil {
		return
	}
	ev, err := models.NewChangeEvent(table, typ, newRow, oldRow)
	if err == nil {
		err = p.PublishChange(ctx, ev)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish change event",
			slog.String("table", table),
			slog.String("event_type", string(typ)),
			slog.String("error", err.Error()),
		)
	}
}
