// Package repository implements the data access layer for posts, comments and users.
package repository

import (
	"context"
	"log/slog"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// ListPostsQuery selects the zero-indexed inclusive row range [From, To] of posts,
// newest first, optionally restricted to titles containing Search (case-insensitive).
type ListPostsQuery struct {
	From   int
	To     int
	Search string
}

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	List(ctx context.Context, q ListPostsQuery) ([]*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) ([]*models.Comment, error)
}

type postRepository struct {
	db    *gorm.DB
	cache *cache.Store
}

// NewPostRepository creates a post repository. store may be nil.
func NewPostRepository(db *gorm.DB, store *cache.Store) PostRepository {
	return &postRepository{db: db, cache: store}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *postRepository) List(ctx context.Context, q ListPostsQuery) ([]*models.Post, error) {
	query := r.db.WithContext(ctx)
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern)
	}

	posts := make([]*models.Post, 0)
	err := query.
		Order("created_at DESC").
		Offset(q.From).
		Limit(q.To - q.From + 1).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	hit, err := r.cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	})
	if err != nil {
		return nil, err
	}
	if hit {
		observability.PostCacheLookups.WithLabelValues("hit").Inc()
	} else {
		observability.PostCacheLookups.WithLabelValues("miss").Inc()
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return err
	}
	r.invalidate(ctx, post.ID)
	return nil
}

// Delete soft-deletes the post and its comments and returns the comments removed with it.
func (r *postRepository) Delete(ctx context.Context, id string) ([]*models.Comment, error) {
	comments := make([]*models.Comment, 0)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Find(&comments).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return comments, nil
}

func (r *postRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.Invalidate(ctx, cache.PostKey(id)); err != nil {
		middleware.Logger.WarnContext(ctx, "post cache invalidation failed",
			slog.String("post_id", id), slog.String("error", err.Error()))
	}
}
