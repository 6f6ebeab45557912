// Package seed fills a database with demo users, posts and comments for development.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options controls how much data a run creates.
type Options struct {
	Users    int
	Posts    int
	Comments int
	// Clean removes existing rows first.
	Clean bool
	// RandSeed makes the generated content reproducible. Zero uses the clock.
	RandSeed int64
}

// Result counts the rows a run created.
type Result struct {
	Users    []*models.User
	Posts    []*models.Post
	Comments int
}

// Seeder writes generated rows through the repositories.
type Seeder struct {
	db       *gorm.DB
	users    repository.UserRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	logger   *slog.Logger
}

func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:       db,
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db, nil),
		comments: repository.NewCommentRepository(db),
		logger:   middleware.Logger,
	}
}

// ClearAll hard-deletes every comment, post and user.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
	for _, model := range []any{&models.Comment{}, &models.Post{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Run creates opts.Users accounts, then opts.Posts posts and opts.Comments comments
// spread over them at random.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Users < 0 || opts.Posts < 0 || opts.Comments < 0 {
		return nil, fmt.Errorf("counts must not be negative")
	}
	if opts.Users == 0 && opts.Posts+opts.Comments > 0 {
		return nil, fmt.Errorf("posts and comments need at least one user")
	}
	if opts.Posts == 0 && opts.Comments > 0 {
		return nil, fmt.Errorf("comments need at least one post")
	}

	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(seed)

	res := &Result{}
	var err error
	if res.Users, err = s.seedUsers(ctx, faker, opts.Users); err != nil {
		return nil, err
	}
	s.logger.Info("seeded users", slog.Int("count", len(res.Users)))

	if res.Posts, err = s.seedPosts(ctx, faker, res.Users, opts.Posts); err != nil {
		return nil, err
	}
	s.logger.Info("seeded posts", slog.Int("count", len(res.Posts)))

	if res.Comments, err = s.seedComments(ctx, faker, res.Users, res.Posts, opts.Comments); err != nil {
		return nil, err
	}
	s.logger.Info("seeded comments", slog.Int("count", res.Comments))

	return res, nil
}

func (s *Seeder) seedUsers(ctx context.Context, faker *gofakeit.Faker, n int) ([]*models.User, error) {
	if n == 0 {
		return nil, nil
	}
	// One hash for every account keeps large runs fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user := &models.User{
			Email:    fmt.Sprintf("%s.%d@%s", strings.ToLower(faker.Username()), i, strings.ToLower(faker.DomainName())),
			Password: string(hash),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user %d: %w", i, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedPosts(ctx context.Context, faker *gofakeit.Faker, users []*models.User, n int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		post := &models.Post{
			Title:   strings.TrimSuffix(faker.Sentence(faker.Number(3, 8)), "."),
			Content: faker.Paragraph(1, 3, 8, "\n\n"),
			UserID:  users[faker.Number(0, len(users)-1)].ID,
		}
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("create post %d: %w", i, err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) seedComments(ctx context.Context, faker *gofakeit.Faker, users []*models.User, posts []*models.Post, n int) (int, error) {
	for i := 0; i < n; i++ {
		comment := &models.Comment{
			PostID:  posts[faker.Number(0, len(posts)-1)].ID,
			Content: faker.Sentence(faker.Number(4, 16)),
			UserID:  users[faker.Number(0, len(users)-1)].ID,
		}
		if err := s.comments.Create(ctx, comment); err != nil {
			return i, fmt.Errorf("create comment %d: %w", i, err)
		}
	}
	return n, nil
}
