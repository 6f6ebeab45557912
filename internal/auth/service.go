// Package auth issues and validates bearer tokens and tracks signed-out sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	Issuer    = "inkwell-api"
	Audience  = "inkwell-client"
	TokenType = "bearer"
)

// Identity is the caller a validated token speaks for.
type Identity struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// Session is what sign-in, sign-up and refresh hand back to the client.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// Credentials are the email/password pair used to sign up and sign in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service implements the auth operations. The Redis client is optional; without it
// sign-out cannot revoke tokens before they expire.
type Service struct {
	users  repository.UserRepository
	redis  *redis.Client
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService builds an auth service signing HS256 tokens valid for ttl.
func NewService(users repository.UserRepository, rdb *redis.Client, secret string, ttl time.Duration) *Service {
	return &Service{
		users:  users,
		redis:  rdb,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, in Credentials) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("User already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Email: email, Password: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// SignIn checks credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, in Credentials) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return s.issue(user)
}

// SignOut revokes the token behind id until it would have expired anyway.
func (s *Service) SignOut(ctx context.Context, id Identity) error {
	return s.revoke(ctx, id)
}

// Refresh swaps the token behind id for a fresh one.
func (s *Service) Refresh(ctx context.Context, id Identity) (*Session, error) {
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("Unauthorized")
		}
		return nil, err
	}
	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.revoke(ctx, id); err != nil {
		return nil, err
	}
	return session, nil
}

// CurrentUser loads the account id refers to.
func (s *Service) CurrentUser(ctx context.Context, id Identity) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id.UserID)
	if models.HasCode(err, models.CodeNotFound) {
		return nil, models.NewUnauthorizedError("Unauthorized")
	}
	return user, err
}

// ValidateToken verifies signature, issuer, audience, expiry and revocation.
func (s *Service) ValidateToken(ctx context.Context, token string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, models.NewUnauthorizedError("Invalid or expired token")
	}
	if c.Subject == "" || c.ID == "" || c.ExpiresAt == nil {
		return Identity{}, models.NewUnauthorizedError("Invalid token claims")
	}

	revoked, err := s.isRevoked(ctx, c.ID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "token revocation check failed, accepting token",
			slog.String("jti", c.ID), slog.String("error", err.Error()))
	}
	if revoked {
		return Identity{}, models.NewUnauthorizedError("Token has been revoked")
	}

	return Identity{
		UserID:    c.Subject,
		Email:     c.Email,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

func (s *Service) issue(user *models.User) (*Session, error) {
	if len(s.secret) == 0 {
		return nil, models.NewInternalError(errors.New("JWT secret not configured"))
	}

	now := s.now()
	expires := now.Add(s.ttl).Truncate(time.Second)
	c := claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("sign token: %w", err))
	}
	return &Session{
		AccessToken: signed,
		TokenType:   TokenType,
		ExpiresAt:   expires,
		User:        user,
	}, nil
}

func revokedKey(jti string) string {
	return "auth:revoked:" + jti
}

func (s *Service) revoke(ctx context.Context, id Identity) error {
	if s.redis == nil || id.TokenID == "" {
		return nil
	}
	ttl := id.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, revokedKey(id.TokenID), id.UserID, ttl).Err(); err != nil {
		return models.NewStoreError(err)
	}
	return nil
}

func (s *Service) isRevoked(ctx context.Context, jti string) (bool, error) {
	if s.redis == nil {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
