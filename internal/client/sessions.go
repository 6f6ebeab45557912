package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"inkwell/internal/models"
)

// Session is a signed-in user and the bearer token that speaks for them.
type Session struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        models.User `json:"user"`
}

// Expired reports whether the token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Sessions holds the current session. It is created at sign-in, replaced on refresh
// and cleared at sign-out; listeners registered with OnChange see every transition.
type Sessions struct {
	t *transport

	mu        sync.Mutex
	current   *Session
	listeners map[int]func(*Session)
	nextID    int
}

type authResponse struct {
	User    models.User `json:"user"`
	Session Session     `json:"session"`
}

func (s *Sessions) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return s.authenticate(ctx, "/api/auth/signup", email, password)
}

func (s *Sessions) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return s.authenticate(ctx, "/api/auth/signin", email, password)
}

func (s *Sessions) authenticate(ctx context.Context, path, email, password string) (*Session, error) {
	in := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := s.t.do(ctx, http.MethodPost, path, nil, in, &resp); err != nil {
		return nil, err
	}
	session := resp.Session
	session.User = resp.User
	s.set(&session)
	return s.Current(), nil
}

// SignOut revokes the session on the server and clears it locally. The local session
// is cleared even when the server call fails.
func (s *Sessions) SignOut(ctx context.Context) error {
	if s.Current() == nil {
		return nil
	}
	err := s.t.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil, nil)
	s.set(nil)

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		return nil
	}
	return err
}

// Refresh swaps the current token for a new one.
func (s *Sessions) Refresh(ctx context.Context) (*Session, error) {
	current := s.Current()
	if current == nil {
		return nil, models.NewUnauthorizedError("not signed in")
	}

	var session Session
	if err := s.t.do(ctx, http.MethodPost, "/api/auth/refresh", nil, nil, &session); err != nil {
		return nil, err
	}
	if session.User.ID == "" {
		session.User = current.User
	}
	s.set(&session)
	return s.Current(), nil
}

// User asks the server who the current token belongs to.
func (s *Sessions) User(ctx context.Context) (*models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	if err := s.t.do(ctx, http.MethodGet, "/api/auth/session", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Current returns a copy of the current session, or nil when signed out.
func (s *Sessions) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Restore adopts a previously saved session without contacting the server. Expired
// sessions are ignored.
func (s *Sessions) Restore(session *Session) bool {
	if session == nil || session.AccessToken == "" || session.Expired(time.Now()) {
		return false
	}
	cp := *session
	s.set(&cp)
	return true
}

// OnChange registers fn to be called with the new session after every change, nil
// meaning signed out. The returned func unregisters it.
func (s *Sessions) OnChange(fn func(*Session)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Sessions) set(session *Session) {
	s.mu.Lock()
	s.current = session
	listeners := make([]func(*Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		if session == nil {
			fn(nil)
			continue
		}
		cp := *session
		fn(&cp)
	}
}

// LoadSessionFile reads a session saved by SaveSessionFile. A missing file is not an
// error and yields nil.
func LoadSessionFile(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return &session, nil
}

// SaveSessionFile writes session to path readable only by the current user. A nil
// session removes the file.
func SaveSessionFile(path string, session *Session) error {
	if session == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove session file: %w", err)
		}
		return nil
	}

	raw, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
