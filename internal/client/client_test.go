package client

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/models"
	"inkwell/internal/server"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs a full API server on a loopback port and returns its base URL.
func startServer(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{
		Port:      "0",
		Env:       "test",
		JWTSecret: "client-test-secret-0123456789abcdef0123456789abcdef",
		JWTTTL:    time.Hour,
	}
	s, err := server.NewServerWithDeps(cfg, testutil.NewSQLiteDB(t), nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.App().Listener(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	return "http://" + ln.Addr().String()
}

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(baseURL, nil)
	require.NoError(t, err)
	return c
}

func signedIn(t *testing.T, baseURL, email string) *Client {
	t.Helper()
	c := newClient(t, baseURL)
	_, err := c.Sessions.SignUp(t.Context(), email, "password123")
	require.NoError(t, err)
	return c
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Status
}

func TestNew_RejectsNonHTTPURL(t *testing.T) {
	_, err := New("ftp://example.com", nil)
	assert.Error(t, err)
}

func TestSessions_Lifecycle(t *testing.T) {
	base := startServer(t)
	c := newClient(t, base)
	ctx := t.Context()

	var seen []*Session
	cancel := c.Sessions.OnChange(func(s *Session) { seen = append(seen, s) })
	defer cancel()

	session, err := c.Sessions.SignUp(ctx, "reader@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", session.TokenType)
	assert.Equal(t, "reader@example.com", session.User.Email)
	assert.NotEmpty(t, session.AccessToken)

	user, err := c.Sessions.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)

	refreshed, err := c.Sessions.Refresh(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, session.AccessToken, refreshed.AccessToken)
	assert.Equal(t, session.User.ID, refreshed.User.ID)

	require.NoError(t, c.Sessions.SignOut(ctx))
	assert.Nil(t, c.Sessions.Current())

	require.Len(t, seen, 3)
	assert.NotNil(t, seen[0])
	assert.NotNil(t, seen[1])
	assert.Nil(t, seen[2])

	_, err = c.Sessions.User(ctx)
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err))
}

func TestSessions_SignInFailures(t *testing.T) {
	base := startServer(t)
	c := signedIn(t, base, "dup@example.com")

	other := newClient(t, base)
	_, err := other.Sessions.SignUp(t.Context(), "dup@example.com", "password123")
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))

	_, err = other.Sessions.SignIn(t.Context(), "dup@example.com", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err))
	assert.Nil(t, other.Sessions.Current())

	_, err = other.Sessions.SignIn(t.Context(), "dup@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, c.Sessions.Current().User.ID, other.Sessions.Current().User.ID)
}

func TestSessionFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	missing, err := LoadSessionFile(path)
	require.NoError(t, err)
	assert.Nil(t, missing)

	want := &Session{
		AccessToken: "tok",
		TokenType:   "bearer",
		ExpiresAt:   time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		User:        models.User{ID: "u1", Email: "a@example.com"},
	}
	require.NoError(t, SaveSessionFile(path, want))

	got, err := LoadSessionFile(path)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, want.User.ID, got.User.ID)

	require.NoError(t, SaveSessionFile(path, nil))
	gone, err := LoadSessionFile(path)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSessions_RestoreSkipsExpired(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1")

	assert.False(t, c.Sessions.Restore(&Session{AccessToken: "t", ExpiresAt: time.Now().Add(-time.Minute)}))
	assert.Nil(t, c.Sessions.Current())

	assert.True(t, c.Sessions.Restore(&Session{AccessToken: "t", ExpiresAt: time.Now().Add(time.Minute)}))
	assert.Equal(t, "t", c.Sessions.Current().AccessToken)
}

func TestAPI_PostsAndComments(t *testing.T) {
	base := startServer(t)
	ctx := t.Context()
	author := signedIn(t, base, "author@example.com")
	stranger := signedIn(t, base, "stranger@example.com")
	anon := newClient(t, base)

	_, err := anon.API.CreatePost(ctx, "t", "c")
	assert.Equal(t, http.StatusUnauthorized, apiStatus(t, err))

	post, err := author.API.CreatePost(ctx, "First", "Body")
	require.NoError(t, err)
	assert.Equal(t, author.Sessions.Current().User.ID, post.UserID)

	posts, err := anon.API.ListPosts(ctx, ListPostsParams{Search: "First"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	title := "Renamed"
	updated, err := author.API.UpdatePost(ctx, post.ID, models.PostPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Body", updated.Content)

	_, err = stranger.API.UpdatePost(ctx, post.ID, models.PostPatch{Title: &title})
	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))

	comment, err := stranger.API.CreateComment(ctx, post.ID, "nice")
	require.NoError(t, err)
	assert.Equal(t, post.ID, comment.PostID)

	_, err = author.API.UpdateComment(ctx, post.ID, comment.ID, "hijack")
	assert.Equal(t, http.StatusForbidden, apiStatus(t, err))

	edited, err := stranger.API.UpdateComment(ctx, post.ID, comment.ID, "nicer")
	require.NoError(t, err)
	assert.Equal(t, "nicer", edited.Content)

	comments, err := anon.API.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "nicer", comments[0].Content)

	require.NoError(t, stranger.API.DeleteComment(ctx, post.ID, comment.ID))
	err = stranger.API.DeleteComment(ctx, post.ID, comment.ID)
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))

	require.NoError(t, author.API.DeletePost(ctx, post.ID))
	_, err = anon.API.GetPost(ctx, post.ID)
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
}

func TestAPI_NetworkFailure(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1")
	_, err := c.API.ListPosts(t.Context(), ListPostsParams{})
	assert.True(t, models.HasCode(err, models.CodeNetwork))
}

func nextEvent(t *testing.T, sub *Subscription) models.ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "stream ended: %v", sub.Err())
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no change event received")
		return models.ChangeEvent{}
	}
}

func TestRealtime_Subscribe(t *testing.T) {
	base := startServer(t)
	ctx := t.Context()
	author := signedIn(t, base, "rt@example.com")

	post, err := author.API.CreatePost(ctx, "Live", "Body")
	require.NoError(t, err)

	sub, err := newClient(t, base).Realtime.Subscribe(ctx, models.CommentsForPost(post.ID))
	require.NoError(t, err)
	defer sub.Close()

	// The server registers the subscription after the upgrade completes.
	var comment *models.Comment
	require.Eventually(t, func() bool {
		created, err := author.API.CreateComment(ctx, post.ID, "hello")
		if err != nil {
			return false
		}
		comment = created
		select {
		case ev := <-sub.Events():
			var row models.Comment
			return ev.DecodeRow(&row) == nil && row.ID == created.ID
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, author.API.DeleteComment(ctx, post.ID, comment.ID))
	for {
		ev := nextEvent(t, sub)
		if ev.EventType != models.EventDelete {
			continue
		}
		var row models.Comment
		require.NoError(t, ev.DecodeRow(&row))
		assert.Equal(t, comment.ID, row.ID)
		break
	}

	sub.Close()
	sub.Close()
	_, open := <-sub.Events()
	for open {
		_, open = <-sub.Events()
	}
	assert.NoError(t, sub.Err())
}

func TestRealtime_SubscribeRejectsBadFilter(t *testing.T) {
	base := startServer(t)

	_, err := newClient(t, base).Realtime.Subscribe(t.Context(), models.Filter{Table: "", Event: models.EventAll})
	assert.Equal(t, http.StatusBadRequest, apiStatus(t, err))
}
