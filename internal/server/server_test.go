package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecks(t *testing.T) {
	t.Run("ready without redis", func(t *testing.T) {
		s := newTestServer(t, nil)

		status, body := doJSON(t, s.App(), http.MethodGet, "/health/ready", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), `"redis":"disabled"`)
		assert.Contains(t, string(body), `"database":"healthy"`)
	})

	t.Run("unhealthy when redis is down", func(t *testing.T) {
		mr, rdb := testutil.NewRedis(t)
		s := newTestServer(t, rdb)
		mr.Close()

		status, body := doJSON(t, s.App(), http.MethodGet, "/health/ready", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Contains(t, string(body), `"redis":"unhealthy"`)
	})

	t.Run("live", func(t *testing.T) {
		s := newTestServer(t, nil)
		status, _ := doJSON(t, s.App(), http.MethodGet, "/health/live", "", nil)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	s := newTestServer(t, nil)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	app := s.App()

	_, _ = doJSON(t, app, http.MethodGet, "/api/posts", "", nil)

	status, body := doJSON(t, app, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := doJSON(t, s.App(), http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), `"message":"Cannot GET /api/nope"`)
}

func TestRedisWiredFeedDeliversAcrossInstances(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	db := testutil.NewSQLiteDB(t)

	writer, err := NewServerWithDeps(testConfig(), db, rdb)
	require.NoError(t, err)
	reader, err := NewServerWithDeps(testConfig(), db, rdb)
	require.NoError(t, err)
	t.Cleanup(func() { writer.shutdownFn(); reader.shutdownFn() })

	require.NoError(t, reader.StartWiring())

	sub := reader.feed.Subscribe(models.Filter{Table: models.TablePosts, Event: models.EventInsert})
	defer sub.Close()

	acct := signUp(t, writer.App(), "pubsub@example.com")
	status, _ := doJSON(t, writer.App(), http.MethodPost, "/api/posts", acct.Token, map[string]string{"title": "t", "content": "c"})
	require.Equal(t, http.StatusCreated, status)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, models.TablePosts, ev.Table)
	case <-time.After(5 * time.Second):
		t.Fatal("change event was not delivered through redis")
	}
}
