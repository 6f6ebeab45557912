package notifications

import (
	"context"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PerCallerLimit(t *testing.T) {
	hub := NewHub()
	feed := NewFeed()

	for i := 0; i < maxConnsPerKey; i++ {
		_, err := hub.Register("user-1", nil, feed.Subscribe(models.CommentsForPost("p1")))
		require.NoError(t, err)
	}
	_, err := hub.Register("user-1", nil, feed.Subscribe(models.CommentsForPost("p1")))
	assert.ErrorIs(t, err, ErrCallerConnLimit)

	_, err = hub.Register("user-2", nil, feed.Subscribe(models.CommentsForPost("p1")))
	assert.NoError(t, err)
	assert.Equal(t, maxConnsPerKey+1, hub.Count())
}

func TestHub_UnregisterClient(t *testing.T) {
	hub := NewHub()
	feed := NewFeed()

	c, err := hub.Register("ip:127.0.0.1", nil, feed.Subscribe(models.CommentsForPost("p1")))
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Count())

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)
	assert.Equal(t, 0, hub.Count())
}

func TestHub_ShutdownClosesSubscriptions(t *testing.T) {
	hub := NewHub()
	feed := NewFeed()
	sub := feed.Subscribe(models.CommentsForPost("p1"))

	_, err := hub.Register("user-1", nil, sub)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Equal(t, 0, feed.Len())

	_, err = hub.Register("user-1", nil, feed.Subscribe(models.CommentsForPost("p1")))
	assert.ErrorIs(t, err, ErrHubShutdown)
}

func TestClient_TrySendReportsBackpressure(t *testing.T) {
	hub := NewHub()
	sub := NewFeed().Subscribe(models.CommentsForPost("p1"))
	c := NewClient(hub, nil, "user-1", sub)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.TrySend([]byte("x")))
	}
	assert.False(t, c.TrySend([]byte("overflow")))
	_, open := <-sub.Events()
	assert.False(t, open, "overflow ends the subscription")

	close(c.Send)
	assert.False(t, c.TrySend([]byte("after close")))
}
