package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := Connect(context.Background(), mr.Addr())
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewStore(client)
}

func TestStore_Aside(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *models.Post) func() error {
		return func() error {
			calls++
			*dest = models.Post{ID: "p1", Title: "Hello"}
			return nil
		}
	}

	var first models.Post
	hit, err := store.Aside(ctx, PostKey("p1"), &first, PostTTL, fetch(&first))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Hello", first.Title)
	assert.True(t, mr.Exists(PostKey("p1")))

	var second models.Post
	hit, err = store.Aside(ctx, PostKey("p1"), &second, PostTTL, fetch(&second))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, calls)

	require.NoError(t, store.Invalidate(ctx, PostKey("p1")))
	assert.False(t, mr.Exists(PostKey("p1")))
}

func TestStore_AsideFetchError(t *testing.T) {
	mr, store := setupStore(t)

	var p models.Post
	_, err := store.Aside(context.Background(), PostKey("missing"), &p, PostTTL, func() error {
		return models.NewNotFoundError("Post", "missing")
	})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.False(t, mr.Exists(PostKey("missing")), "failures are not cached")
}

func TestStore_TTL(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "k", map[string]int{"a": 1}, time.Minute))
	mr.FastForward(2 * time.Minute)

	var v map[string]int
	found, err := store.GetJSON(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_NilClient(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	found, err := store.GetJSON(ctx, "k", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, store.SetJSON(ctx, "k", 1, time.Minute))
	assert.NoError(t, store.Invalidate(ctx, "k"))

	fetchErr := errors.New("db down")
	_, err = store.Aside(ctx, "k", &struct{}{}, time.Minute, func() error { return fetchErr })
	assert.ErrorIs(t, err, fetchErr)
}

func TestConnect_Unreachable(t *testing.T) {
	assert.Nil(t, Connect(context.Background(), "127.0.0.1:1"))
	assert.Nil(t, Connect(context.Background(), "redis://%zz"))
}
