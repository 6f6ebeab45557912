package server

import (
	"net/http"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	app := s.App()
	author := signUp(t, app, "author@example.com")
	reader := signUp(t, app, "reader@example.com")

	_, body := doJSON(t, app, http.MethodPost, "/api/posts", author.Token, map[string]string{"title": "T", "content": "C"})
	post := decode[models.Post](t, body)
	_, body = doJSON(t, app, http.MethodPost, "/api/posts", author.Token, map[string]string{"title": "Other", "content": "C"})
	otherPost := decode[models.Post](t, body)

	status, body := doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/comments", reader.Token, map[string]string{
		"content": " Nice post ", "postId": otherPost.ID,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	comment := decode[models.Comment](t, body)
	assert.Equal(t, "Nice post", comment.Content)
	assert.Equal(t, post.ID, comment.PostID, "path post wins over body")
	assert.Equal(t, reader.UserID, comment.UserID)

	status, _ = doJSON(t, app, http.MethodPost, "/api/posts/"+post.ID+"/comments", reader.Token, map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/posts/missing/comments", reader.Token, map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/posts/"+post.ID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, status)
	comments := decode[[]models.Comment](t, body)
	require.Len(t, comments, 1)
	assert.Equal(t, comment.ID, comments[0].ID)

	status, _ = doJSON(t, app, http.MethodGet, "/api/posts/missing/comments", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	commentPath := "/api/posts/" + post.ID + "/comments/" + comment.ID

	status, _ = doJSON(t, app, http.MethodPut, commentPath, author.Token, map[string]string{"content": "mine now"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodPut, "/api/posts/"+otherPost.ID+"/comments/"+comment.ID, reader.Token, map[string]string{"content": "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = doJSON(t, app, http.MethodPut, commentPath, reader.Token, map[string]string{"content": "Edited"})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "Edited", decode[models.Comment](t, body).Content)

	status, _ = doJSON(t, app, http.MethodDelete, commentPath, author.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodDelete, commentPath, reader.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = doJSON(t, app, http.MethodDelete, commentPath, reader.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	_, body = doJSON(t, app, http.MethodGet, "/api/posts/"+post.ID+"/comments", "", nil)
	assert.JSONEq(t, `[]`, string(body))
}
