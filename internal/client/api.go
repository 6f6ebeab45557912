package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"inkwell/internal/models"
)

// API wraps the post and comment endpoints.
type API struct {
	t *transport
}

// ListPostsParams selects a page of posts. Zero values use the server defaults.
type ListPostsParams struct {
	Page   int
	Limit  int
	Search string
}

func (a *API) ListPosts(ctx context.Context, p ListPostsParams) ([]models.Post, error) {
	q := url.Values{}
	if p.Page != 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit != 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}

	var posts []models.Post
	if err := a.t.do(ctx, http.MethodGet, "/api/posts", q, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (a *API) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := a.t.do(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(id), nil, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (a *API) CreatePost(ctx context.Context, title, content string) (*models.Post, error) {
	in := map[string]string{"title": title, "content": content}
	var post models.Post
	if err := a.t.do(ctx, http.MethodPost, "/api/posts", nil, in, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost changes only the fields set in patch.
func (a *API) UpdatePost(ctx context.Context, id string, patch models.PostPatch) (*models.Post, error) {
	var post models.Post
	if err := a.t.do(ctx, http.MethodPut, "/api/posts/"+url.PathEscape(id), nil, patch, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (a *API) DeletePost(ctx context.Context, id string) error {
	return a.t.do(ctx, http.MethodDelete, "/api/posts/"+url.PathEscape(id), nil, nil, nil)
}

func commentsPath(postID string) string {
	return "/api/posts/" + url.PathEscape(postID) + "/comments"
}

func (a *API) ListComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := a.t.do(ctx, http.MethodGet, commentsPath(postID), nil, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (a *API) CreateComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	in := map[string]string{"content": content, "postId": postID}
	var comment models.Comment
	if err := a.t.do(ctx, http.MethodPost, commentsPath(postID), nil, in, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (a *API) UpdateComment(ctx context.Context, postID, commentID, content string) (*models.Comment, error) {
	in := map[string]string{"content": content}
	var comment models.Comment
	path := commentsPath(postID) + "/" + url.PathEscape(commentID)
	if err := a.t.do(ctx, http.MethodPut, path, nil, in, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (a *API) DeleteComment(ctx context.Context, postID, commentID string) error {
	path := commentsPath(postID) + "/" + url.PathEscape(commentID)
	return a.t.do(ctx, http.MethodDelete, path, nil, nil, nil)
}
