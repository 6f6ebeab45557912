// Package client talks to the Inkwell API over HTTP and to its change feed over
// WebSockets. It is what the CLI and the comment reconciliation engine sit on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"inkwell/internal/models"
)

// DefaultTimeout bounds each HTTP request made by a client built with New.
const DefaultTimeout = 15 * time.Second

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Message string
	Code    string
}

func (e *Error) Error() string {
	return e.Message
}

// Client bundles the three client surfaces around one session.
type Client struct {
	API      *API
	Realtime *Realtime
	Sessions *Sessions
}

// New builds a client for the API at baseURL. httpClient may be nil.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	t, err := newTransport(baseURL, httpClient)
	if err != nil {
		return nil, err
	}
	sessions := &Sessions{t: t, listeners: make(map[int]func(*Session))}
	t.sessions = sessions

	return &Client{
		API:      &API{t: t},
		Realtime: newRealtime(t),
		Sessions: sessions,
	}, nil
}

// transport performs JSON requests against the API, attaching the current session's
// bearer token.
type transport struct {
	base     *url.URL
	http     *http.Client
	sessions *Sessions
}

func newTransport(baseURL string, httpClient *http.Client) (*transport, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https, got %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &transport{base: u, http: httpClient}, nil
}

func (t *transport) url(path string, query url.Values) string {
	u := *t.base
	u.Path = t.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (t *transport) token() string {
	if t.sessions == nil {
		return ""
	}
	if s := t.sessions.Current(); s != nil {
		return s.AccessToken
	}
	return ""
}

func (t *transport) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.url(path, query), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := t.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return models.NewNetworkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewNetworkError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// decodeError turns an error response into *Error, taking the message from the JSON
// body when there is one.
func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body models.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
		apiErr.Code = body.Code
	}
	return apiErr
}
