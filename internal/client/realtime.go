package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"inkwell/internal/models"

	"github.com/gorilla/websocket"
)

const (
	subscriptionBuffer = 64
	closeWriteWait     = time.Second
)

// Realtime opens change-feed subscriptions.
type Realtime struct {
	t      *transport
	dialer *websocket.Dialer
}

func newRealtime(t *transport) *Realtime {
	return &Realtime{
		t: t,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Subscribe opens a stream of change events matching f. The stream is live once
// Subscribe returns; call Close to stop it.
func (r *Realtime) Subscribe(ctx context.Context, f models.Filter) (*Subscription, error) {
	u := *r.t.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = r.t.base.Path + "/api/realtime"

	q := url.Values{}
	q.Set("table", f.Table)
	if f.Event != "" {
		q.Set("event", string(f.Event))
	}
	if p := f.Predicate(); p != "" {
		q.Set("filter", p)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	if token := r.t.token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := r.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			return nil, decodeError(resp)
		}
		return nil, models.NewNetworkError(err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	sub := &Subscription{
		filter: f,
		conn:   conn,
		events: make(chan models.ChangeEvent, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	sub.wg.Add(1)
	go sub.readLoop()
	return sub, nil
}

// Subscription is one open change-feed stream.
type Subscription struct {
	filter models.Filter
	conn   *websocket.Conn
	events chan models.ChangeEvent
	done   chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Events delivers matching events in order. The channel is closed when the stream
// ends, after which Err says why.
func (s *Subscription) Events() <-chan models.ChangeEvent {
	return s.events
}

func (s *Subscription) Filter() models.Filter {
	return s.filter
}

// Err returns the reason the stream ended, or nil if it is open or was closed by the
// caller or by a normal close from the server.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the stream and waits for the reader to stop. Once it returns nothing
// more is sent on Events. It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteWait))
		_ = s.conn.Close()
	})
	s.wg.Wait()
}

func (s *Subscription) readLoop() {
	defer s.wg.Done()
	defer close(s.events)

	for {
		var ev models.ChangeEvent
		if err := s.conn.ReadJSON(&ev); err != nil {
			s.finish(err)
			return
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *Subscription) finish(err error) {
	select {
	case <-s.done:
		return
	default:
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, io.EOF) {
		return
	}
	s.mu.Lock()
	s.err = fmt.Errorf("realtime stream: %w", err)
	s.mu.Unlock()
}
