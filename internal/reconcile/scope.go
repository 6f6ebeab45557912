package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"inkwell/internal/client"
	"inkwell/internal/models"
)

// Inline error texts for rejected input.
const (
	ErrEmptyComment        = "Comment cannot be empty"
	ErrEmptyUpdatedComment = "Updated comment cannot be empty"
)

// resyncDelay is the pause before resubscribing after the feed ends a stream.
var resyncDelay = 250 * time.Millisecond

// CommentStore is the comment API a scope reads and writes through.
// *client.API satisfies it.
type CommentStore interface {
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
	CreateComment(ctx context.Context, postID, content string) (*models.Comment, error)
	UpdateComment(ctx context.Context, postID, commentID, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID string) error
}

// Stream is an open change-feed subscription. Close must close the Events channel.
type Stream interface {
	Events() <-chan models.ChangeEvent
	Close()
}

// SubscribeFunc opens a Stream for f.
type SubscribeFunc func(ctx context.Context, f models.Filter) (Stream, error)

// Realtime adapts a client realtime connection to a SubscribeFunc.
func Realtime(rt *client.Realtime) SubscribeFunc {
	return func(ctx context.Context, f models.Filter) (Stream, error) {
		sub, err := rt.Subscribe(ctx, f)
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
}

// State is a snapshot of a scope. Comments is a private copy.
type State struct {
	PostID   string
	Comments []models.Comment
	Error    string
	Draft    string
	Loaded   bool
}

// Option configures a Scope.
type Option func(*Scope)

// WithLogger sets the logger used for failures that are not surfaced in State.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scope) { s.logger = l }
}

// WithObserver registers fn as an OnChange observer before the scope starts.
func WithObserver(fn func(State)) Option {
	return func(s *Scope) {
		s.observers[s.nextObs] = fn
		s.nextObs++
	}
}

// Scope keeps the comment list of one post in sync. It runs the initial fetch and the
// live subscription concurrently; every state change happens under mu and is
// discarded once the scope is closed. When the feed ends the stream on its own (a
// subscriber that fell behind is cut off), the scope resubscribes and refetches.
type Scope struct {
	postID    string
	store     CommentStore
	subscribe SubscribeFunc
	logger    *slog.Logger

	mu     sync.Mutex
	coll   *Collection
	err    string
	draft  string
	loaded bool
	closed bool
	stream Stream
	// syncing is set while a fetch is outstanding; changes seen meanwhile are kept
	// in early and replayed on top of the fetch result
	syncing bool
	early   []models.ChangeEvent
	// gen identifies the current fetch; results of superseded fetches are dropped
	gen uint64
	// version counts commits; observers only ever see newer snapshots
	version uint64

	notifyMu  sync.Mutex
	notified  uint64
	observers map[int]func(State)
	nextObs   int

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Mount starts keeping postID's comments in sync. Use WithObserver to see every
// change from the first one.
func Mount(ctx context.Context, postID string, store CommentStore, subscribe SubscribeFunc, opts ...Option) *Scope {
	ctx, cancel := context.WithCancel(ctx)
	s := &Scope{
		postID:    postID,
		store:     store,
		subscribe: subscribe,
		logger:    slog.Default(),
		coll:      NewCollection(postID),
		syncing:   true,
		observers: make(map[int]func(State)),
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(2)
	go s.fetch(ctx, 0)
	go s.listen(ctx)
	return s
}

func (s *Scope) PostID() string { return s.postID }

func (s *Scope) fetch(ctx context.Context, gen uint64) {
	defer s.wg.Done()

	comments, err := s.store.ListComments(ctx, s.postID)

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch comments", slog.String("post_id", s.postID), slog.String("error", err.Error()))
	} else {
		s.coll.Reset(comments)
		for _, ev := range s.early {
			s.coll.Apply(ev)
		}
	}
	s.early = nil
	s.syncing = false
	s.loaded = true
	s.commitLocked()
}

func (s *Scope) listen(ctx context.Context) {
	defer s.wg.Done()

	for first := true; ; first = false {
		if !first {
			select {
			case <-ctx.Done():
				return
			case <-time.After(resyncDelay):
			}
		}

		stream, err := s.subscribe(ctx, models.CommentsForPost(s.postID))
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("failed to subscribe to comments", slog.String("post_id", s.postID), slog.String("error", err.Error()))
			}
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			stream.Close()
			return
		}
		s.stream = stream
		if !first {
			s.wg.Add(1)
			go s.fetch(ctx, s.gen)
		}
		s.mu.Unlock()

		if !s.drain(stream) {
			return
		}
		s.logger.Warn("comment stream ended, resyncing", slog.String("post_id", s.postID))
	}
}

// drain applies stream's events until it ends. It reports false if the scope was
// closed; otherwise the stream ended on its own and a new fetch generation has begun.
func (s *Scope) drain(stream Stream) bool {
	for ev := range stream.Events() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return false
		}
		if s.applyLocked(ev) {
			s.commitLocked()
		} else {
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.stream = nil
	s.gen++
	s.syncing = true
	s.early = nil
	return true
}

// applyLocked folds ev into the list, remembering it until the fetch lands.
func (s *Scope) applyLocked(ev models.ChangeEvent) bool {
	if s.syncing {
		s.early = append(s.early, ev)
	}
	return s.coll.Apply(ev)
}

// commitLocked snapshots the state, releases mu and notifies observers. A snapshot
// that lost the race to a newer one is skipped.
func (s *Scope) commitLocked() {
	s.version++
	st, v := s.stateLocked(), s.version
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if v <= s.notified {
		return
	}
	s.notified = v
	for _, fn := range s.observers {
		fn(st)
	}
}

func (s *Scope) stateLocked() State {
	return State{
		PostID:   s.postID,
		Comments: s.coll.Items(),
		Error:    s.err,
		Draft:    s.draft,
		Loaded:   s.loaded,
	}
}

// State returns the current snapshot.
func (s *Scope) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// OnChange registers fn to receive a snapshot after state changes, newest last. Calls
// are serialized and may coalesce. fn may call State but must not call the scope's
// mutating methods or Close.
func (s *Scope) OnChange(fn func(State)) (cancel func()) {
	s.notifyMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.observers, id)
			s.notifyMu.Unlock()
		})
	}
}

// Close tears the scope down. The subscription is released exactly once and nothing
// changes the state after Close returns. Later calls are no-ops.
func (s *Scope) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		stream := s.stream
		s.stream = nil
		s.mu.Unlock()

		s.cancel()
		if stream != nil {
			stream.Close()
		}
		s.wg.Wait()
	})
}

// mutate runs fn under the lock unless the scope is closed and notifies observers.
func (s *Scope) mutate(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn()
	s.commitLocked()
}

// SetDraft records the text the user is typing.
func (s *Scope) SetDraft(text string) {
	s.mutate(func() { s.draft = text })
}

// SubmitDraft adds the current draft as a comment.
func (s *Scope) SubmitDraft(ctx context.Context) error {
	return s.AddComment(ctx, s.State().Draft)
}

// AddComment creates a comment and shows it immediately. Blank content is rejected
// without a request. On failure the error is shown and the draft kept.
func (s *Scope) AddComment(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		s.mutate(func() { s.err = ErrEmptyComment })
		return models.NewValidationError(ErrEmptyComment)
	}

	created, err := s.store.CreateComment(ctx, s.postID, content)
	if err != nil {
		s.mutate(func() { s.err = err.Error() })
		return err
	}

	s.mutate(func() {
		s.applyLocked(localEvent(models.EventInsert, *created))
		s.draft = ""
		s.err = ""
	})
	return nil
}

// UpdateComment edits a comment and shows the result immediately.
func (s *Scope) UpdateComment(ctx context.Context, commentID, content string) error {
	if strings.TrimSpace(content) == "" {
		s.mutate(func() { s.err = ErrEmptyUpdatedComment })
		return models.NewValidationError(ErrEmptyUpdatedComment)
	}

	updated, err := s.store.UpdateComment(ctx, s.postID, commentID, content)
	if err != nil {
		s.mutate(func() { s.err = err.Error() })
		return err
	}

	s.mutate(func() {
		s.applyLocked(localEvent(models.EventUpdate, *updated))
		s.err = ""
	})
	return nil
}

// DeleteComment removes a comment. Failures are logged and leave the error slot alone.
func (s *Scope) DeleteComment(ctx context.Context, commentID string) error {
	if err := s.store.DeleteComment(ctx, s.postID, commentID); err != nil {
		s.logger.Error("failed to delete comment",
			slog.String("post_id", s.postID),
			slog.String("comment_id", commentID),
			slog.String("error", err.Error()))
		return err
	}

	s.mutate(func() {
		s.applyLocked(localEvent(models.EventDelete, models.Comment{ID: commentID, PostID: s.postID}))
	})
	return nil
}

func localEvent(et models.EventType, cm models.Comment) models.ChangeEvent {
	var newRow, oldRow any
	if et == models.EventDelete {
		oldRow = cm
	} else {
		newRow = cm
	}
	// Comment always marshals, so the error is unreachable.
	ev, _ := models.NewChangeEvent(models.TableComments, et, newRow, oldRow)
	return ev
}
