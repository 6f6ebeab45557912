package reconcile

import (
	"context"
	"sync"
)

// View shows the comments of one post at a time. Showing another post tears down the
// previous scope before the new one starts.
type View struct {
	store     CommentStore
	subscribe SubscribeFunc
	onChange  func(State)
	opts      []Option

	mu    sync.Mutex
	scope *Scope
}

// NewView returns a view that reports every state change of the shown post to
// onChange, which may be nil.
func NewView(store CommentStore, subscribe SubscribeFunc, onChange func(State), opts ...Option) *View {
	return &View{store: store, subscribe: subscribe, onChange: onChange, opts: opts}
}

// Show switches the view to postID and returns its scope.
func (v *View) Show(ctx context.Context, postID string) *Scope {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.closeLocked()

	opts := v.opts
	if v.onChange != nil {
		opts = append(opts[:len(opts):len(opts)], WithObserver(v.onChange))
	}
	scope := Mount(ctx, postID, v.store, v.subscribe, opts...)
	v.scope = scope
	return scope
}

// Current returns the scope being shown, or nil.
func (v *View) Current() *Scope {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scope
}

// Close tears down the shown scope.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeLocked()
}

func (v *View) closeLocked() {
	if v.scope == nil {
		return
	}
	v.scope.Close()
	v.scope = nil
}
