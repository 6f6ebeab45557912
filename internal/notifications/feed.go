package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
)

const defaultSubscriptionBuffer = 64

// Feed matches change events against subscription filters within one process.
type Feed struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{
		subs:   make(map[*Subscription]struct{}),
		buffer: defaultSubscriptionBuffer,
	}
}

// Name identifies the feed in backpressure metrics.
func (f *Feed) Name() string { return "change feed" }

// Subscription receives the events that pass its filter, in publish order.
type Subscription struct {
	feed   *Feed
	filter models.Filter
	events chan models.ChangeEvent
	once   sync.Once
}

// Subscribe registers filter. On a shut-down feed the returned subscription is already
// closed.
func (f *Feed) Subscribe(filter models.Filter) *Subscription {
	s := &Subscription{
		feed:   f,
		filter: filter,
		events: make(chan models.ChangeEvent, f.buffer),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		s.once.Do(func() { close(s.events) })
		return s
	}
	f.subs[s] = struct{}{}
	observability.RealtimeSubscriptions.Inc()
	return s
}

// Events is closed when the subscription is.
func (s *Subscription) Events() <-chan models.ChangeEvent { return s.events }

// Filter returns the filter the subscription was opened with.
func (s *Subscription) Filter() models.Filter { return s.filter }

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	s.once.Do(func() {
		if _, ok := s.feed.subs[s]; ok {
			delete(s.feed.subs, s)
			observability.RealtimeSubscriptions.Dec()
		}
		close(s.events)
	})
}

// Dispatch delivers ev to every matching subscription and returns how many received
// it. A subscriber whose buffer is full has fallen behind: its subscription is closed
// so the consumer sees the stream end and resynchronizes instead of missing events.
func (f *Feed) Dispatch(ev models.ChangeEvent) int {
	f.mu.RLock()
	delivered := 0
	var overflowed []*Subscription
	for s := range f.subs {
		if !s.filter.Matches(ev) {
			continue
		}
		select {
		case s.events <- ev:
			delivered++
		default:
			overflowed = append(overflowed, s)
		}
	}
	f.mu.RUnlock()

	if delivered > 0 {
		observability.ChangeEventsDelivered.WithLabelValues(ev.Table).Add(float64(delivered))
	}
	for _, s := range overflowed {
		observability.WebSocketBackpressureDrops.WithLabelValues(f.Name(), "full").Inc()
		middleware.Logger.Warn("change feed subscriber fell behind, closing subscription",
			slog.String("table", ev.Table),
			slog.String("filter", s.filter.Predicate()),
		)
		s.Close()
	}
	return delivered
}

// Len returns the number of open subscriptions.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// StartWiring feeds events published through Redis by any instance into f.
func (f *Feed) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartChangeSubscriber(ctx, func(channel, payload string) {
		table, ok := tableFromChannel(channel)
		if !ok {
			middleware.Logger.Warn("invalid change channel", slog.String("channel", channel))
			return
		}
		var ev models.ChangeEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			middleware.Logger.Warn("undecodable change event",
				slog.String("channel", channel), slog.String("error", err.Error()))
			return
		}
		if ev.Table == "" {
			ev.Table = table
		}
		f.Dispatch(ev)
	})
}

// Shutdown closes every subscription and rejects new ones.
func (f *Feed) Shutdown(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for s := range f.subs {
		s.closeLocked()
	}
	return nil
}
