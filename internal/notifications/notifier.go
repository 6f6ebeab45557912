// Package notifications carries row change events from the API to live subscribers,
// across server instances through Redis pub/sub and to clients over WebSockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

const changesChannelPrefix = "changes:"

// ChangesChannel derives the Redis channel a table's change events are published on.
func ChangesChannel(table string) string {
	return changesChannelPrefix + table
}

// Notifier publishes change events. With Redis every instance's Feed receives them
// through StartChangeSubscriber; without Redis they go straight to the local Feed.
type Notifier struct {
	rdb  *redis.Client
	feed *Feed
}

// NewNotifier creates a Notifier. rdb may be nil.
func NewNotifier(rdb *redis.Client, feed *Feed) *Notifier {
	return &Notifier{rdb: rdb, feed: feed}
}

// PublishChange fans ev out to subscribers.
func (n *Notifier) PublishChange(ctx context.Context, ev models.ChangeEvent) error {
	observability.ChangeEventsPublished.WithLabelValues(ev.Table, string(ev.EventType)).Inc()

	if n.rdb == nil {
		if n.feed != nil {
			n.feed.Dispatch(ev)
		}
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return n.rdb.Publish(ctx, ChangesChannel(ev.Table), payload).Err()
}

// StartChangeSubscriber subscribes to every changes:* channel and calls onMessage for
// each message until ctx is cancelled. It returns once the subscription is live.
func (n *Notifier) StartChangeSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}

	sub := n.rdb.PSubscribe(ctx, changesChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to change feed: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in change subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// tableFromChannel is the inverse of ChangesChannel.
func tableFromChannel(channel string) (string, bool) {
	table, ok := strings.CutPrefix(channel, changesChannelPrefix)
	return table, ok && table != ""
}
