package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChangeEventsPublished counts change events handed to the feed, by table and type.
	ChangeEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_change_events_published_total",
		Help: "Total number of change events published",
	}, []string{"table", "event_type"})

	// ChangeEventsDelivered counts change events written to realtime subscribers.
	ChangeEventsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_change_events_delivered_total",
		Help: "Total number of change events delivered to subscribers",
	}, []string{"table"})

	// RealtimeSubscriptions is the number of live change feed subscriptions.
	RealtimeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_realtime_subscriptions",
		Help: "Number of live change feed subscriptions",
	})

	// WebSocketBackpressureDrops counts messages dropped for slow subscribers.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// PostCacheLookups counts post cache hits and misses.
	PostCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_post_cache_lookups_total",
		Help: "Post cache lookups by result",
	}, []string{"result"})
)
