package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventType names the kind of row change carried by a ChangeEvent.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	// EventAll matches every event type in a Filter.
	EventAll EventType = "*"
)

// Table names published on the change feed.
const (
	TablePosts    = "posts"
	TableComments = "comments"
)

// ChangeEvent is a row insert/update/delete notification on a watched table.
// New holds the row after the change, Old the row before it. DELETE events carry
// the full Old row so row filters can match them.
type ChangeEvent struct {
	Table           string          `json:"table"`
	EventType       EventType       `json:"eventType"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// NewChangeEvent builds an event from row values. Either row may be nil.
func NewChangeEvent(table string, eventType EventType, newRow, oldRow any) (ChangeEvent, error) {
	ev := ChangeEvent{
		Table:           table,
		EventType:       eventType,
		CommitTimestamp: time.Now().UTC(),
	}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			return ChangeEvent{}, fmt.Errorf("marshal new row: %w", err)
		}
		ev.New = b
	}
	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		if err != nil {
			return ChangeEvent{}, fmt.Errorf("marshal old row: %w", err)
		}
		ev.Old = b
	}
	return ev, nil
}

// Row returns the row image that identifies the changed record: Old for deletes,
// New otherwise, falling back to whichever is present.
func (e ChangeEvent) Row() json.RawMessage {
	if e.EventType == EventDelete && len(e.Old) > 0 {
		return e.Old
	}
	if len(e.New) > 0 {
		return e.New
	}
	return e.Old
}

// DecodeRow unmarshals Row() into dst.
func (e ChangeEvent) DecodeRow(dst any) error {
	row := e.Row()
	if len(row) == 0 {
		return fmt.Errorf("%s event on %s carries no row", e.EventType, e.Table)
	}
	return json.Unmarshal(row, dst)
}

// Filter selects change events by table, event type and an optional equality
// predicate on one column of the row, written as "column=eq.value".
type Filter struct {
	Table  string    `json:"table"`
	Event  EventType `json:"event"`
	Column string    `json:"column,omitempty"`
	Value  string    `json:"value,omitempty"`
}

// CommentsForPost is the filter a per-post comment view subscribes with.
func CommentsForPost(postID string) Filter {
	return Filter{Table: TableComments, Event: EventAll, Column: "postId", Value: postID}
}

// ParseFilter builds a Filter from its wire form. An empty event means "*"; an
// empty predicate means every row of the table.
func ParseFilter(table, event, predicate string) (Filter, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return Filter{}, NewValidationError("table is required")
	}

	f := Filter{Table: table, Event: EventAll}
	switch et := EventType(strings.ToUpper(strings.TrimSpace(event))); et {
	case "", EventAll:
	case EventInsert, EventUpdate, EventDelete:
		f.Event = et
	default:
		return Filter{}, NewValidationError(fmt.Sprintf("unknown event type %q", event))
	}

	predicate = strings.TrimSpace(predicate)
	if predicate == "" {
		return f, nil
	}
	column, value, ok := strings.Cut(predicate, "=eq.")
	if !ok || column == "" || value == "" {
		return Filter{}, NewValidationError(fmt.Sprintf("unsupported filter %q, expected column=eq.value", predicate))
	}
	f.Column = column
	f.Value = value
	return f, nil
}

// Predicate renders the row predicate in its wire form, or "" when there is none.
func (f Filter) Predicate() string {
	if f.Column == "" {
		return ""
	}
	return f.Column + "=eq." + f.Value
}

// Matches reports whether the event passes the filter.
func (f Filter) Matches(e ChangeEvent) bool {
	if f.Table != e.Table {
		return false
	}
	if f.Event != "" && f.Event != EventAll && f.Event != e.EventType {
		return false
	}
	if f.Column == "" {
		return true
	}

	var row map[string]any
	if err := e.DecodeRow(&row); err != nil {
		return false
	}
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}
