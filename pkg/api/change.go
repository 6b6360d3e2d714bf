package api

import "time"

// Change event types as emitted by the server change feed.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// ChangePayload is the body of an EventChange frame: one row-level mutation
// on a collection. New is the post-image (absent on DELETE), Old the
// pre-image (absent on INSERT).
type ChangePayload struct {
	EventType string         `json:"eventType"`
	New       map[string]any `json:"new,omitempty"`
	Old       map[string]any `json:"old,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
