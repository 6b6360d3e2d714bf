package models

import "time"

// ChangeType classifies a change-feed event.
type ChangeType string

const (
	ChangeInsert  ChangeType = "INSERT"
	ChangeUpdate  ChangeType = "UPDATE"
	ChangeDelete  ChangeType = "DELETE"
	ChangeUnknown ChangeType = ""
)

// ChangeEvent is one row-level mutation received from the change feed.
// Entity is the post-image (nil on DELETE); Previous is the pre-image,
// present on UPDATE and DELETE when the transport supplies it.
// Events are transient: consumed once per emission, never retained.
type ChangeEvent struct {
	Timestamp time.Time
	Entity    Entity
	Previous  Entity
	Type      ChangeType
}

// EntityID returns the id of the affected entity, falling back to the
// pre-image for DELETE events.
func (ev ChangeEvent) EntityID() string {
	if id := ev.Entity.ID(); id != "" {
		return id
	}
	return ev.Previous.ID()
}

// ParseChangeType maps a wire eventType string onto a ChangeType.
// Unrecognized values map to ChangeUnknown; the reconciler treats those
// as a diagnostic, not an error.
func ParseChangeType(s string) ChangeType {
	switch s {
	case string(ChangeInsert):
		return ChangeInsert
	case string(ChangeUpdate):
		return ChangeUpdate
	case string(ChangeDelete):
		return ChangeDelete
	default:
		return ChangeUnknown
	}
}
