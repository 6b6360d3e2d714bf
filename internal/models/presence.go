package models

import "time"

// PresenceAction says what a tracked actor is doing with an entity.
type PresenceAction string

const (
	ActionViewing PresenceAction = "viewing"
	ActionEditing PresenceAction = "editing"
)

// PresenceEntry is one actor currently present on an entity's channel.
// Entries are ephemeral: created on track, removed on untrack or leave,
// and wholly replaced by a presence sync snapshot.
type PresenceEntry struct {
	Timestamp time.Time
	UserID    string
	Username  string
	Action    PresenceAction
}
