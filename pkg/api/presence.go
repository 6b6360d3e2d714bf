package api

import "time"

// PresenceMeta describes one tracked actor on a presence channel.
type PresenceMeta struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"` // "viewing" or "editing"
}

// PresenceStatePayload is the body of an EventPresenceState frame: the full,
// authoritative presence map for a topic, keyed by presence key (user id).
type PresenceStatePayload map[string][]PresenceMeta

// PresenceDiffPayload is the body of an EventPresenceDiff frame: incremental
// joins and leaves layered on top of the last state snapshot.
type PresenceDiffPayload struct {
	Joins  map[string][]PresenceMeta `json:"joins"`
	Leaves map[string][]PresenceMeta `json:"leaves"`
}

// TrackPayload is the body of an EventTrack frame.
type TrackPayload struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
}
