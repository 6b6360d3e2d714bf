package models

import "time"

// ConflictRecord captures a detected divergence between a locally held,
// newer-looking version of an entity and an incoming remote version.
// At most one record exists per entity id; resolving removes it.
type ConflictRecord struct {
	DetectedAt time.Time
	EntityID   string
	Local      Entity
	Remote     Entity
}
