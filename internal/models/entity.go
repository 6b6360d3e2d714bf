package models

import "reflect"

// Well-known entity fields. Every synchronized row carries both.
const (
	FieldID        = "id"
	FieldUpdatedAt = "updated_at"
)

// Entity represents one synchronized record as delivered by the change feed.
// Rows are schemaless JSON objects; the shape is whatever the server-side
// collection holds. Only "id" and "updated_at" are interpreted by this
// package: "id" addresses the cache slot and "updated_at" (ISO-8601 string,
// lexicographically comparable) orders concurrent versions.
type Entity map[string]any

// ID returns the entity identifier, or "" if the field is missing.
func (e Entity) ID() string {
	id, _ := e[FieldID].(string)
	return id
}

// UpdatedAt returns the last-modified timestamp string, or "" if missing.
func (e Entity) UpdatedAt() string {
	ts, _ := e[FieldUpdatedAt].(string)
	return ts
}

// Clone returns a copy of the entity. Field values are JSON scalars and are
// copied by value; nested objects keep shared references.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	clone := make(Entity, len(e))
	for k, v := range e {
		clone[k] = v
	}
	return clone
}

// NewerThan reports whether e was modified strictly after other,
// comparing updated_at timestamps lexicographically.
func (e Entity) NewerThan(other Entity) bool {
	return e.UpdatedAt() > other.UpdatedAt()
}

// Merge returns a copy of e with every field of patch applied on top.
// Fields absent from patch keep e's value.
func (e Entity) Merge(patch Entity) Entity {
	merged := e.Clone()
	if merged == nil {
		merged = make(Entity, len(patch))
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// Equal reports whether two entities hold the same fields and values.
func (e Entity) Equal(other Entity) bool {
	if len(e) != len(other) {
		return false
	}
	return reflect.DeepEqual(map[string]any(e), map[string]any(other))
}
