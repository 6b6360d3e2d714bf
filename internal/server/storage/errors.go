package storage

import "errors"

// Common server storage errors
var (
	// ErrEntityNotFound indicates that the entity doesn't exist
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidEntity indicates that the entity is missing required fields
	ErrInvalidEntity = errors.New("entity is missing required fields")
)
