package cache

import "errors"

// Common cache store errors
var (
	// ErrEntityNotFound indicates that no single-item slot exists for the id
	ErrEntityNotFound = errors.New("entity not found in cache")

	// ErrListNotFound indicates that no list view is registered for the key
	ErrListNotFound = errors.New("list view not found in cache")

	// ErrStoreClosed indicates that the store is closed
	ErrStoreClosed = errors.New("cache store is closed")
)
