package cache

import (
	"context"

	"github.com/iudanet/realsync/internal/models"
)

// Filter decides whether an entity belongs to a list view. A nil filter
// means unconditional membership.
type Filter func(models.Entity) bool

// Store defines the cache port the reconciler writes through. It is
// injected explicitly so tests can substitute an in-memory fake without
// touching shared state.
//
// The store holds two kinds of entries: single-item slots keyed by entity
// id, and list views keyed by an arbitrary view key. List views carry a
// membership filter registered by the consumer that created the view;
// reconciliation re-runs the filter against new entity state to decide
// membership.
type Store interface {
	// Get retrieves the cached entity for id.
	// Returns ErrEntityNotFound if no slot exists.
	Get(ctx context.Context, id string) (models.Entity, error)

	// Set stores or replaces the single-item slot for id.
	Set(ctx context.Context, id string, entity models.Entity) error

	// Delete removes the single-item slot for id.
	// Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// RegisterList declares a list view under key with its membership
	// filter. Registering an existing key replaces the filter and keeps
	// the cached items.
	RegisterList(key string, filter Filter)

	// DropList removes a list view and its cached items.
	DropList(key string)

	// List retrieves the cached items of a list view in insertion order.
	// Returns ErrListNotFound if the view was never registered.
	List(ctx context.Context, key string) ([]models.Entity, error)

	// SetList replaces the cached items of a list view. An unregistered
	// key is registered implicitly with a nil filter.
	SetList(ctx context.Context, key string, entities []models.Entity) error

	// ListKeys returns the keys of all registered list views.
	ListKeys() []string

	// ListFilter returns the membership filter for a registered view.
	// The second result is false if the view is unknown.
	ListFilter(key string) (Filter, bool)
}
