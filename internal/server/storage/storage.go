package storage

import (
	"context"

	"github.com/iudanet/realsync/internal/models"
)

// EntityStorage defines the interface for server-side entity persistence.
// Collections are schemaless: each row is a JSON object addressed by
// (collection, id).
type EntityStorage interface {
	// Upsert creates or replaces an entity in a collection.
	Upsert(ctx context.Context, collection string, entity models.Entity) error

	// Get retrieves a single entity by id.
	// Returns ErrEntityNotFound if the entity doesn't exist.
	Get(ctx context.Context, collection, id string) (models.Entity, error)

	// List retrieves all entities of a collection ordered by id.
	// Returns an empty slice if the collection is empty.
	List(ctx context.Context, collection string) ([]models.Entity, error)

	// Delete removes an entity.
	// Returns ErrEntityNotFound if the entity doesn't exist.
	Delete(ctx context.Context, collection, id string) error
}
