package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/realsync/internal/models"
	"github.com/iudanet/realsync/internal/server/storage"
)

// Upsert creates or replaces an entity in a collection.
// The entity must carry id and updated_at fields.
func (s *Storage) Upsert(ctx context.Context, collection string, entity models.Entity) error {
	id := entity.ID()
	updatedAt := entity.UpdatedAt()
	if id == "" || updatedAt == "" {
		return storage.ErrInvalidEntity
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	query := `
		INSERT INTO entities (collection, id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, collection, id, string(data), updatedAt); err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}

	return nil
}

// Get retrieves a single entity by id.
func (s *Storage) Get(ctx context.Context, collection, id string) (models.Entity, error) {
	query := `SELECT data FROM entities WHERE collection = ? AND id = ?`

	var data string
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}

	var entity models.Entity
	if err := json.Unmarshal([]byte(data), &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}

	return entity, nil
}

// List retrieves all entities of a collection ordered by id.
func (s *Storage) List(ctx context.Context, collection string) ([]models.Entity, error) {
	query := `SELECT data FROM entities WHERE collection = ? ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	entities := []models.Entity{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}

		var entity models.Entity
		if err := json.Unmarshal([]byte(data), &entity); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entities: %w", err)
	}

	return entities, nil
}

// Delete removes an entity.
func (s *Storage) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE FROM entities WHERE collection = ? AND id = ?`

	result, err := s.db.ExecContext(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrEntityNotFound
	}

	return nil
}
