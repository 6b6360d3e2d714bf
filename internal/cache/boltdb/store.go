// Package boltdb provides a BoltDB-backed cache.Store so a watcher can keep
// its reconciled cache across restarts and serve reads while offline.
package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/iudanet/realsync/internal/cache"
	"github.com/iudanet/realsync/internal/models"
)

var (
	// BoltDB bucket names
	bucketEntities = []byte("entities")
	bucketLists    = []byte("lists")
)

// Store is the persistent cache implementation. Entities and list views are
// stored as JSON values; membership filters are functions and cannot be
// persisted, so they live in an in-memory registry that consumers rebuild
// on startup via RegisterList.
type Store struct {
	db      *bbolt.DB
	filters map[string]cache.Filter
	mu      sync.RWMutex
}

// New opens (or creates) the cache database at dbPath.
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	store := &Store{
		db:      db,
		filters: make(map[string]cache.Filter),
	}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEntities); err != nil {
			return fmt.Errorf("failed to create entities bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketLists); err != nil {
			return fmt.Errorf("failed to create lists bucket: %w", err)
		}
		return nil
	})
}

// Get retrieves the cached entity for id.
func (s *Store) Get(ctx context.Context, id string) (models.Entity, error) {
	if s.db == nil {
		return nil, cache.ErrStoreClosed
	}

	var entity models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntities).Get([]byte(id))
		if data == nil {
			return cache.ErrEntityNotFound
		}
		if err := json.Unmarshal(data, &entity); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entity, nil
}

// Set stores or replaces the single-item slot for id.
func (s *Store) Set(ctx context.Context, id string, entity models.Entity) error {
	if s.db == nil {
		return cache.ErrStoreClosed
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntities).Put([]byte(id), data)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// Delete removes the single-item slot for id. Absent ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.db == nil {
		return cache.ErrStoreClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntities).Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// RegisterList declares a list view with its membership filter.
// The filter registry is in-memory only; persisted items under the same
// key survive restarts and are served once the view is re-registered.
func (s *Store) RegisterList(key string, filter cache.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.filters[key] = filter
}

// DropList removes a list view, its filter and its persisted items.
func (s *Store) DropList(key string) {
	s.mu.Lock()
	delete(s.filters, key)
	s.mu.Unlock()

	if s.db == nil {
		return
	}
	// Best effort: a failed delete leaves orphaned items that are
	// replaced on the next SetList for the same key.
	_ = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLists).Delete([]byte(key))
	})
}

// List retrieves the cached items of a list view in insertion order.
func (s *Store) List(ctx context.Context, key string) ([]models.Entity, error) {
	if s.db == nil {
		return nil, cache.ErrStoreClosed
	}

	s.mu.RLock()
	_, registered := s.filters[key]
	s.mu.RUnlock()
	if !registered {
		return nil, cache.ErrListNotFound
	}

	var items []models.Entity

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketLists).Get([]byte(key))
		if data == nil {
			items = []models.Entity{}
			return nil
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("failed to unmarshal list: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// SetList replaces the cached items of a list view. An unregistered key is
// registered implicitly with a nil filter.
func (s *Store) SetList(ctx context.Context, key string, entities []models.Entity) error {
	if s.db == nil {
		return cache.ErrStoreClosed
	}

	s.mu.Lock()
	if _, ok := s.filters[key]; !ok {
		s.filters[key] = nil
	}
	s.mu.Unlock()

	if entities == nil {
		entities = []models.Entity{}
	}
	data, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("failed to marshal list: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLists).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// ListKeys returns the keys of all registered list views.
func (s *Store) ListKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.filters))
	for key := range s.filters {
		keys = append(keys, key)
	}
	return keys
}

// ListFilter returns the membership filter for a registered view.
func (s *Store) ListFilter(key string) (cache.Filter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter, ok := s.filters[key]
	return filter, ok
}
