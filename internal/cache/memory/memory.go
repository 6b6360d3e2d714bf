// Package memory provides the in-memory cache.Store implementation used by
// the reconciler in steady state and by tests.
package memory

import (
	"context"
	"sync"

	"github.com/iudanet/realsync/internal/cache"
	"github.com/iudanet/realsync/internal/models"
)

type listView struct {
	filter cache.Filter
	items  []models.Entity
}

// Store is a mutex-guarded keyed cache. Reads return clones so callers
// can never mutate cached state in place.
type Store struct {
	entities map[string]models.Entity
	lists    map[string]*listView
	mu       sync.RWMutex
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		entities: make(map[string]models.Entity),
		lists:    make(map[string]*listView),
	}
}

// Get retrieves the cached entity for id.
func (s *Store) Get(_ context.Context, id string) (models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entities[id]
	if !ok {
		return nil, cache.ErrEntityNotFound
	}
	return entity.Clone(), nil
}

// Set stores or replaces the single-item slot for id.
func (s *Store) Set(_ context.Context, id string, entity models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entities[id] = entity.Clone()
	return nil
}

// Delete removes the single-item slot for id. Absent ids are a no-op.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entities, id)
	return nil
}

// RegisterList declares a list view with its membership filter.
func (s *Store) RegisterList(key string, filter cache.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if view, ok := s.lists[key]; ok {
		view.filter = filter
		return
	}
	s.lists[key] = &listView{filter: filter}
}

// DropList removes a list view and its cached items.
func (s *Store) DropList(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.lists, key)
}

// List retrieves the cached items of a list view in insertion order.
func (s *Store) List(_ context.Context, key string) ([]models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, ok := s.lists[key]
	if !ok {
		return nil, cache.ErrListNotFound
	}

	items := make([]models.Entity, 0, len(view.items))
	for _, item := range view.items {
		items = append(items, item.Clone())
	}
	return items, nil
}

// SetList replaces the cached items of a list view.
func (s *Store) SetList(_ context.Context, key string, entities []models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.lists[key]
	if !ok {
		view = &listView{}
		s.lists[key] = view
	}

	items := make([]models.Entity, 0, len(entities))
	for _, entity := range entities {
		items = append(items, entity.Clone())
	}
	view.items = items
	return nil
}

// ListKeys returns the keys of all registered list views.
func (s *Store) ListKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.lists))
	for key := range s.lists {
		keys = append(keys, key)
	}
	return keys
}

// ListFilter returns the membership filter for a registered view.
func (s *Store) ListFilter(key string) (cache.Filter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, ok := s.lists[key]
	if !ok {
		return nil, false
	}
	return view.filter, true
}
