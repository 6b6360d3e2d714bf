// Package reconcile applies change-feed events to the local cache: single
// item slots keyed by entity id plus any registered list views. Events are
// processed one at a time, fully and in arrival order; a bad message is
// logged and swallowed so it can never tear down the feed.
package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iudanet/realsync/internal/cache"
	"github.com/iudanet/realsync/internal/models"
)

// Reconciler consumes change events and keeps an injected cache.Store
// consistent with server state.
type Reconciler struct {
	store    cache.Store
	logger   *slog.Logger
	onChange func(models.ChangeEvent)
}

// New creates a reconciler writing through the given store.
func New(store cache.Store, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: logger,
	}
}

// OnChange registers an optional notification invoked after each applied
// event, so consumers can surface toasts or badges.
func (r *Reconciler) OnChange(fn func(models.ChangeEvent)) {
	r.onChange = fn
}

// Handle applies one change event to the cache. It never panics and never
// returns an error to the caller: reconciliation faults are logged and
// suppressed, keeping change-feed health decoupled from cache-mutation
// correctness.
func (r *Reconciler) Handle(ctx context.Context, event models.ChangeEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while reconciling change event",
				"entity_id", event.EntityID(),
				"event_type", string(event.Type),
				"panic", rec)
		}
	}()

	applied := false
	switch event.Type {
	case models.ChangeInsert:
		applied = r.applyUpsert(ctx, event.Entity)
	case models.ChangeUpdate:
		applied = r.applyUpsert(ctx, event.Entity)
	case models.ChangeDelete:
		applied = r.applyDelete(ctx, event)
	default:
		r.logger.Warn("unknown change event type, skipping",
			"event_type", string(event.Type),
			"entity_id", event.EntityID())
		return
	}

	if applied && r.onChange != nil {
		r.onChange(event)
	}
}

// applyUpsert writes the entity into its single-item slot and patches every
// registered list view, re-running the view's membership filter against the
// new entity state.
func (r *Reconciler) applyUpsert(ctx context.Context, entity models.Entity) bool {
	id := entity.ID()
	if id == "" {
		r.logger.Warn("change event entity has no id, skipping")
		return false
	}

	if err := r.store.Set(ctx, id, entity); err != nil {
		r.logger.Error("failed to update cache slot",
			"entity_id", id,
			"error", err)
		return false
	}

	for _, key := range r.store.ListKeys() {
		if err := r.patchList(ctx, key, entity); err != nil {
			r.logger.Error("failed to patch list view",
				"entity_id", id,
				"list_key", key,
				"error", err)
		}
	}
	return true
}

// patchList reconciles one list view with the new entity state: replace in
// place when the entity stays a member (preserving order), append when it
// becomes one, remove when it no longer matches the view's filter.
func (r *Reconciler) patchList(ctx context.Context, key string, entity models.Entity) error {
	filter, ok := r.store.ListFilter(key)
	if !ok {
		return nil // view dropped concurrently
	}
	member := filter == nil || filter(entity)

	items, err := r.store.List(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrListNotFound) {
			return nil
		}
		return err
	}

	id := entity.ID()
	found := false
	patched := make([]models.Entity, 0, len(items)+1)
	for _, item := range items {
		if item.ID() != id {
			patched = append(patched, item)
			continue
		}
		found = true
		if member {
			patched = append(patched, entity)
		}
	}
	if !found && member {
		patched = append(patched, entity)
	}
	if !found && !member {
		return nil // nothing to write
	}

	return r.store.SetList(ctx, key, patched)
}

// applyDelete removes the entity from its slot and from every list view.
// Deleting an id that is already absent is a no-op, not an error.
func (r *Reconciler) applyDelete(ctx context.Context, event models.ChangeEvent) bool {
	id := event.EntityID()
	if id == "" {
		r.logger.Warn("delete event has no entity id, skipping")
		return false
	}

	if err := r.store.Delete(ctx, id); err != nil {
		r.logger.Error("failed to delete cache slot",
			"entity_id", id,
			"error", err)
		return false
	}

	for _, key := range r.store.ListKeys() {
		if err := r.removeFromList(ctx, key, id); err != nil {
			r.logger.Error("failed to remove entity from list view",
				"entity_id", id,
				"list_key", key,
				"error", err)
		}
	}
	return true
}

func (r *Reconciler) removeFromList(ctx context.Context, key, id string) error {
	items, err := r.store.List(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrListNotFound) {
			return nil
		}
		return err
	}

	remaining := make([]models.Entity, 0, len(items))
	removed := false
	for _, item := range items {
		if item.ID() == id {
			removed = true
			continue
		}
		remaining = append(remaining, item)
	}
	if !removed {
		return nil
	}

	return r.store.SetList(ctx, key, remaining)
}
