// Package watch wires the realtime pieces together for one entity
// collection: a change-feed connection reconciling into an injected cache,
// a conflict detector guarding optimistic edits, and per-entity presence
// trackers on the side.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/realsync/internal/cache"
	"github.com/iudanet/realsync/internal/conflict"
	"github.com/iudanet/realsync/internal/feed"
	"github.com/iudanet/realsync/internal/models"
	"github.com/iudanet/realsync/internal/presence"
	"github.com/iudanet/realsync/internal/reconcile"
	"github.com/iudanet/realsync/internal/transport"
)

// Options configures a watcher.
type Options struct {
	// Collection names the synchronized collection, e.g. "members".
	// The change feed topic is derived as "<collection>-changes".
	Collection string

	// Feed tunes the underlying connection. Topic is filled in from
	// Collection when empty.
	Feed feed.Options

	// Actor identifies the local user for presence announcements.
	Actor presence.Actor
}

// Watcher keeps one collection's local cache consistent with the server.
type Watcher struct {
	transport  transport.Transport
	store      cache.Store
	logger     *slog.Logger
	collection string
	actor      presence.Actor

	conn       *feed.Connection
	reconciler *reconcile.Reconciler
	detector   *conflict.Detector

	mu       sync.Mutex
	ctx      context.Context
	trackers map[string]*presence.Tracker
}

// New creates a stopped watcher over the given transport and cache store.
func New(t transport.Transport, store cache.Store, opts Options, logger *slog.Logger) *Watcher {
	if opts.Feed.Topic == "" {
		opts.Feed.Topic = opts.Collection + "-changes"
	}

	w := &Watcher{
		transport:  t,
		store:      store,
		logger:     logger,
		collection: opts.Collection,
		actor:      opts.Actor,
		conn:       feed.New(t, opts.Feed, logger),
		reconciler: reconcile.New(store, logger),
		detector:   conflict.New(store, logger),
		trackers:   make(map[string]*presence.Tracker),
	}
	w.conn.OnEvent(w.handleEvent)
	return w
}

// OnChange registers the notification invoked after each reconciled event.
func (w *Watcher) OnChange(fn func(models.ChangeEvent)) {
	w.reconciler.OnChange(fn)
}

// OnStatus registers the connection status callback.
func (w *Watcher) OnStatus(fn func(models.ConnectionStatus)) {
	w.conn.OnStatus(fn)
}

// Start connects the change feed. The context bounds the watcher lifecycle.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	if err := w.conn.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect change feed: %w", err)
	}
	return nil
}

// Stop disconnects the feed and releases every presence channel.
func (w *Watcher) Stop() {
	w.conn.Disconnect()

	w.mu.Lock()
	trackers := w.trackers
	w.trackers = make(map[string]*presence.Tracker)
	w.mu.Unlock()

	for _, tracker := range trackers {
		tracker.Close()
	}
}

// Status returns the change-feed connection status.
func (w *Watcher) Status() models.ConnectionStatus {
	return w.conn.Status()
}

// Reconnect forces a fresh feed subscription.
func (w *Watcher) Reconnect(ctx context.Context) error {
	return w.conn.Reconnect(ctx)
}

// Conflicts returns the pending conflicts, ordered by entity id.
func (w *Watcher) Conflicts() []models.ConflictRecord {
	return w.detector.Conflicts()
}

// Resolve collapses one conflict with the given strategy.
func (w *Watcher) Resolve(ctx context.Context, id string, strategy conflict.Strategy, patch models.Entity) (models.Entity, bool) {
	return w.detector.Resolve(ctx, id, strategy, patch)
}

// AutoResolve collapses one conflict per policy.
func (w *Watcher) AutoResolve(ctx context.Context, id string, policy conflict.Policy) (models.Entity, bool) {
	return w.detector.AutoResolve(ctx, id, policy)
}

// ApplyOptimistic writes a foreground edit straight into the cache, ahead
// of server confirmation. The entry's updated_at should reflect the edit
// time; the conflict detector compares it against later remote versions.
func (w *Watcher) ApplyOptimistic(ctx context.Context, entity models.Entity) error {
	id := entity.ID()
	if id == "" {
		return fmt.Errorf("optimistic write requires an entity id")
	}
	if err := w.store.Set(ctx, id, entity); err != nil {
		return fmt.Errorf("failed to apply optimistic write: %w", err)
	}
	return nil
}

// Track announces the local actor on an entity's presence channel.
func (w *Watcher) Track(ctx context.Context, entityID string, action models.PresenceAction) error {
	return w.tracker(entityID).Join(ctx, action)
}

// Untrack retracts the local actor from an entity's presence channel.
func (w *Watcher) Untrack(ctx context.Context, entityID string) error {
	w.mu.Lock()
	tracker, ok := w.trackers[entityID]
	w.mu.Unlock()
	if !ok {
		return nil
	}
	return tracker.Leave(ctx)
}

// Presence returns everyone present on an entity.
func (w *Watcher) Presence(entityID string) []models.PresenceEntry {
	w.mu.Lock()
	tracker, ok := w.trackers[entityID]
	w.mu.Unlock()
	if !ok {
		return nil
	}
	return tracker.Entries()
}

func (w *Watcher) tracker(entityID string) *presence.Tracker {
	w.mu.Lock()
	defer w.mu.Unlock()

	tracker, ok := w.trackers[entityID]
	if !ok {
		tracker = presence.New(w.transport, w.collection, entityID, w.actor, w.logger)
		w.trackers[entityID] = tracker
	}
	return tracker
}

// handleEvent is the single consumer of raw feed events. UPDATEs run the
// conflict check first; a conflicting remote version is withheld from
// reconciliation until the user (or a policy) resolves it, so a stale
// overwrite never clobbers a newer local edit silently.
func (w *Watcher) handleEvent(event models.ChangeEvent) {
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if event.Type == models.ChangeUpdate {
		if w.detector.Detect(ctx, event.EntityID(), event.Entity) {
			w.logger.Warn("remote update withheld pending conflict resolution",
				"entity_id", event.EntityID())
			return
		}
	}

	w.reconciler.Handle(ctx, event)
}
