// Package presence maintains the ephemeral "who is here" registry for one
// entity: a dedicated channel, distinct from the change feed, where actors
// announce whether they are viewing or editing the record. Presence is best
// effort; a failed channel just leaves the registry empty.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/realsync/internal/models"
	"github.com/iudanet/realsync/internal/transport"
	"github.com/iudanet/realsync/pkg/api"
)

// Topic derives the deterministic presence channel name for an entity.
func Topic(collection, entityID string) string {
	return fmt.Sprintf("presence:%s:%s", collection, entityID)
}

// Actor identifies the local user announcing presence.
type Actor struct {
	UserID   string
	Username string
}

// Tracker follows presence on one entity's channel.
type Tracker struct {
	transport transport.Transport
	logger    *slog.Logger
	topic     string
	actor     Actor

	mu         sync.RWMutex
	channel    transport.Channel
	entries    []models.PresenceEntry
	subscribed bool
}

// New creates a tracker for the given entity. The channel is established
// lazily on the first Join.
func New(t transport.Transport, collection, entityID string, actor Actor, logger *slog.Logger) *Tracker {
	return &Tracker{
		transport: t,
		logger:    logger,
		topic:     Topic(collection, entityID),
		actor:     actor,
	}
}

// Join announces the local actor's presence with the given action,
// overwriting any previous announcement by the same actor.
func (t *Tracker) Join(ctx context.Context, action models.PresenceAction) error {
	channel, err := t.ensureChannel(ctx)
	if err != nil {
		return err
	}

	payload := api.TrackPayload{
		UserID:    t.actor.UserID,
		Username:  t.actor.Username,
		Action:    string(action),
		Timestamp: time.Now(),
	}
	if err := channel.Track(ctx, payload); err != nil {
		return fmt.Errorf("failed to track presence: %w", err)
	}
	return nil
}

// Leave retracts the local actor's announcement. A no-op before Join.
func (t *Tracker) Leave(ctx context.Context) error {
	t.mu.RLock()
	channel := t.channel
	t.mu.RUnlock()
	if channel == nil {
		return nil
	}

	if err := channel.Untrack(ctx); err != nil {
		return fmt.Errorf("failed to untrack presence: %w", err)
	}
	return nil
}

// Close releases the presence channel so the server-side slot is not
// leaked. Safe to call multiple times.
func (t *Tracker) Close() {
	t.mu.Lock()
	channel := t.channel
	t.channel = nil
	t.subscribed = false
	t.entries = nil
	t.mu.Unlock()

	if channel != nil {
		if err := channel.Unsubscribe(); err != nil {
			t.logger.Warn("failed to unsubscribe presence channel",
				"topic", t.topic,
				"error", err)
		}
	}
}

// Entries returns a snapshot of everyone present on the entity.
func (t *Tracker) Entries() []models.PresenceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := make([]models.PresenceEntry, len(t.entries))
	copy(snapshot, t.entries)
	return snapshot
}

// Editors returns the entries currently editing.
func (t *Tracker) Editors() []models.PresenceEntry {
	return t.filter(models.ActionEditing)
}

// Viewers returns the entries currently viewing.
func (t *Tracker) Viewers() []models.PresenceEntry {
	return t.filter(models.ActionViewing)
}

// ViewerCount returns the total number of present actors.
func (t *Tracker) ViewerCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}

func (t *Tracker) filter(action models.PresenceAction) []models.PresenceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var matched []models.PresenceEntry
	for _, entry := range t.entries {
		if entry.Action == action {
			matched = append(matched, entry)
		}
	}
	return matched
}

func (t *Tracker) ensureChannel(ctx context.Context) (transport.Channel, error) {
	t.mu.Lock()
	if t.subscribed {
		channel := t.channel
		t.mu.Unlock()
		return channel, nil
	}

	channel := t.transport.Channel(t.topic)
	channel.OnPresence(t.handlePresence)
	t.channel = channel
	t.subscribed = true
	t.mu.Unlock()

	err := channel.Subscribe(ctx, func(status transport.SubscribeStatus, err error) {
		if status != transport.StatusSubscribed {
			t.logger.Warn("presence channel did not subscribe",
				"topic", t.topic,
				"status", string(status),
				"error", err)
		}
	})
	if err != nil {
		t.mu.Lock()
		t.channel = nil
		t.subscribed = false
		t.mu.Unlock()
		return nil, fmt.Errorf("failed to subscribe presence channel: %w", err)
	}

	return channel, nil
}

// handlePresence applies one presence message. A sync snapshot replaces the
// tracked set wholesale; join and leave are incremental deltas on top of
// the last sync.
func (t *Tracker) handlePresence(event transport.PresenceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case transport.PresenceSync:
		t.entries = flattenState(event.State)

	case transport.PresenceJoin:
		for _, key := range sortedKeys(event.Joins) {
			for _, meta := range event.Joins[key] {
				t.entries = append(t.entries, entryFromMeta(key, meta))
			}
		}

	case transport.PresenceLeave:
		for key := range event.Leaves {
			t.entries = removeByUserID(t.entries, key)
		}
	}
}

// flattenState turns the authoritative presence map into a flat entry list,
// ordered by presence key for determinism.
func flattenState(state api.PresenceStatePayload) []models.PresenceEntry {
	entries := make([]models.PresenceEntry, 0, len(state))
	for _, key := range sortedKeys(state) {
		for _, meta := range state[key] {
			entries = append(entries, entryFromMeta(key, meta))
		}
	}
	return entries
}

func entryFromMeta(key string, meta api.PresenceMeta) models.PresenceEntry {
	userID := meta.UserID
	if userID == "" {
		userID = key
	}
	return models.PresenceEntry{
		UserID:    userID,
		Username:  meta.Username,
		Action:    models.PresenceAction(meta.Action),
		Timestamp: meta.Timestamp,
	}
}

// removeByUserID drops all entries for the leaving key. Removing a key with
// no matching entry leaves the list untouched.
func removeByUserID(entries []models.PresenceEntry, userID string) []models.PresenceEntry {
	remaining := entries[:0]
	for _, entry := range entries {
		if entry.UserID != userID {
			remaining = append(remaining, entry)
		}
	}
	return remaining
}

func sortedKeys[M ~map[string][]api.PresenceMeta](m M) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
