package watch

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/realsync/internal/cache/memory"
	"github.com/iudanet/realsync/internal/conflict"
	"github.com/iudanet/realsync/internal/models"
	"github.com/iudanet/realsync/internal/presence"
	"github.com/iudanet/realsync/internal/transport"
	"github.com/iudanet/realsync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeChannel is a minimal scriptable transport.Channel.
type fakeChannel struct {
	mu         sync.Mutex
	topic      string
	onChange   func(api.ChangePayload)
	onPresence func(transport.PresenceEvent)
	subscribed bool
	tracked    []api.TrackPayload
}

func (f *fakeChannel) OnChange(handler func(api.ChangePayload)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = handler
}

func (f *fakeChannel) OnPresence(handler func(transport.PresenceEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onPresence = handler
}

func (f *fakeChannel) Subscribe(_ context.Context, status func(transport.SubscribeStatus, error)) error {
	f.mu.Lock()
	f.subscribed = true
	f.mu.Unlock()
	status(transport.StatusSubscribed, nil)
	return nil
}

func (f *fakeChannel) Unsubscribe() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = false
	return nil
}

func (f *fakeChannel) Track(_ context.Context, payload api.TrackPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, payload)
	return nil
}

func (f *fakeChannel) Untrack(context.Context) error { return nil }

func (f *fakeChannel) PresenceState() api.PresenceStatePayload { return nil }

func (f *fakeChannel) emitChange(payload api.ChangePayload) {
	f.mu.Lock()
	fn := f.onChange
	f.mu.Unlock()
	fn(payload)
}

func (f *fakeChannel) emitPresence(event transport.PresenceEvent) {
	f.mu.Lock()
	fn := f.onPresence
	f.mu.Unlock()
	fn(event)
}

// fakeTransport hands out one fakeChannel per topic.
type fakeTransport struct {
	mu       sync.Mutex
	channels map[string]*fakeChannel
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{channels: make(map[string]*fakeChannel)}
}

func (t *fakeTransport) Channel(topic string) transport.Channel {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.channels[topic]
	if !ok {
		ch = &fakeChannel{topic: topic}
		t.channels[topic] = ch
	}
	return ch
}

func (t *fakeTransport) channel(topic string) *fakeChannel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channels[topic]
}

func newTestWatcher(t *testing.T) (*Watcher, *fakeTransport, *memory.Store) {
	t.Helper()

	tr := newFakeTransport()
	store := memory.New()
	w := New(tr, store, Options{
		Collection: "members",
		Actor:      presence.Actor{UserID: "u-local", Username: "local"},
	}, testLogger())
	return w, tr, store
}

func TestWatcher_StartConnectsDerivedTopic(t *testing.T) {
	w, tr, _ := newTestWatcher(t)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	ch := tr.channel("members-changes")
	require.NotNil(t, ch)
	assert.True(t, w.Status().Connected)
}

func TestWatcher_EventsReachCache(t *testing.T) {
	w, tr, store := newTestWatcher(t)
	ctx := context.Background()

	var notified []models.ChangeEvent
	w.OnChange(func(ev models.ChangeEvent) { notified = append(notified, ev) })

	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	tr.channel("members-changes").emitChange(api.ChangePayload{
		EventType: "INSERT",
		New:       map[string]any{"id": "2", "first_name": "Jane", "updated_at": "2024-01-01"},
	})

	got, err := store.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Jane", got["first_name"])
	require.Len(t, notified, 1)
	assert.Equal(t, models.ChangeInsert, notified[0].Type)
}

func TestWatcher_ConflictingUpdateWithheld(t *testing.T) {
	w, tr, store := newTestWatcher(t)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// Foreground optimistic edit, newer than what the server will push
	require.NoError(t, w.ApplyOptimistic(ctx, models.Entity{
		"id": "1", "first_name": "Edited", "updated_at": "2024-01-02",
	}))

	tr.channel("members-changes").emitChange(api.ChangePayload{
		EventType: "UPDATE",
		New:       map[string]any{"id": "1", "first_name": "Stale", "updated_at": "2024-01-01"},
	})

	// Cache keeps the local edit; the remote version is parked in a conflict
	got, err := store.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Edited", got["first_name"])

	conflicts := w.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, "1", conflicts[0].EntityID)

	// Resolving with merge collapses cache and record
	merged, ok := w.Resolve(ctx, "1", conflict.StrategyMerge, models.Entity{"first_name": "Merged"})
	require.True(t, ok)
	assert.Equal(t, "Merged", merged["first_name"])
	assert.Empty(t, w.Conflicts())
}

func TestWatcher_NonConflictingUpdateReconciled(t *testing.T) {
	w, tr, store := newTestWatcher(t)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, w.ApplyOptimistic(ctx, models.Entity{
		"id": "1", "first_name": "Old", "updated_at": "2024-01-01",
	}))

	tr.channel("members-changes").emitChange(api.ChangePayload{
		EventType: "UPDATE",
		New:       map[string]any{"id": "1", "first_name": "Fresh", "updated_at": "2024-01-02"},
	})

	got, err := store.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Fresh", got["first_name"])
	assert.Empty(t, w.Conflicts())
}

func TestWatcher_PresencePerEntity(t *testing.T) {
	w, tr, _ := newTestWatcher(t)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, w.Track(ctx, "42", models.ActionEditing))

	ch := tr.channel("presence:members:42")
	require.NotNil(t, ch)
	require.Len(t, ch.tracked, 1)
	assert.Equal(t, "editing", ch.tracked[0].Action)

	ch.emitPresence(transport.PresenceEvent{
		Kind: transport.PresenceSync,
		State: api.PresenceStatePayload{
			"u-local": {{UserID: "u-local", Username: "local", Action: "editing"}},
			"u2":      {{UserID: "u2", Username: "bob", Action: "viewing"}},
		},
	})

	entries := w.Presence("42")
	assert.Len(t, entries, 2)

	// Untracked entity: empty presence, no error
	assert.Nil(t, w.Presence("99"))
	assert.NoError(t, w.Untrack(ctx, "99"))
}

func TestWatcher_StopReleasesChannels(t *testing.T) {
	w, tr, _ := newTestWatcher(t)
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Track(ctx, "42", models.ActionViewing))

	w.Stop()

	assert.False(t, w.Status().Connected)
	assert.False(t, tr.channel("members-changes").subscribed)
	assert.False(t, tr.channel("presence:members:42").subscribed)
}
