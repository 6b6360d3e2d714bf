package presence

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/realsync/internal/models"
	"github.com/iudanet/realsync/internal/transport"
	"github.com/iudanet/realsync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type presenceHarness struct {
	channel    *transport.ChannelMock
	mu         sync.Mutex
	onPresence func(transport.PresenceEvent)
}

func newHarness() *presenceHarness {
	h := &presenceHarness{}
	h.channel = &transport.ChannelMock{
		OnPresenceFunc: func(handler func(transport.PresenceEvent)) {
			h.mu.Lock()
			h.onPresence = handler
			h.mu.Unlock()
		},
		SubscribeFunc: func(ctx context.Context, status func(transport.SubscribeStatus, error)) error {
			status(transport.StatusSubscribed, nil)
			return nil
		},
		TrackFunc:       func(ctx context.Context, payload api.TrackPayload) error { return nil },
		UntrackFunc:     func(ctx context.Context) error { return nil },
		UnsubscribeFunc: func() error { return nil },
	}
	return h
}

func (h *presenceHarness) emit(event transport.PresenceEvent) {
	h.mu.Lock()
	fn := h.onPresence
	h.mu.Unlock()
	fn(event)
}

func newTestTracker(h *presenceHarness) *Tracker {
	tr := &transport.TransportMock{
		ChannelFunc: func(topic string) transport.Channel { return h.channel },
	}
	actor := Actor{UserID: "u-local", Username: "local"}
	return New(tr, "members", "42", actor, testLogger())
}

func meta(userID, username, action string) api.PresenceMeta {
	return api.PresenceMeta{
		UserID:    userID,
		Username:  username,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "presence:members:42", Topic("members", "42"))
}

func TestTracker_Join_TracksActor(t *testing.T) {
	h := newHarness()
	tracker := newTestTracker(h)

	require.NoError(t, tracker.Join(context.Background(), models.ActionEditing))

	calls := h.channel.TrackCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "u-local", calls[0].Payload.UserID)
	assert.Equal(t, "editing", calls[0].Payload.Action)
	assert.False(t, calls[0].Payload.Timestamp.IsZero())

	// Re-announcing re-tracks on the same channel, not a new subscription
	require.NoError(t, tracker.Join(context.Background(), models.ActionViewing))
	assert.Len(t, h.channel.SubscribeCalls(), 1)
	assert.Len(t, h.channel.TrackCalls(), 2)
}

func TestTracker_SyncReplacesSet(t *testing.T) {
	h := newHarness()
	tracker := newTestTracker(h)
	require.NoError(t, tracker.Join(context.Background(), models.ActionViewing))

	h.emit(transport.PresenceEvent{
		Kind: transport.PresenceSync,
		State: api.PresenceStatePayload{
			"u1": {meta("u1", "ann", "viewing")},
			"u2": {meta("u2", "bob", "editing"), meta("u2", "bob", "viewing")},
		},
	})

	// Flattened total across all keys
	assert.Equal(t, 3, tracker.ViewerCount())

	// A later sync fully replaces the previous snapshot
	h.emit(transport.PresenceEvent{
		Kind: transport.PresenceSync,
		State: api.PresenceStatePayload{
			"u3": {meta("u3", "cal", "viewing")},
		},
	})
	entries := tracker.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "u3", entries[0].UserID)
}

func TestTracker_JoinEventAppends(t *testing.T) {
	h := newHarness()
	tracker := newTestTracker(h)
	require.NoError(t, tracker.Join(context.Background(), models.ActionViewing))

	h.emit(transport.PresenceEvent{
		Kind: transport.PresenceSync,
		State: api.PresenceStatePayload{
			"u1": {meta("u1", "ann", "viewing")},
			"u2": {meta("u2", "bob", "viewing")},
		},
	})
	h.emit(transport.PresenceEvent{
		Kind: transport.PresenceJoin,
		Joins: map[string][]api.PresenceMeta{
			"u3": {meta("u3", "cal", "editing")},
		},
	})

	// u3 appended without dropping u1/u2
	assert.Equal(t, 3, tracker.ViewerCount())
	editors := tracker.Editors()
	require.Len(t, editors, 1)
	assert.Equal(t, "u3", editors[0].UserID)
	assert.Len(t, tracker.Viewers(), 2)
}

func TestTracker_LeaveEventRemoves(t *testing.T) {
	h := newHarness()
	tracker := newTestTracker(h)
	require.NoError(t, tracker.Join(context.Background(), models.ActionViewing))

	h.emit(transport.PresenceEvent{
		Kind: transport.PresenceSync,
		State: api.PresenceStatePayload{
			"u1": {meta("u1", "ann", "viewing")},
			"u2": {meta("u2", "bob", "editing")},
		},
	})
	h.emit(transport.PresenceEvent{
		Kind: transport.PresenceLeave,
		Leaves: map[string][]api.PresenceMeta{
			"u2": {meta("u2", "bob", "editing")},
		},
	})

	entries := tracker.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].UserID)
}

func TestTracker_LeaveForUntrackedKey(t *testing.T) {
	h := newHarness()
	tracker := newTestTracker(h)
	require.NoError(t, tracker.Join(context.Background(), models.ActionViewing))

	h.emit(transport.PresenceEvent{
		Kind: transport.PresenceSync,
		State: api.PresenceStatePayload{
			"u1": {meta("u1", "ann", "viewing")},
		},
	})

	// Leave for a key nobody tracked: list unchanged, no panic
	assert.NotPanics(t, func() {
		h.emit(transport.PresenceEvent{
			Kind: transport.PresenceLeave,
			Leaves: map[string][]api.PresenceMeta{
				"ghost": {meta("ghost", "ghost", "viewing")},
			},
		})
	})
	assert.Equal(t, 1, tracker.ViewerCount())
}

func TestTracker_LeaveBeforeJoinIsNoop(t *testing.T) {
	h := newHarness()
	tracker := newTestTracker(h)

	require.NoError(t, tracker.Leave(context.Background()))
	assert.Empty(t, h.channel.UntrackCalls())
}

func TestTracker_LeaveUntracks(t *testing.T) {
	h := newHarness()
	tracker := newTestTracker(h)
	require.NoError(t, tracker.Join(context.Background(), models.ActionEditing))

	require.NoError(t, tracker.Leave(context.Background()))
	assert.Len(t, h.channel.UntrackCalls(), 1)
}

func TestTracker_Close_Unsubscribes(t *testing.T) {
	h := newHarness()
	tracker := newTestTracker(h)
	require.NoError(t, tracker.Join(context.Background(), models.ActionViewing))

	h.emit(transport.PresenceEvent{
		Kind:  transport.PresenceSync,
		State: api.PresenceStatePayload{"u1": {meta("u1", "ann", "viewing")}},
	})

	tracker.Close()
	assert.Len(t, h.channel.UnsubscribeCalls(), 1)
	assert.Equal(t, 0, tracker.ViewerCount())

	// Safe to call again
	tracker.Close()
	assert.Len(t, h.channel.UnsubscribeCalls(), 1)
}

func TestTracker_SubscribeFailure(t *testing.T) {
	h := newHarness()
	h.channel.SubscribeFunc = func(ctx context.Context, status func(transport.SubscribeStatus, error)) error {
		return errors.New("dial failed")
	}
	tracker := newTestTracker(h)

	err := tracker.Join(context.Background(), models.ActionViewing)
	require.Error(t, err)

	// Best effort: presence stays silently empty
	assert.Equal(t, 0, tracker.ViewerCount())
	assert.Empty(t, tracker.Editors())
}
