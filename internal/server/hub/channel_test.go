package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/realsync/pkg/api"
)

func newTestHub() *Hub {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func drain(t *testing.T, sub *Subscription) []api.Message {
	t.Helper()

	var msgs []api.Message
	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				return msgs
			}
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestBroadcast_ReachesAllSubscribers(t *testing.T) {
	h := newTestHub()
	ch := h.Channel("members-changes")

	sub1 := ch.Subscribe()
	sub2 := ch.Subscribe()

	err := h.Broadcast("members-changes", api.EventChange, api.ChangePayload{
		EventType: api.ChangeInsert,
		New:       map[string]any{"id": "1"},
	})
	require.NoError(t, err)

	for _, sub := range []*Subscription{sub1, sub2} {
		msgs := drain(t, sub)
		require.Len(t, msgs, 1)
		assert.Equal(t, "members-changes", msgs[0].Topic)
		assert.Equal(t, api.EventChange, msgs[0].Event)
	}
}

func TestBroadcast_NoSubscribersIsNoop(t *testing.T) {
	h := newTestHub()

	err := h.Broadcast("empty-topic", api.EventChange, api.ChangePayload{})
	require.NoError(t, err)
}

func TestBroadcast_FullQueueDropsFrame(t *testing.T) {
	h := newTestHub()
	ch := h.Channel("members-changes")
	sub := ch.Subscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		err := h.Broadcast("members-changes", api.EventChange, api.ChangePayload{
			EventType: api.ChangeUpdate,
		})
		require.NoError(t, err)
	}

	msgs := drain(t, sub)
	assert.Len(t, msgs, subscriberBuffer)
}

func TestUnsubscribe_ClosesQueue(t *testing.T) {
	h := newTestHub()
	ch := h.Channel("members-changes")
	sub := ch.Subscribe()

	ch.Unsubscribe(sub.ID)
	assert.Equal(t, 0, ch.Len())

	_, ok := <-sub.C
	assert.False(t, ok)

	// Unknown id is ignored
	ch.Unsubscribe("missing")
}

func TestTrack_UpdatesStateAndBroadcastsDiff(t *testing.T) {
	h := newTestHub()
	ch := h.Channel("presence:members:1")

	watcher := ch.Subscribe()
	editor := ch.Subscribe()

	ch.Track(editor.ID, api.TrackPayload{
		Timestamp: time.Now(),
		UserID:    "user-1",
		Username:  "alice",
		Action:    "editing",
	})

	state := ch.State()
	require.Contains(t, state, "user-1")
	assert.Equal(t, "editing", state["user-1"][0].Action)

	msgs := drain(t, watcher)
	require.Len(t, msgs, 1)
	assert.Equal(t, api.EventPresenceDiff, msgs[0].Event)

	var diff api.PresenceDiffPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &diff))
	require.Contains(t, diff.Joins, "user-1")
	assert.Equal(t, "alice", diff.Joins["user-1"][0].Username)
	assert.Empty(t, diff.Leaves)
}

func TestTrack_SameSubscriptionReplaces(t *testing.T) {
	h := newTestHub()
	ch := h.Channel("presence:members:1")
	sub := ch.Subscribe()

	ch.Track(sub.ID, api.TrackPayload{UserID: "user-1", Username: "alice", Action: "viewing"})
	ch.Track(sub.ID, api.TrackPayload{UserID: "user-1", Username: "alice", Action: "editing"})

	state := ch.State()
	require.Len(t, state["user-1"], 1)
	assert.Equal(t, "editing", state["user-1"][0].Action)
}

func TestTrack_RetrackDiffCarriesLeaveAndJoin(t *testing.T) {
	h := newTestHub()
	ch := h.Channel("presence:members:1")

	observer := ch.Subscribe()
	editor := ch.Subscribe()

	ch.Track(editor.ID, api.TrackPayload{UserID: "user-1", Username: "alice", Action: "viewing"})
	ch.Track(editor.ID, api.TrackPayload{UserID: "user-1", Username: "alice", Action: "editing"})

	msgs := drain(t, observer)
	require.Len(t, msgs, 2)

	var second api.PresenceDiffPayload
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &second))
	require.Contains(t, second.Joins, "user-1")
	assert.Equal(t, "editing", second.Joins["user-1"][0].Action)
	require.Contains(t, second.Leaves, "user-1")
	assert.Equal(t, "viewing", second.Leaves["user-1"][0].Action)

	// Replaying the diffs must land on the same set as the snapshot.
	replayed := map[string][]api.PresenceMeta{}
	for _, msg := range msgs {
		var diff api.PresenceDiffPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &diff))
		for key, metas := range diff.Joins {
			replayed[key] = append(replayed[key], metas...)
		}
		for key, metas := range diff.Leaves {
			remaining := replayed[key]
			for range metas {
				if len(remaining) > 0 {
					remaining = remaining[1:]
				}
			}
			if len(remaining) == 0 {
				delete(replayed, key)
			} else {
				replayed[key] = remaining
			}
		}
	}

	state := ch.State()
	require.Len(t, state["user-1"], 1)
	require.Len(t, replayed["user-1"], 1)
	assert.Equal(t, state["user-1"][0].Action, replayed["user-1"][0].Action)
}

func TestUntrack_RemovesOwnEntry(t *testing.T) {
	h := newTestHub()
	ch := h.Channel("presence:members:1")

	observer := ch.Subscribe()
	tab1 := ch.Subscribe()
	tab2 := ch.Subscribe()

	ch.Track(tab1.ID, api.TrackPayload{UserID: "user-1", Username: "alice", Action: "viewing"})
	ch.Track(tab2.ID, api.TrackPayload{UserID: "user-1", Username: "alice", Action: "editing"})
	drain(t, observer)

	ch.Untrack(tab1.ID)

	state := ch.State()
	require.Len(t, state["user-1"], 1)
	assert.Equal(t, "editing", state["user-1"][0].Action)

	msgs := drain(t, observer)
	require.Len(t, msgs, 1)

	var diff api.PresenceDiffPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &diff))
	require.Contains(t, diff.Leaves, "user-1")
	assert.Equal(t, "viewing", diff.Leaves["user-1"][0].Action)
}

func TestUntrack_BroadcastsLeave(t *testing.T) {
	h := newTestHub()
	ch := h.Channel("presence:members:1")

	watcher := ch.Subscribe()
	editor := ch.Subscribe()

	ch.Track(editor.ID, api.TrackPayload{UserID: "user-1", Username: "alice", Action: "editing"})
	drain(t, watcher)

	ch.Untrack(editor.ID)

	state := ch.State()
	assert.NotContains(t, state, "user-1")

	msgs := drain(t, watcher)
	require.Len(t, msgs, 1)

	var diff api.PresenceDiffPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &diff))
	assert.Contains(t, diff.Leaves, "user-1")
	assert.Empty(t, diff.Joins)
}

func TestUnsubscribe_RetractsPresence(t *testing.T) {
	h := newTestHub()
	ch := h.Channel("presence:members:1")

	watcher := ch.Subscribe()
	editor := ch.Subscribe()

	ch.Track(editor.ID, api.TrackPayload{UserID: "user-1", Username: "alice", Action: "editing"})
	drain(t, watcher)

	ch.Unsubscribe(editor.ID)

	assert.NotContains(t, ch.State(), "user-1")

	msgs := drain(t, watcher)
	require.Len(t, msgs, 1)
	assert.Equal(t, api.EventPresenceDiff, msgs[0].Event)
}

func TestState_MultipleTrackersSameKey(t *testing.T) {
	h := newTestHub()
	ch := h.Channel("presence:members:1")

	tab1 := ch.Subscribe()
	tab2 := ch.Subscribe()

	ch.Track(tab1.ID, api.TrackPayload{UserID: "user-1", Username: "alice", Action: "viewing"})
	ch.Track(tab2.ID, api.TrackPayload{UserID: "user-1", Username: "alice", Action: "editing"})

	state := ch.State()
	require.Len(t, state["user-1"], 2)

	ch.Untrack(tab1.ID)
	state = ch.State()
	require.Len(t, state["user-1"], 1)
}

func TestTopics_OnlyActive(t *testing.T) {
	h := newTestHub()

	active := h.Channel("members-changes")
	sub := active.Subscribe()
	h.Channel("idle-topic")

	topics := h.Topics()
	assert.Equal(t, []string{"members-changes"}, topics)

	active.Unsubscribe(sub.ID)
	assert.Empty(t, h.Topics())
}
