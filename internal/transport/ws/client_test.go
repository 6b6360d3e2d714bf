package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/realsync/internal/server"
	"github.com/iudanet/realsync/internal/server/auth"
	"github.com/iudanet/realsync/internal/server/hub"
	"github.com/iudanet/realsync/internal/transport"
	"github.com/iudanet/realsync/pkg/api"
)

func startTestServer(t *testing.T) (*httptest.Server, *hub.Hub, string) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := server.Config{
		Version:        "test",
		JWTSecret:      []byte("test-secret"),
		AccessTokenTTL: time.Hour,
	}

	srv := server.New(logger, cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	token, _, err := auth.GenerateAccessToken(auth.JWTConfig{
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	}, "user-1", "alice")
	require.NoError(t, err)

	return ts, srv.Hub(), token
}

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func dialTestClient(t *testing.T, ts *httptest.Server, token string) *Client {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := Dial(context.Background(), logger, wsURL(ts), token)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func subscribe(t *testing.T, ch transport.Channel) {
	t.Helper()

	statusCh := make(chan transport.SubscribeStatus, 4)
	require.NoError(t, ch.Subscribe(context.Background(), func(s transport.SubscribeStatus, _ error) {
		statusCh <- s
	}))

	select {
	case s := <-statusCh:
		require.Equal(t, transport.StatusSubscribed, s)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscribe ack")
	}
}

func TestDial_InvalidToken(t *testing.T) {
	ts, _, _ := startTestServer(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := Dial(context.Background(), logger, wsURL(ts), "garbage")
	assert.Error(t, err)
}

func TestSubscribe_ReceivesChanges(t *testing.T) {
	ts, h, token := startTestServer(t)
	client := dialTestClient(t, ts, token)

	ch := client.Channel("members-changes")

	changes := make(chan api.ChangePayload, 4)
	ch.OnChange(func(p api.ChangePayload) { changes <- p })

	subscribe(t, ch)

	err := h.Broadcast("members-changes", api.EventChange, api.ChangePayload{
		EventType: api.ChangeInsert,
		New:       map[string]any{"id": "1", "first_name": "Jane"},
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)

	select {
	case payload := <-changes:
		assert.Equal(t, api.ChangeInsert, payload.EventType)
		assert.Equal(t, "Jane", payload.New["first_name"])
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestChannel_SameTopicSameChannel(t *testing.T) {
	ts, _, token := startTestServer(t)
	client := dialTestClient(t, ts, token)

	assert.Same(t, client.Channel("members-changes"), client.Channel("members-changes"))
}

func TestPresence_TrackAndState(t *testing.T) {
	ts, _, token := startTestServer(t)

	watcher := dialTestClient(t, ts, token)
	editor := dialTestClient(t, ts, token)

	topic := "presence:members:1"

	events := make(chan transport.PresenceEvent, 8)
	watcherCh := watcher.Channel(topic)
	watcherCh.OnPresence(func(e transport.PresenceEvent) { events <- e })
	subscribe(t, watcherCh)

	// Initial snapshot is empty
	select {
	case e := <-events:
		require.Equal(t, transport.PresenceSync, e.Kind)
		assert.Empty(t, e.State)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for presence sync")
	}

	editorCh := editor.Channel(topic)
	subscribe(t, editorCh)

	require.NoError(t, editorCh.Track(context.Background(), api.TrackPayload{
		UserID:   "user-1",
		Username: "alice",
		Action:   "editing",
	}))

	select {
	case e := <-events:
		require.Equal(t, transport.PresenceJoin, e.Kind)
		require.Contains(t, e.Joins, "user-1")
		assert.Equal(t, "editing", e.Joins["user-1"][0].Action)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for presence join")
	}

	require.Eventually(t, func() bool {
		state := watcherCh.PresenceState()
		return len(state["user-1"]) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, editorCh.Untrack(context.Background()))

	select {
	case e := <-events:
		require.Equal(t, transport.PresenceLeave, e.Kind)
		assert.Contains(t, e.Leaves, "user-1")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for presence leave")
	}

	require.Eventually(t, func() bool {
		_, ok := watcherCh.PresenceState()["user-1"]
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestClosedClient_RejectsOperations(t *testing.T) {
	ts, _, token := startTestServer(t)
	client := dialTestClient(t, ts, token)

	ch := client.Channel("members-changes")
	subscribe(t, ch)

	require.NoError(t, client.Close())

	err := ch.Subscribe(context.Background(), func(transport.SubscribeStatus, error) {})
	assert.ErrorIs(t, err, ErrClosed)

	err = ch.Track(context.Background(), api.TrackPayload{UserID: "user-1"})
	assert.ErrorIs(t, err, ErrClosed)

	// Unsubscribe after close is a quiet no-op
	assert.NoError(t, ch.Unsubscribe())

	// Close is idempotent
	assert.NoError(t, client.Close())
}

func TestDisconnect_ReportsClosed(t *testing.T) {
	ts, _, token := startTestServer(t)
	client := dialTestClient(t, ts, token)

	ch := client.Channel("members-changes")

	statusCh := make(chan transport.SubscribeStatus, 4)
	require.NoError(t, ch.Subscribe(context.Background(), func(s transport.SubscribeStatus, _ error) {
		statusCh <- s
	}))

	select {
	case s := <-statusCh:
		require.Equal(t, transport.StatusSubscribed, s)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for subscribe ack")
	}

	ts.CloseClientConnections()

	select {
	case s := <-statusCh:
		assert.Equal(t, transport.StatusClosed, s)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for close status")
	}
}
