package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/realsync/internal/transport"
	"github.com/iudanet/realsync/pkg/api"
)

// channel is one logical topic subscription on the client.
type channel struct {
	client *Client
	topic  string

	mu         sync.Mutex
	onChange   func(api.ChangePayload)
	onPresence func(transport.PresenceEvent)
	statusFn   func(transport.SubscribeStatus, error)
	state      api.PresenceStatePayload
	pendingRef string
	ackCh      chan error
	subscribed bool
}

var _ transport.Channel = (*channel)(nil)

func newChannel(client *Client, topic string) *channel {
	return &channel{
		client: client,
		topic:  topic,
		state:  api.PresenceStatePayload{},
	}
}

func (ch *channel) OnChange(handler func(api.ChangePayload)) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.onChange = handler
}

func (ch *channel) OnPresence(handler func(transport.PresenceEvent)) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.onPresence = handler
}

// Subscribe sends the subscribe frame and reports the server's verdict
// through the status callback. The ack is awaited in the background.
func (ch *channel) Subscribe(ctx context.Context, status func(transport.SubscribeStatus, error)) error {
	ref := uuid.NewString()
	ackCh := make(chan error, 1)

	ch.mu.Lock()
	ch.statusFn = status
	ch.pendingRef = ref
	ch.ackCh = ackCh
	ch.mu.Unlock()

	if err := ch.client.write(api.Message{
		Topic: ch.topic,
		Event: api.EventSubscribe,
		Ref:   ref,
	}); err != nil {
		ch.clearPending()
		return err
	}

	go ch.awaitAck(ctx, ackCh)
	return nil
}

func (ch *channel) awaitAck(ctx context.Context, ackCh chan error) {
	timer := time.NewTimer(ch.client.subscribeTimeout)
	defer timer.Stop()

	select {
	case err, ok := <-ackCh:
		if !ok {
			return
		}
		if err != nil {
			ch.notifyStatus(transport.StatusChannelError, err)
			return
		}
		ch.mu.Lock()
		ch.subscribed = true
		ch.mu.Unlock()
		ch.notifyStatus(transport.StatusSubscribed, nil)
	case <-timer.C:
		ch.clearPending()
		ch.notifyStatus(transport.StatusTimedOut, errors.New("subscribe timed out"))
	case <-ctx.Done():
		ch.clearPending()
	case <-ch.client.done:
		return
	}
}

// Unsubscribe releases the server-side slot. Safe to call repeatedly.
func (ch *channel) Unsubscribe() error {
	ch.mu.Lock()
	wasSubscribed := ch.subscribed
	ch.subscribed = false
	ch.mu.Unlock()

	if !wasSubscribed {
		return nil
	}

	err := ch.client.write(api.Message{Topic: ch.topic, Event: api.EventLeave})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (ch *channel) Track(ctx context.Context, payload api.TrackPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return ch.client.write(api.Message{
		Topic:   ch.topic,
		Event:   api.EventTrack,
		Payload: data,
	})
}

func (ch *channel) Untrack(ctx context.Context) error {
	return ch.client.write(api.Message{Topic: ch.topic, Event: api.EventUntrack})
}

// PresenceState returns a copy of the channel's last known presence map.
func (ch *channel) PresenceState() api.PresenceStatePayload {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	state := make(api.PresenceStatePayload, len(ch.state))
	for key, metas := range ch.state {
		state[key] = append([]api.PresenceMeta(nil), metas...)
	}
	return state
}

// handle dispatches one inbound frame for this topic.
func (ch *channel) handle(msg api.Message) {
	switch msg.Event {
	case api.EventAck:
		ch.resolvePending(msg.Ref, nil)
	case api.EventError:
		ch.handleError(msg)
	case api.EventChange:
		ch.handleChange(msg)
	case api.EventPresenceState:
		ch.handlePresenceState(msg)
	case api.EventPresenceDiff:
		ch.handlePresenceDiff(msg)
	case api.EventHeartbeat:
	default:
		ch.client.logger.Debug("Unknown event", "topic", ch.topic, "event", msg.Event)
	}
}

func (ch *channel) handleError(msg api.Message) {
	var payload api.ErrorPayload
	_ = json.Unmarshal(msg.Payload, &payload)
	err := errors.New(payload.Reason)

	if ch.resolvePending(msg.Ref, err) {
		return
	}
	ch.notifyStatus(transport.StatusChannelError, err)
}

func (ch *channel) handleChange(msg api.Message) {
	var payload api.ChangePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		ch.client.logger.Warn("Failed to decode change payload", "topic", ch.topic, "error", err)
		return
	}

	ch.mu.Lock()
	handler := ch.onChange
	ch.mu.Unlock()

	if handler != nil {
		handler(payload)
	}
}

func (ch *channel) handlePresenceState(msg api.Message) {
	var state api.PresenceStatePayload
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		ch.client.logger.Warn("Failed to decode presence state", "topic", ch.topic, "error", err)
		return
	}
	if state == nil {
		state = api.PresenceStatePayload{}
	}

	ch.mu.Lock()
	ch.state = state
	handler := ch.onPresence
	ch.mu.Unlock()

	if handler != nil {
		handler(transport.PresenceEvent{Kind: transport.PresenceSync, State: state})
	}
}

func (ch *channel) handlePresenceDiff(msg api.Message) {
	var diff api.PresenceDiffPayload
	if err := json.Unmarshal(msg.Payload, &diff); err != nil {
		ch.client.logger.Warn("Failed to decode presence diff", "topic", ch.topic, "error", err)
		return
	}

	ch.mu.Lock()
	for key, metas := range diff.Joins {
		ch.state[key] = append(ch.state[key], metas...)
	}
	for key, metas := range diff.Leaves {
		remaining := ch.state[key]
		for range metas {
			if len(remaining) > 0 {
				remaining = remaining[1:]
			}
		}
		if len(remaining) == 0 {
			delete(ch.state, key)
		} else {
			ch.state[key] = remaining
		}
	}
	handler := ch.onPresence
	ch.mu.Unlock()

	if handler == nil {
		return
	}
	if len(diff.Joins) > 0 {
		handler(transport.PresenceEvent{Kind: transport.PresenceJoin, Joins: diff.Joins})
	}
	if len(diff.Leaves) > 0 {
		handler(transport.PresenceEvent{Kind: transport.PresenceLeave, Leaves: diff.Leaves})
	}
}

// connectionClosed reports StatusClosed to subscribed channels after the
// underlying connection is gone.
func (ch *channel) connectionClosed() {
	ch.mu.Lock()
	wasSubscribed := ch.subscribed
	ch.subscribed = false
	ackCh := ch.ackCh
	ch.pendingRef = ""
	ch.ackCh = nil
	ch.mu.Unlock()

	if ackCh != nil {
		close(ackCh)
	}
	if wasSubscribed {
		ch.notifyStatus(transport.StatusClosed, errors.New("connection closed"))
	}
}

// resolvePending completes an in-flight subscribe whose ref matches.
func (ch *channel) resolvePending(ref string, err error) bool {
	ch.mu.Lock()
	if ch.pendingRef == "" || (ref != "" && ref != ch.pendingRef) {
		ch.mu.Unlock()
		return false
	}
	ackCh := ch.ackCh
	ch.pendingRef = ""
	ch.ackCh = nil
	ch.mu.Unlock()

	if ackCh != nil {
		ackCh <- err
	}
	return true
}

func (ch *channel) clearPending() {
	ch.mu.Lock()
	ch.pendingRef = ""
	ch.ackCh = nil
	ch.mu.Unlock()
}

func (ch *channel) notifyStatus(status transport.SubscribeStatus, err error) {
	ch.mu.Lock()
	fn := ch.statusFn
	ch.mu.Unlock()

	if fn != nil {
		fn(status, err)
	}
}
