package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/realsync/pkg/api"
)

// subscriberBuffer is the per-subscriber queue depth. A subscriber that
// cannot drain its queue in time loses frames rather than blocking the
// broadcaster.
const subscriberBuffer = 64

// Subscription is one subscriber's handle on a channel.
type Subscription struct {
	ID string
	C  <-chan api.Message

	send chan api.Message
}

// trackedEntry remembers the exact presence entry a subscription added, so
// untracking removes and announces that entry and not a sibling's.
type trackedEntry struct {
	key  string
	meta api.PresenceMeta
}

// Channel is a single topic: its subscribers and presence state.
type Channel struct {
	topic       string
	logger      *slog.Logger
	subscribers map[string]*Subscription
	presence    map[string][]api.PresenceMeta
	tracked     map[string]trackedEntry // subscription id -> its entry
	mu          sync.RWMutex
}

func newChannel(topic string, logger *slog.Logger) *Channel {
	return &Channel{
		topic:       topic,
		logger:      logger,
		subscribers: make(map[string]*Subscription),
		presence:    make(map[string][]api.PresenceMeta),
		tracked:     make(map[string]trackedEntry),
	}
}

// Topic returns the channel's topic.
func (c *Channel) Topic() string {
	return c.topic
}

// Subscribe registers a new subscriber and returns its subscription.
func (c *Channel) Subscribe() *Subscription {
	sub := &Subscription{
		ID:   uuid.NewString(),
		send: make(chan api.Message, subscriberBuffer),
	}
	sub.C = sub.send

	c.mu.Lock()
	c.subscribers[sub.ID] = sub
	c.mu.Unlock()

	c.logger.Debug("Subscriber joined", "topic", c.topic, "subscription_id", sub.ID)
	return sub
}

// Unsubscribe removes a subscriber and closes its queue. Presence tracked
// by the subscriber is retracted and the leave is broadcast to the rest.
func (c *Channel) Unsubscribe(subID string) {
	c.mu.Lock()
	sub, ok := c.subscribers[subID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subscribers, subID)
	leaves := c.untrackLocked(subID)
	c.mu.Unlock()

	close(sub.send)
	c.logger.Debug("Subscriber left", "topic", c.topic, "subscription_id", subID)

	if len(leaves) > 0 {
		c.broadcastPresenceDiff(nil, leaves)
	}
}

// Len returns the number of active subscribers.
func (c *Channel) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers)
}

// broadcast fans a message out to every subscriber. Sends are
// non-blocking: a full queue drops the frame for that subscriber.
func (c *Channel) broadcast(msg api.Message) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, sub := range c.subscribers {
		select {
		case sub.send <- msg:
		default:
			c.logger.Warn("Subscriber queue full, dropping frame",
				"topic", c.topic, "subscription_id", id, "event", msg.Event)
		}
	}
}

// Track records presence for a subscription and broadcasts the join.
// Re-tracking with the same subscription replaces the previous entry; the
// diff then carries the replaced entry as a leave alongside the join, so
// observers replaying deltas stay aligned with the snapshot.
func (c *Channel) Track(subID string, payload api.TrackPayload) {
	meta := api.PresenceMeta{
		Timestamp: payload.Timestamp,
		UserID:    payload.UserID,
		Username:  payload.Username,
		Action:    payload.Action,
	}

	c.mu.Lock()
	leaves := c.untrackLocked(subID)
	c.presence[payload.UserID] = append(c.presence[payload.UserID], meta)
	c.tracked[subID] = trackedEntry{key: payload.UserID, meta: meta}
	c.mu.Unlock()

	joins := map[string][]api.PresenceMeta{payload.UserID: {meta}}
	c.broadcastPresenceDiff(joins, leaves)
}

// Untrack retracts a subscription's presence and broadcasts the leave.
func (c *Channel) Untrack(subID string) {
	c.mu.Lock()
	leaves := c.untrackLocked(subID)
	c.mu.Unlock()

	if len(leaves) > 0 {
		c.broadcastPresenceDiff(nil, leaves)
	}
}

// untrackLocked removes the exact presence entry owned by subID and returns
// the resulting leaves map. Caller holds c.mu.
func (c *Channel) untrackLocked(subID string) map[string][]api.PresenceMeta {
	entry, ok := c.tracked[subID]
	if !ok {
		return nil
	}
	delete(c.tracked, subID)

	metas := c.presence[entry.key]
	for i, meta := range metas {
		if meta == entry.meta {
			metas = append(metas[:i:i], metas[i+1:]...)
			break
		}
	}
	if len(metas) == 0 {
		delete(c.presence, entry.key)
	} else {
		c.presence[entry.key] = metas
	}

	return map[string][]api.PresenceMeta{entry.key: {entry.meta}}
}

// State returns a copy of the authoritative presence map.
func (c *Channel) State() api.PresenceStatePayload {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := make(api.PresenceStatePayload, len(c.presence))
	for key, metas := range c.presence {
		state[key] = append([]api.PresenceMeta(nil), metas...)
	}
	return state
}

func (c *Channel) broadcastPresenceDiff(joins, leaves map[string][]api.PresenceMeta) {
	if joins == nil {
		joins = map[string][]api.PresenceMeta{}
	}
	if leaves == nil {
		leaves = map[string][]api.PresenceMeta{}
	}

	data, err := json.Marshal(api.PresenceDiffPayload{Joins: joins, Leaves: leaves})
	if err != nil {
		c.logger.Error("Failed to marshal presence diff", "topic", c.topic, "error", err)
		return
	}

	c.broadcast(api.Message{
		Topic:   c.topic,
		Event:   api.EventPresenceDiff,
		Payload: data,
	})
}
