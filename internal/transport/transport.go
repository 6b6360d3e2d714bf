// Package transport defines the realtime transport boundary: a multiplexed
// connection handing out named channels that deliver change-feed and
// presence messages. Any pub/sub transport with channel multiplexing can sit
// behind these interfaces; the ws subpackage provides the websocket one.
package transport

import (
	"context"

	"github.com/iudanet/realsync/pkg/api"
)

//go:generate moq -out transport_mock.go . Transport Channel

// SubscribeStatus is the transport's verdict on a channel subscription,
// reported asynchronously through the Subscribe callback.
type SubscribeStatus string

const (
	StatusSubscribed   SubscribeStatus = "SUBSCRIBED"
	StatusChannelError SubscribeStatus = "CHANNEL_ERROR"
	StatusTimedOut     SubscribeStatus = "TIMED_OUT"
	StatusClosed       SubscribeStatus = "CLOSED"
)

// PresenceEventKind classifies a presence message.
type PresenceEventKind string

const (
	// PresenceSync carries the authoritative snapshot for the channel.
	PresenceSync PresenceEventKind = "sync"
	// PresenceJoin carries incremental joins layered on the last sync.
	PresenceJoin PresenceEventKind = "join"
	// PresenceLeave carries incremental leaves layered on the last sync.
	PresenceLeave PresenceEventKind = "leave"
)

// PresenceEvent is one presence message delivered on a channel.
// State is set for sync events; Joins/Leaves for the incremental kinds.
type PresenceEvent struct {
	State  api.PresenceStatePayload
	Joins  map[string][]api.PresenceMeta
	Leaves map[string][]api.PresenceMeta
	Kind   PresenceEventKind
}

// Transport hands out logical channels over one underlying connection.
type Transport interface {
	// Channel returns the channel for the given topic, creating it on
	// first use. Repeated calls with the same topic return the same
	// logical channel.
	Channel(topic string) Channel
}

// Channel is one logical subscription on the transport. Handlers must be
// registered before Subscribe; the transport delivers messages for a single
// channel in emission order.
type Channel interface {
	// OnChange registers the handler for change-feed messages.
	OnChange(handler func(api.ChangePayload))

	// OnPresence registers the handler for presence messages.
	OnPresence(handler func(PresenceEvent))

	// Subscribe activates the channel. The status callback fires once the
	// transport acknowledges or rejects the subscription, and again on
	// later transitions (server close, timeout).
	Subscribe(ctx context.Context, status func(SubscribeStatus, error)) error

	// Unsubscribe releases the channel's server-side slot.
	// Safe to call multiple times.
	Unsubscribe() error

	// Track announces the local actor's presence on the channel,
	// replacing any previous announcement by the same actor.
	Track(ctx context.Context, payload api.TrackPayload) error

	// Untrack retracts the local actor's presence announcement.
	Untrack(ctx context.Context) error

	// PresenceState returns the channel's last known presence map.
	PresenceState() api.PresenceStatePayload
}
