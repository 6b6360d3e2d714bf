package api

import "encoding/json"

// Event names carried in Message.Event. The realtime protocol multiplexes
// every channel over a single websocket connection; Topic selects the channel.
const (
	EventSubscribe     = "subscribe"      // client -> server: join a topic
	EventAck           = "ack"            // server -> client: subscribe confirmed
	EventError         = "error"          // server -> client: subscribe/channel failure
	EventChange        = "change"         // server -> client: one change-feed event
	EventPresenceState = "presence_state" // server -> client: authoritative presence snapshot
	EventPresenceDiff  = "presence_diff"  // server -> client: incremental joins/leaves
	EventTrack         = "track"          // client -> server: announce presence
	EventUntrack       = "untrack"        // client -> server: retract presence
	EventLeave         = "leave"          // client -> server: leave a topic
	EventHeartbeat     = "heartbeat"      // both directions: keepalive
)

// Message is a single websocket frame.
type Message struct {
	Topic   string          `json:"topic,omitempty"`
	Event   string          `json:"event"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload carries the reason for an EventError frame.
type ErrorPayload struct {
	Reason string `json:"reason"`
}
