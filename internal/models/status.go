package models

// Classified connection error messages. UI layers render these verbatim,
// so transport exceptions are never surfaced raw.
const (
	ErrChannelSubscription = "Channel subscription error"
	ErrConnectionTimeout   = "Connection timed out"
	ErrConnectionClosed    = "Connection closed"
)

// ConnectionStatus is the observable state of one change-feed connection.
// Error is one of the classified messages above, or "" while healthy.
type ConnectionStatus struct {
	Error             string
	ReconnectAttempts int
	Connected         bool
	Connecting        bool
}
