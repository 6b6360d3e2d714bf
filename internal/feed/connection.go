// Package feed owns the change-feed subscription lifecycle for one entity
// collection: connect, classified failure states, bounded reconnection with
// exponential backoff, and in-order delivery of raw change events.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/realsync/internal/models"
	"github.com/iudanet/realsync/internal/transport"
	"github.com/iudanet/realsync/pkg/api"
)

const (
	defaultMaxReconnectAttempts = 5
	defaultReconnectDelay       = time.Second
)

// Options configures one change-feed connection.
type Options struct {
	// Topic is the channel name of the collection feed, e.g. "members-changes".
	Topic string

	// AutoReconnect re-subscribes after transport errors with exponential
	// backoff, up to MaxReconnectAttempts. After the limit the connection
	// stays in the error state until Reconnect is called.
	AutoReconnect bool

	// MaxReconnectAttempts bounds automatic reconnection. Zero means the
	// default of 5.
	MaxReconnectAttempts int

	// ReconnectDelay is the base backoff delay. Zero means 1s.
	ReconnectDelay time.Duration
}

// Connection maintains one logical subscription to a collection change feed.
type Connection struct {
	transport transport.Transport
	logger    *slog.Logger
	opts      Options

	mu       sync.Mutex
	ctx      context.Context
	channel  transport.Channel
	backoff  retry.Backoff
	timer    *time.Timer
	status   models.ConnectionStatus
	onEvent  func(models.ChangeEvent)
	onStatus func(models.ConnectionStatus)
}

// New creates a disconnected change-feed connection.
func New(t transport.Transport, opts Options, logger *slog.Logger) *Connection {
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	return &Connection{
		transport: t,
		logger:    logger,
		opts:      opts,
	}
}

// OnEvent registers the callback invoked once per raw change message, in
// the order the transport emits them. Must be set before Connect.
func (c *Connection) OnEvent(fn func(models.ChangeEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

// OnStatus registers the callback invoked on every status transition.
func (c *Connection) OnStatus(fn func(models.ConnectionStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = fn
}

// Status returns a snapshot of the current connection status.
func (c *Connection) Status() models.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connect establishes the subscription. It is idempotent: calling it while
// already connected or connecting is a no-op. The context bounds the whole
// connection lifecycle, including automatic reconnects.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status.Connected || c.status.Connecting {
		c.mu.Unlock()
		return nil
	}
	// Claimed in the same critical section as the check, so a concurrent
	// Connect cannot slip past and register a second subscription.
	c.status.Connecting = true
	c.ctx = ctx
	c.backoff = retry.NewExponential(c.opts.ReconnectDelay)
	c.mu.Unlock()

	return c.subscribe(ctx)
}

// Reconnect forces a fresh subscription: teardown, attempt counter reset,
// subscribe again.
func (c *Connection) Reconnect(ctx context.Context) error {
	c.teardown()

	c.mu.Lock()
	c.ctx = ctx
	c.status.ReconnectAttempts = 0
	c.backoff = retry.NewExponential(c.opts.ReconnectDelay)
	c.mu.Unlock()

	return c.subscribe(ctx)
}

// Disconnect releases the subscription. Safe to call multiple times.
func (c *Connection) Disconnect() {
	c.teardown()
	c.setStatus(func(st *models.ConnectionStatus) {
		st.Connected = false
		st.Connecting = false
		st.Error = ""
	})
}

// teardown cancels any pending reconnect and releases the live channel.
// The prior subscription is guaranteed gone before a new one is made, so
// duplicate live subscriptions cannot exist.
func (c *Connection) teardown() {
	c.mu.Lock()
	timer := c.timer
	channel := c.channel
	c.timer = nil
	c.channel = nil
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if channel != nil {
		if err := channel.Unsubscribe(); err != nil {
			c.logger.Warn("failed to unsubscribe channel",
				"topic", c.opts.Topic,
				"error", err)
		}
	}
}

func (c *Connection) subscribe(ctx context.Context) error {
	c.setStatus(func(st *models.ConnectionStatus) {
		st.Connected = false
		st.Connecting = true
		st.Error = ""
	})

	channel := c.transport.Channel(c.opts.Topic)
	channel.OnChange(c.handleChange)

	c.mu.Lock()
	c.channel = channel
	c.mu.Unlock()

	if err := channel.Subscribe(ctx, c.handleSubscribeStatus); err != nil {
		c.logger.Error("channel subscribe failed",
			"topic", c.opts.Topic,
			"error", err)
		c.enterError(models.ErrChannelSubscription)
		return err
	}
	return nil
}

// handleSubscribeStatus drives the state machine from transport signals.
func (c *Connection) handleSubscribeStatus(status transport.SubscribeStatus, err error) {
	switch status {
	case transport.StatusSubscribed:
		c.logger.Info("change feed subscribed", "topic", c.opts.Topic)
		c.setStatus(func(st *models.ConnectionStatus) {
			st.Connected = true
			st.Connecting = false
			st.Error = ""
			st.ReconnectAttempts = 0
		})

	case transport.StatusChannelError:
		c.logger.Warn("change feed channel error",
			"topic", c.opts.Topic,
			"error", err)
		c.enterError(models.ErrChannelSubscription)

	case transport.StatusTimedOut:
		c.logger.Warn("change feed subscribe timed out", "topic", c.opts.Topic)
		c.enterError(models.ErrConnectionTimeout)

	case transport.StatusClosed:
		c.logger.Info("change feed closed", "topic", c.opts.Topic)
		c.setStatus(func(st *models.ConnectionStatus) {
			st.Connected = false
			st.Connecting = false
			st.Error = ""
		})
	}
}

// enterError records the classified error and schedules a bounded reconnect
// when enabled. The message is one of the models.Err* constants so UI layers
// render consistent text instead of raw transport errors.
func (c *Connection) enterError(message string) {
	c.setStatus(func(st *models.ConnectionStatus) {
		st.Connected = false
		st.Connecting = false
		st.Error = message
	})

	if !c.opts.AutoReconnect {
		return
	}

	c.mu.Lock()
	if c.status.ReconnectAttempts >= c.opts.MaxReconnectAttempts {
		c.mu.Unlock()
		c.logger.Error("max reconnect attempts reached, giving up",
			"topic", c.opts.Topic,
			"attempts", c.opts.MaxReconnectAttempts)
		return
	}
	c.status.ReconnectAttempts++
	attempt := c.status.ReconnectAttempts
	ctx := c.ctx
	delay, stopped := c.backoff.Next()
	if stopped {
		c.mu.Unlock()
		return
	}
	c.timer = time.AfterFunc(delay, func() {
		if ctx != nil && ctx.Err() != nil {
			return
		}
		c.logger.Info("reconnecting change feed",
			"topic", c.opts.Topic,
			"attempt", attempt)
		c.teardown()
		//nolint:errcheck // failures re-enter the error state via the status callback
		c.subscribe(ctx)
	})
	c.mu.Unlock()

	// attempt counter changed after the error transition
	c.notifyStatus(c.Status())
}

// handleChange adapts one wire payload into a ChangeEvent and hands it to
// the registered handler. No reordering or batching: events are delivered
// exactly as emitted.
func (c *Connection) handleChange(payload api.ChangePayload) {
	c.mu.Lock()
	handler := c.onEvent
	c.mu.Unlock()
	if handler == nil {
		return
	}

	event := models.ChangeEvent{
		Type:      models.ParseChangeType(payload.EventType),
		Timestamp: payload.Timestamp,
	}
	if payload.New != nil {
		event.Entity = models.Entity(payload.New)
	}
	if payload.Old != nil {
		event.Previous = models.Entity(payload.Old)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	handler(event)
}

func (c *Connection) setStatus(mutate func(*models.ConnectionStatus)) {
	c.mu.Lock()
	mutate(&c.status)
	status := c.status
	notify := c.onStatus
	c.mu.Unlock()

	if notify != nil {
		notify(status)
	}
}

func (c *Connection) notifyStatus(status models.ConnectionStatus) {
	c.mu.Lock()
	notify := c.onStatus
	c.mu.Unlock()
	if notify != nil {
		notify(status)
	}
}
