// Package ws implements the websocket transport: one connection to the
// realtime server multiplexing change-feed and presence channels.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/realsync/internal/transport"
	"github.com/iudanet/realsync/pkg/api"
)

const (
	defaultSubscribeTimeout = 10 * time.Second
	writeTimeout            = 10 * time.Second
)

// ErrClosed is returned for operations on a closed client
var ErrClosed = errors.New("websocket client is closed")

// Client is a websocket transport.Transport implementation. A Client is
// bound to one connection for its whole lifetime: once the socket drops or
// Close is called, subscribed channels report StatusClosed, further writes
// fail with ErrClosed, and a new Dial is needed to reconnect. Feed-level
// Reconnect recovers subscription loss on a live connection, not the loss
// of the connection itself.
type Client struct {
	logger   *slog.Logger
	conn     *websocket.Conn
	channels map[string]*channel
	done     chan struct{}

	subscribeTimeout time.Duration

	mu      sync.Mutex // guards channels and closed
	writeMu sync.Mutex // gorilla permits one concurrent writer
	closed  bool
}

var _ transport.Transport = (*Client)(nil)

// Dial connects to the realtime server. rawURL is the websocket endpoint
// (ws://host/ws); the access token is passed as a query parameter. The
// returned client is single-use: after Close or a dropped socket, Dial
// again for a fresh connection.
func Dial(ctx context.Context, logger *slog.Logger, rawURL, token string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &Client{
		logger:           logger,
		conn:             conn,
		channels:         make(map[string]*channel),
		done:             make(chan struct{}),
		subscribeTimeout: defaultSubscribeTimeout,
	}

	go c.readLoop()
	return c, nil
}

// Channel returns the logical channel for a topic, creating it on first use.
func (c *Client) Channel(topic string) transport.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.channels[topic]
	if !ok {
		ch = newChannel(c, topic)
		c.channels[topic] = ch
	}
	return ch
}

// Close tears down the connection permanently. Subscribed channels report
// StatusClosed through their status callbacks; the client cannot be reused
// afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	return c.conn.Close()
}

func (c *Client) readLoop() {
	for {
		var msg api.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.handleDisconnect(err)
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg api.Message) {
	c.mu.Lock()
	ch, ok := c.channels[msg.Topic]
	c.mu.Unlock()
	if !ok {
		if msg.Event != api.EventHeartbeat {
			c.logger.Debug("Frame for unknown topic", "topic", msg.Topic, "event", msg.Event)
		}
		return
	}
	ch.handle(msg)
}

func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	alreadyClosed := c.closed
	c.closed = true
	channels := make([]*channel, 0, len(c.channels))
	for _, ch := range c.channels {
		channels = append(channels, ch)
	}
	c.mu.Unlock()

	if !alreadyClosed {
		c.logger.Warn("Websocket connection lost", "error", err)
	}

	for _, ch := range channels {
		ch.connectionClosed()
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) write(msg api.Message) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
