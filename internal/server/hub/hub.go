// Package hub implements in-process pub/sub fan-out for the realtime
// server. Every topic maps to a Channel holding subscriber queues and
// the authoritative presence state for that topic.
package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iudanet/realsync/pkg/api"
)

// Hub owns all active channels, keyed by topic.
type Hub struct {
	logger   *slog.Logger
	channels map[string]*Channel
	mu       sync.RWMutex
}

// New creates an empty hub
func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger:   logger,
		channels: make(map[string]*Channel),
	}
}

// Channel returns the channel for a topic, creating it on first use.
func (h *Hub) Channel(topic string) *Channel {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[topic]
	if !ok {
		ch = newChannel(topic, h.logger)
		h.channels[topic] = ch
	}
	return ch
}

// Broadcast marshals payload and fans it out to every subscriber of the
// topic. Topics without subscribers are skipped.
func (h *Hub) Broadcast(topic, event string, payload any) error {
	h.mu.RLock()
	ch, ok := h.channels[topic]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	ch.broadcast(api.Message{
		Topic:   topic,
		Event:   event,
		Payload: data,
	})
	return nil
}

// Topics returns the topics that currently have at least one subscriber.
func (h *Hub) Topics() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	topics := make([]string, 0, len(h.channels))
	for topic, ch := range h.channels {
		if ch.Len() > 0 {
			topics = append(topics, topic)
		}
	}
	return topics
}
