package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/realsync/internal/server/auth"
	"github.com/iudanet/realsync/internal/server/hub"
	"github.com/iudanet/realsync/pkg/api"
)

const (
	writeTimeout   = 10 * time.Second
	pingInterval   = 30 * time.Second
	outboundBuffer = 64

	presenceTopicPrefix = "presence:"
)

// WSHandler upgrades realtime connections and bridges them to the hub.
type WSHandler struct {
	logger    *slog.Logger
	hub       *hub.Hub
	jwtConfig auth.JWTConfig
	upgrader  websocket.Upgrader
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(logger *slog.Logger, h *hub.Hub, jwtConfig auth.JWTConfig) *WSHandler {
	return &WSHandler{
		logger:    logger,
		hub:       h,
		jwtConfig: jwtConfig,
		upgrader:  websocket.Upgrader{},
	}
}

// ServeWS handles GET /ws. The access token is taken from the "token"
// query parameter or the Authorization header.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}

	claims, err := auth.ValidateAccessToken(h.jwtConfig, token)
	if err != nil {
		h.logger.Warn("Websocket auth failed", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", "error", err)
		return
	}

	s := &session{
		logger:     h.logger.With("user_id", claims.UserID),
		hub:        h.hub,
		conn:       conn,
		userID:     claims.UserID,
		username:   claims.Username,
		outbound:   make(chan api.Message, outboundBuffer),
		subs:       make(map[string]*hub.Subscription),
		done:       make(chan struct{}),
		writerGone: make(chan struct{}),
	}

	h.logger.Info("Websocket connected", "user_id", claims.UserID, "username", claims.Username)

	go s.writePump()
	s.readLoop()
	s.close()

	h.logger.Info("Websocket disconnected", "user_id", claims.UserID)
}

// session is one websocket connection: its topic subscriptions and the
// single outbound write queue.
type session struct {
	logger   *slog.Logger
	hub      *hub.Hub
	conn     *websocket.Conn
	userID   string
	username string

	outbound   chan api.Message
	done       chan struct{}
	writerGone chan struct{}

	subs map[string]*hub.Subscription
	mu   sync.Mutex
}

func (s *session) readLoop() {
	for {
		var msg api.Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Websocket read failed", "error", err)
			}
			return
		}

		switch msg.Event {
		case api.EventSubscribe:
			s.handleSubscribe(msg)
		case api.EventLeave:
			s.handleLeave(msg)
		case api.EventTrack:
			s.handleTrack(msg)
		case api.EventUntrack:
			s.handleUntrack(msg)
		case api.EventHeartbeat:
			s.send(api.Message{Event: api.EventHeartbeat, Ref: msg.Ref})
		default:
			s.logger.Warn("Unknown websocket event", "event", msg.Event)
		}
	}
}

func (s *session) handleSubscribe(msg api.Message) {
	s.mu.Lock()
	if _, ok := s.subs[msg.Topic]; ok {
		s.mu.Unlock()
		s.send(api.Message{Topic: msg.Topic, Event: api.EventAck, Ref: msg.Ref})
		return
	}

	ch := s.hub.Channel(msg.Topic)
	sub := ch.Subscribe()
	s.subs[msg.Topic] = sub
	s.mu.Unlock()

	go s.pump(sub)

	s.send(api.Message{Topic: msg.Topic, Event: api.EventAck, Ref: msg.Ref})

	// Presence channels get the authoritative snapshot right after the ack.
	if strings.HasPrefix(msg.Topic, presenceTopicPrefix) {
		state, err := json.Marshal(ch.State())
		if err != nil {
			s.logger.Error("Failed to marshal presence state", "topic", msg.Topic, "error", err)
			return
		}
		s.send(api.Message{Topic: msg.Topic, Event: api.EventPresenceState, Payload: state})
	}
}

func (s *session) handleLeave(msg api.Message) {
	s.mu.Lock()
	sub, ok := s.subs[msg.Topic]
	if ok {
		delete(s.subs, msg.Topic)
	}
	s.mu.Unlock()

	if ok {
		s.hub.Channel(msg.Topic).Unsubscribe(sub.ID)
	}
}

func (s *session) handleTrack(msg api.Message) {
	var payload api.TrackPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Warn("Failed to decode track payload", "topic", msg.Topic, "error", err)
		return
	}
	if payload.UserID == "" {
		payload.UserID = s.userID
	}
	if payload.Username == "" {
		payload.Username = s.username
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	sub, ok := s.subs[msg.Topic]
	s.mu.Unlock()
	if !ok {
		s.sendError(msg.Topic, "not subscribed")
		return
	}

	s.hub.Channel(msg.Topic).Track(sub.ID, payload)
}

func (s *session) handleUntrack(msg api.Message) {
	s.mu.Lock()
	sub, ok := s.subs[msg.Topic]
	s.mu.Unlock()
	if !ok {
		return
	}

	s.hub.Channel(msg.Topic).Untrack(sub.ID)
}

// pump forwards one subscription's frames into the shared outbound queue
// until the subscription closes or the session ends.
func (s *session) pump(sub *hub.Subscription) {
	for msg := range sub.C {
		select {
		case s.outbound <- msg:
		case <-s.done:
			return
		case <-s.writerGone:
			return
		}
	}
}

func (s *session) send(msg api.Message) {
	select {
	case s.outbound <- msg:
	case <-s.done:
	case <-s.writerGone:
	}
}

func (s *session) sendError(topic, reason string) {
	payload, err := json.Marshal(api.ErrorPayload{Reason: reason})
	if err != nil {
		return
	}
	s.send(api.Message{Topic: topic, Event: api.EventError, Payload: payload})
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer s.conn.Close()
	defer close(s.writerGone)

	for {
		select {
		case msg := <-s.outbound:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}

func (s *session) close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*hub.Subscription)
	s.mu.Unlock()

	for topic, sub := range subs {
		s.hub.Channel(topic).Unsubscribe(sub.ID)
	}

	close(s.done)
}
