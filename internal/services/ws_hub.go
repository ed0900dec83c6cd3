package services

import (
	"sync"
	"time"

	"matchchat-backend/internal/metrics"
	"matchchat-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Buffered sends keep slow clients from blocking store operations; a full
// buffer drops the event (clients reconcile over REST on reconnect).
const sendBufferSize = 64

// Connection is one live client connection. The gateway's write pump drains
// Send; nothing else reads it.
type Connection struct {
	Session models.Session

	send chan Envelope
	once sync.Once
}

// Send exposes the outbound event stream for the connection's write pump.
func (c *Connection) Send() <-chan Envelope { return c.send }

func (c *Connection) close() {
	c.once.Do(func() { close(c.send) })
}

// Broadcaster is the store-facing side of the gateway: fire-and-forget
// fan-out to a user's live connections.
type Broadcaster interface {
	SendToUser(userID string, ev Envelope)
	IsOnline(userID string) bool
}

// WSHub manages the per-user connection sets. It owns the registry
// exclusively; connections are inserted and removed under its lock and
// nowhere else.
type WSHub struct {
	mu    sync.RWMutex
	conns map[string]map[string]*Connection

	metrics *metrics.Metrics
}

// NewWSHub creates a new connection hub.
func NewWSHub(m *metrics.Metrics) *WSHub {
	return &WSHub{
		conns:   make(map[string]map[string]*Connection),
		metrics: m,
	}
}

// Register adds a new connection for a user and returns it.
func (h *WSHub) Register(userID string) *Connection {
	conn := &Connection{
		Session: models.Session{
			UserID:       userID,
			ConnectionID: uuid.New().String(),
			ConnectedAt:  time.Now(),
		},
		send: make(chan Envelope, sendBufferSize),
	}

	h.mu.Lock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[string]*Connection)
		h.conns[userID] = set
	}
	set[conn.Session.ConnectionID] = conn
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.LiveConnections.Inc()
	}
	log.Info().
		Str("user_id", userID).
		Str("connection_id", conn.Session.ConnectionID).
		Msg("WebSocket connection registered")
	return conn
}

// Unregister removes a connection from the routing table. In-flight store
// operations issued from it still complete.
func (h *WSHub) Unregister(conn *Connection) {
	h.mu.Lock()
	set, ok := h.conns[conn.Session.UserID]
	if ok {
		delete(set, conn.Session.ConnectionID)
		if len(set) == 0 {
			delete(h.conns, conn.Session.UserID)
		}
	}
	h.mu.Unlock()

	conn.close()
	if ok && h.metrics != nil {
		h.metrics.LiveConnections.Dec()
	}
	log.Info().
		Str("user_id", conn.Session.UserID).
		Str("connection_id", conn.Session.ConnectionID).
		Msg("WebSocket connection unregistered")
}

// SendToUser fans an event out to every live connection of the user.
// A recipient with zero connections simply misses the event.
func (h *WSHub) SendToUser(userID string, ev Envelope) {
	h.mu.RLock()
	set := h.conns[userID]
	targets := make([]*Connection, 0, len(set))
	for _, c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, ev)
	}
}

// SendToConnection delivers an event to one specific connection.
func (h *WSHub) SendToConnection(conn *Connection, ev Envelope) {
	h.deliver(conn, ev)
}

func (h *WSHub) deliver(c *Connection, ev Envelope) {
	defer func() {
		// The connection may have been unregistered (channel closed)
		// between the snapshot and the send.
		if recover() != nil {
			log.Debug().
				Str("connection_id", c.Session.ConnectionID).
				Msg("Dropped event for closed connection")
		}
	}()
	select {
	case c.send <- ev:
	default:
		if h.metrics != nil {
			h.metrics.EventsDropped.WithLabelValues(string(ev.Event)).Inc()
		}
		log.Warn().
			Str("user_id", c.Session.UserID).
			Str("event", string(ev.Event)).
			Msg("Send buffer full, event dropped")
	}
}

// IsOnline reports whether the user has at least one live connection.
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// ConnectionCount returns the user's live connection count.
func (h *WSHub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}
