package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"matchchat-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Close code sent when the connection token fails validation.
const closeUnauthorized = 4001

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for MVP
	},
}

// inboundEvent is a client frame before its data is decoded.
type inboundEvent struct {
	Event services.EventType `json:"event"`
	Data  json.RawMessage    `json:"data,omitempty"`
}

// WebSocketHandler handles WebSocket connections.
type WebSocketHandler struct {
	hub             *services.WSHub
	tokens          *services.TokenService
	presence        *services.PresenceTracker
	chatService     *services.ChatService
	muteStopsTyping bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(
	hub *services.WSHub,
	tokens *services.TokenService,
	presence *services.PresenceTracker,
	chatService *services.ChatService,
	muteStopsTyping bool,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:             hub,
		tokens:          tokens,
		presence:        presence,
		chatService:     chatService,
		muteStopsTyping: muteStopsTyping,
	}
}

// HandleWebSocket handles GET /ws?token=...
// The token is checked after the upgrade so the client receives a proper
// close frame instead of a failed handshake.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	userID, err := h.tokens.ValidateToken(r.URL.Query().Get("token"))
	if err != nil {
		deadline := time.Now().Add(writeTimeout)
		msg := websocket.FormatCloseMessage(closeUnauthorized, "unauthorized")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		return
	}

	ctx := r.Context()
	c := h.hub.Register(userID)
	h.presence.OnConnect(ctx, userID)
	defer func() {
		h.hub.Unregister(c)
		h.presence.OnDisconnect(context.WithoutCancel(ctx), userID)
	}()

	log.Info().
		Str("user_id", userID).
		Str("connection_id", c.Session.ConnectionID).
		Msg("WebSocket connection established")

	// Write pump. Exits when the hub closes the connection's send channel.
	go func() {
		for ev := range c.Send() {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				log.Debug().Err(err).Str("user_id", userID).Msg("WebSocket write failed")
				return
			}
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			return
		}

		var ev inboundEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			h.hub.SendToConnection(c, services.Envelope{
				Event: services.EventError,
				Data:  services.ErrorEventData{Message: "invalid event format"},
			})
			continue
		}

		if err := h.handleEvent(ctx, c, userID, ev); err != nil {
			log.Debug().
				Err(err).
				Str("user_id", userID).
				Str("event", string(ev.Event)).
				Msg("Failed to handle event")
			h.hub.SendToConnection(c, services.Envelope{
				Event: services.EventError,
				Data:  services.ErrorEventData{Message: err.Error()},
			})
		}
	}
}

func (h *WebSocketHandler) handleEvent(ctx context.Context, c *services.Connection, userID string, ev inboundEvent) error {
	switch ev.Event {
	case services.EventPing:
		h.hub.SendToConnection(c, services.Envelope{Event: services.EventPong})
		return nil

	case services.EventTyping:
		return h.relayTyping(ctx, userID, ev.Data, services.EventUserTyping)
	case services.EventStopTyping:
		return h.relayTyping(ctx, userID, ev.Data, services.EventUserStopTyping)
	case services.EventRecordingVoice:
		return h.relayTyping(ctx, userID, ev.Data, services.EventUserRecordingVoice)

	case services.EventMessageRead:
		var data struct {
			ConversationID string   `json:"conversation_id"`
			MessageIDs     []string `json:"message_ids"`
		}
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return err
		}
		return h.chatService.MarkRead(ctx, data.ConversationID, userID, data.MessageIDs)

	default:
		h.hub.SendToConnection(c, services.Envelope{
			Event: services.EventError,
			Data:  services.ErrorEventData{Message: "unknown event: " + string(ev.Event)},
		})
		return nil
	}
}

// relayTyping forwards an ephemeral typing signal to the other participant.
// Never persisted; a signal that arrives while nobody listens is gone.
func (h *WebSocketHandler) relayTyping(ctx context.Context, userID string, raw json.RawMessage, out services.EventType) error {
	var data services.TypingEventData
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	conv, err := h.chatService.GetConversationForUser(ctx, data.ConversationID, userID)
	if err != nil {
		return err
	}

	other := conv.OtherUser(userID)
	if h.muteStopsTyping && conv.MuteFor(other).Active(time.Now()) {
		return nil
	}

	h.hub.SendToUser(other, services.Envelope{
		Event: out,
		Data:  services.TypingEventData{ConversationID: conv.ID, UserID: userID},
	})
	return nil
}
