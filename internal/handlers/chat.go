package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"matchchat-backend/internal/middleware"
	"matchchat-backend/internal/models"
	"matchchat-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ChatHandler handles conversation and message HTTP requests.
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ListConversations handles GET /api/v1/conversations
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	convs, err := h.chatService.ListConversations(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list conversations")
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, convs)
}

// GetConversation handles GET /api/v1/conversations/{conversation_id}
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")

	conv, err := h.chatService.GetConversationForUser(ctx, convID, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, conv)
}

// ListMessages handles GET /api/v1/conversations/{conversation_id}/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	beforeID := r.URL.Query().Get("before")

	msgs, err := h.chatService.ListMessages(ctx, convID, userID, limit, beforeID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, msgs)
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	ReplyTo string          `json:"reply_to,omitempty"`
}

// SendMessage handles POST /api/v1/conversations/{conversation_id}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	msgType := models.MessageType(req.Type)
	payload, err := models.DecodePayload(msgType, req.Payload)
	if err != nil {
		respondBadRequest(w, err.Error())
		return
	}

	msg, err := h.chatService.SendMessage(ctx, convID, userID, msgType, payload, req.ReplyTo)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("conversation_id", convID).
			Msg("Failed to send message")
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, msg)
}

// EditMessageRequest represents the request body for editing a message.
type EditMessageRequest struct {
	Text string `json:"text"`
}

// EditMessage handles PUT /api/v1/conversations/{conversation_id}/messages/{message_id}
func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")
	msgID := chi.URLParam(r, "message_id")

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	msg, err := h.chatService.EditMessage(ctx, convID, msgID, userID, req.Text)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, msg)
}

// DeleteMessage handles DELETE /api/v1/conversations/{conversation_id}/messages/{message_id}
func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")
	msgID := chi.URLParam(r, "message_id")

	scope := models.DeleteScope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = models.DeleteForSender
	}

	if err := h.chatService.DeleteMessage(ctx, convID, msgID, userID, scope); err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, nil)
}

// ReactionRequest represents the request body for setting a reaction.
type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

// React handles PUT /api/v1/conversations/{conversation_id}/messages/{message_id}/reaction
func (h *ChatHandler) React(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")
	msgID := chi.URLParam(r, "message_id")

	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	msg, err := h.chatService.React(ctx, convID, msgID, userID, req.Emoji)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, msg)
}

// PinMessage handles POST /api/v1/conversations/{conversation_id}/messages/{message_id}/pin
func (h *ChatHandler) PinMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")
	msgID := chi.URLParam(r, "message_id")

	if err := h.chatService.Pin(ctx, convID, msgID, userID); err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, nil)
}

// UnpinMessage handles DELETE /api/v1/conversations/{conversation_id}/messages/{message_id}/pin
func (h *ChatHandler) UnpinMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")
	msgID := chi.URLParam(r, "message_id")

	if err := h.chatService.Unpin(ctx, convID, msgID, userID); err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, nil)
}

// MuteRequest represents the request body for muting a conversation.
// A missing duration mutes indefinitely; zero unmutes.
type MuteRequest struct {
	DurationHours *int `json:"duration_hours"`
}

// MuteConversation handles PUT /api/v1/conversations/{conversation_id}/mute
func (h *ChatHandler) MuteConversation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")

	var req MuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	var duration *time.Duration
	if req.DurationHours != nil {
		d := time.Duration(*req.DurationHours) * time.Hour
		duration = &d
	}

	conv, err := h.chatService.Mute(ctx, convID, userID, duration)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, conv)
}

// MarkReadRequest represents the request body for marking messages read.
type MarkReadRequest struct {
	MessageIDs []string `json:"message_ids"`
}

// MarkRead handles POST /api/v1/conversations/{conversation_id}/read
func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	convID := chi.URLParam(r, "conversation_id")

	var req MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if len(req.MessageIDs) == 0 {
		respondBadRequest(w, "message_ids is required")
		return
	}

	if err := h.chatService.MarkRead(ctx, convID, userID, req.MessageIDs); err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, nil)
}
