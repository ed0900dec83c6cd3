package handlers

import (
	"encoding/json"
	"net/http"

	"matchchat-backend/internal/middleware"
	"matchchat-backend/internal/models"
	"matchchat-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// SwipeHandler handles swipe-related HTTP requests.
type SwipeHandler struct {
	swipeService *services.SwipeService
}

// NewSwipeHandler creates a new swipe handler.
func NewSwipeHandler(swipeService *services.SwipeService) *SwipeHandler {
	return &SwipeHandler{swipeService: swipeService}
}

// SwipeRequest represents the request body for recording a swipe.
type SwipeRequest struct {
	TargetID string `json:"target_id"`
	Action   string `json:"action"`
}

// RecordSwipe handles POST /api/v1/swipes
func (h *SwipeHandler) RecordSwipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.TargetID == "" {
		respondBadRequest(w, "target_id is required")
		return
	}

	result, err := h.swipeService.Record(ctx, userID, req.TargetID, models.SwipeAction(req.Action))
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("target_id", req.TargetID).
			Str("action", req.Action).
			Msg("Failed to record swipe")
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, result)
}

// UndoSwipe handles POST /api/v1/swipes/undo
func (h *SwipeHandler) UndoSwipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	swipe, err := h.swipeService.Undo(ctx, userID)
	if err != nil {
		respondError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("swipe_id", swipe.ID).Msg("Swipe undone")
	respondData(w, http.StatusOK, swipe)
}
