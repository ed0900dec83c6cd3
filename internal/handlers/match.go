package handlers

import (
	"net/http"

	"matchchat-backend/internal/middleware"
	"matchchat-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// MatchHandler handles match-related HTTP requests.
type MatchHandler struct {
	matchService *services.MatchService
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(matchService *services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// ListMatches handles GET /api/v1/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	newOnly := r.URL.Query().Get("new_only") == "true"

	matches, err := h.matchService.ListMatches(ctx, userID, newOnly)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list matches")
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, matches)
}

// MarkSeen handles POST /api/v1/matches/{match_id}/seen
func (h *MatchHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	matchID := chi.URLParam(r, "match_id")

	if err := h.matchService.MarkSeen(ctx, matchID, userID); err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, nil)
}

// Unmatch handles DELETE /api/v1/matches/{match_id}
func (h *MatchHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	matchID := chi.URLParam(r, "match_id")

	if err := h.matchService.Unmatch(ctx, matchID, userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("match_id", matchID).Msg("Failed to unmatch")
		respondError(w, err)
		return
	}

	log.Info().Str("user_id", userID).Str("match_id", matchID).Msg("Unmatched")
	respondData(w, http.StatusOK, nil)
}
