package handlers

import (
	"net/http"

	"matchchat-backend/internal/middleware"
	"matchchat-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// BlockHandler handles block-related HTTP requests.
type BlockHandler struct {
	blockService *services.BlockService
}

// NewBlockHandler creates a new block handler.
func NewBlockHandler(blockService *services.BlockService) *BlockHandler {
	return &BlockHandler{blockService: blockService}
}

// BlockUser handles POST /api/v1/blocks/{user_id}
func (h *BlockHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	target := chi.URLParam(r, "user_id")

	block, err := h.blockService.Block(ctx, userID, target)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("target_id", target).Msg("Failed to block user")
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, block)
}

// UnblockUser handles DELETE /api/v1/blocks/{user_id}
func (h *BlockHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	target := chi.URLParam(r, "user_id")

	if err := h.blockService.Unblock(ctx, userID, target); err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, nil)
}
