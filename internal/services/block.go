package services

import (
	"context"
	"fmt"
	"time"

	"matchchat-backend/internal/models"
	"matchchat-backend/internal/repository"
	apperrors "matchchat-backend/pkg/errors"

	"github.com/rs/zerolog/log"
)

// BlockService manages user blocks. Blocking tears down any active match
// between the pair and prevents future swipes in either direction.
type BlockService struct {
	blocks   repository.BlockRepository
	registry *MatchService
}

// NewBlockService creates a new block service.
func NewBlockService(blocks repository.BlockRepository, registry *MatchService) *BlockService {
	return &BlockService{blocks: blocks, registry: registry}
}

// Block records a block from blocker to blocked.
func (s *BlockService) Block(ctx context.Context, blocker, blocked string) (*models.Block, error) {
	if blocker == blocked {
		return nil, apperrors.ErrSelfBlock
	}

	existing, err := s.blocks.Get(ctx, blocker, blocked)
	if err != nil {
		return nil, fmt.Errorf("failed to check block: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrAlreadyBlocked
	}

	block := &models.Block{
		BlockerID: blocker,
		BlockedID: blocked,
		CreatedAt: time.Now(),
	}
	if err := s.blocks.Create(ctx, block); err != nil {
		return nil, fmt.Errorf("failed to create block: %w", err)
	}

	if err := s.registry.DeactivatePair(ctx, blocker, blocked); err != nil {
		log.Error().Err(err).
			Str("blocker_id", blocker).
			Str("blocked_id", blocked).
			Msg("Failed to deactivate match for blocked pair")
	}

	log.Info().Str("blocker_id", blocker).Str("blocked_id", blocked).Msg("User blocked")
	return block, nil
}

// Unblock removes a block. The pair may swipe on each other again; the
// torn-down match does not come back.
func (s *BlockService) Unblock(ctx context.Context, blocker, blocked string) error {
	existing, err := s.blocks.Get(ctx, blocker, blocked)
	if err != nil {
		return fmt.Errorf("failed to check block: %w", err)
	}
	if existing == nil {
		return apperrors.ErrBlockNotFound
	}
	return s.blocks.Delete(ctx, blocker, blocked)
}
