package services

import (
	"context"
	"fmt"
	"time"

	"matchchat-backend/internal/metrics"
	"matchchat-backend/internal/models"
	"matchchat-backend/internal/repository"
	apperrors "matchchat-backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Entitlements answers whether a user holds a paid capability. Issuance is
// external; the engine only consults.
type Entitlements interface {
	CanUndo(userID string) bool
}

// StaticEntitlements is a fixed entitlement set sourced from configuration.
type StaticEntitlements map[string]bool

// NewStaticEntitlements builds the set from a list of user ids.
func NewStaticEntitlements(userIDs []string) StaticEntitlements {
	set := make(StaticEntitlements, len(userIDs))
	for _, id := range userIDs {
		set[id] = true
	}
	return set
}

func (e StaticEntitlements) CanUndo(userID string) bool { return e[userID] }

// SwipeService records approval actions and triggers match evaluation.
type SwipeService struct {
	swipes       repository.SwipeRepository
	matches      repository.MatchRepository
	blocks       repository.BlockRepository
	budget       RateBudget
	registry     *MatchService
	entitlements Entitlements
	metrics      *metrics.Metrics
}

// NewSwipeService creates a new swipe service.
func NewSwipeService(
	swipes repository.SwipeRepository,
	matches repository.MatchRepository,
	blocks repository.BlockRepository,
	budget RateBudget,
	registry *MatchService,
	entitlements Entitlements,
	m *metrics.Metrics,
) *SwipeService {
	return &SwipeService{
		swipes:       swipes,
		matches:      matches,
		blocks:       blocks,
		budget:       budget,
		registry:     registry,
		entitlements: entitlements,
		metrics:      m,
	}
}

// SwipeResult is the outcome of a recorded swipe.
type SwipeResult struct {
	Swipe *models.Swipe `json:"swipe"`
	// Match is set when the swipe completed a mutual approval.
	Match *MatchResult `json:"match,omitempty"`
	// SuperLikesRemaining is meaningful for super_like actions only.
	SuperLikesRemaining int `json:"super_likes_remaining,omitempty"`
}

// Record writes the swipe and evaluates mutuality. A repeat swipe on the
// same target overwrites the earlier action.
func (s *SwipeService) Record(ctx context.Context, actor, target string, action models.SwipeAction) (*SwipeResult, error) {
	if !action.Valid() {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown action %q", action))
	}
	if actor == target {
		return nil, apperrors.ErrSelfSwipe
	}

	blocked, err := s.blocks.Blocked(ctx, actor, target)
	if err != nil {
		return nil, fmt.Errorf("failed to check blocks: %w", err)
	}
	if blocked {
		return nil, apperrors.ErrBlockedPair
	}

	existing, err := s.matches.GetActiveByPair(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.ErrAlreadyMatched
	}

	remaining := 0
	if action == models.ActionSuperLike {
		remaining, err = s.budget.Consume(ctx, actor)
		if err != nil {
			return nil, err
		}
	}

	swipe := &models.Swipe{
		ID:        uuid.New().String(),
		ActorID:   actor,
		TargetID:  target,
		Action:    action,
		CreatedAt: time.Now(),
	}
	if err := withStoreRetry(ctx, func() error { return s.swipes.Upsert(ctx, swipe) }); err != nil {
		return nil, fmt.Errorf("failed to record swipe: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SwipesTotal.WithLabelValues(string(action)).Inc()
	}
	log.Debug().
		Str("actor_id", actor).
		Str("target_id", target).
		Str("action", string(action)).
		Msg("Swipe recorded")

	result := &SwipeResult{Swipe: swipe, SuperLikesRemaining: remaining}
	if action.Approving() {
		match, err := s.registry.Evaluate(ctx, actor, target)
		if err != nil {
			return nil, err
		}
		result.Match = match
	}
	return result, nil
}

// Undo reverts the actor's most recent swipe. Disallowed once the swipe has
// produced an active match; unmatching is a separate, explicit operation.
func (s *SwipeService) Undo(ctx context.Context, actor string) (*models.Swipe, error) {
	if !s.entitlements.CanUndo(actor) {
		return nil, apperrors.ErrUndoForbidden
	}

	last, err := s.swipes.LatestByActor(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest swipe: %w", err)
	}
	if last == nil {
		return nil, apperrors.ErrNothingToUndo
	}

	match, err := s.matches.GetActiveByPair(ctx, actor, last.TargetID)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return nil, apperrors.ErrNothingToUndo
	}

	if err := s.swipes.Delete(ctx, last.ID); err != nil {
		return nil, fmt.Errorf("failed to delete swipe: %w", err)
	}
	log.Debug().Str("actor_id", actor).Str("swipe_id", last.ID).Msg("Swipe undone")
	return last, nil
}

// SuperLikesRemaining reports the actor's current budget.
func (s *SwipeService) SuperLikesRemaining(ctx context.Context, actor string) (int, error) {
	return s.budget.Remaining(ctx, actor)
}
