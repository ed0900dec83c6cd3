package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchchat-backend/internal/metrics"
	"matchchat-backend/internal/models"
	"matchchat-backend/internal/push"
	"matchchat-backend/internal/repository"
	apperrors "matchchat-backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MatchService detects mutual approval and owns the match lifecycle.
type MatchService struct {
	matches       repository.MatchRepository
	conversations repository.ConversationRepository
	swipes        repository.SwipeRepository
	hub           Broadcaster
	notifier      push.Notifier
	metrics       *metrics.Metrics
}

// NewMatchService creates a new match service.
func NewMatchService(
	matches repository.MatchRepository,
	conversations repository.ConversationRepository,
	swipes repository.SwipeRepository,
	hub Broadcaster,
	notifier push.Notifier,
	m *metrics.Metrics,
) *MatchService {
	return &MatchService{
		matches:       matches,
		conversations: conversations,
		swipes:        swipes,
		hub:           hub,
		notifier:      notifier,
		metrics:       m,
	}
}

// MatchResult pairs a match with its conversation id.
type MatchResult struct {
	Match          *models.Match `json:"match"`
	ConversationID string        `json:"conversation_id"`
	IsNew          bool          `json:"is_new"`
}

// Evaluate checks whether actor's swipe on target completes a mutual
// approval. Returns nil when no match forms. Concurrent evaluations for the
// same pair resolve to exactly one match: the conditional insert either wins
// or reads back the winner's row.
func (s *MatchService) Evaluate(ctx context.Context, actor, target string) (*MatchResult, error) {
	reverse, err := s.swipes.Get(ctx, target, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to read reverse swipe: %w", err)
	}
	if reverse == nil || !reverse.Action.Approving() {
		return nil, nil
	}

	a, b := models.PairKey(actor, target)
	candidate := &models.Match{
		ID:        uuid.New().String(),
		UserAID:   a,
		UserBID:   b,
		MatchedAt: time.Now(),
		Status:    models.MatchActive,
	}

	match, created, err := s.matches.CreateIfAbsent(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	if !created {
		// The winner provisions the conversation just after the insert;
		// a concurrent loser may observe the gap.
		var conv *models.Conversation
		for attempt := 0; ; attempt++ {
			conv, err = s.conversations.GetByMatchID(ctx, match.ID)
			if err == nil {
				break
			}
			if !errors.Is(err, apperrors.ErrConversationNotFound) || attempt >= 20 {
				return nil, err
			}
			time.Sleep(10 * time.Millisecond)
		}
		return &MatchResult{Match: match, ConversationID: conv.ID, IsNew: false}, nil
	}

	now := time.Now()
	conv := &models.Conversation{
		ID:        uuid.New().String(),
		MatchID:   match.ID,
		UserAID:   match.UserAID,
		UserBID:   match.UserBID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to provision conversation: %w", err)
	}

	if s.metrics != nil {
		s.metrics.MatchesCreated.Inc()
	}
	log.Info().
		Str("match_id", match.ID).
		Str("user_a", match.UserAID).
		Str("user_b", match.UserBID).
		Msg("Match created")

	for _, userID := range []string{match.UserAID, match.UserBID} {
		s.hub.SendToUser(userID, Envelope{
			Event: EventNewMatch,
			Data: MatchEventData{
				Match:          match,
				UserID:         match.OtherUser(userID),
				ConversationID: conv.ID,
			},
		})
		if !s.hub.IsOnline(userID) {
			s.notifier.Notify(ctx, userID, "It's a match!", "You have a new match")
		}
	}

	return &MatchResult{Match: match, ConversationID: conv.ID, IsNew: true}, nil
}

// ListMatches returns the user's active matches with their conversation
// ids, newest first.
func (s *MatchService) ListMatches(ctx context.Context, userID string, newOnly bool) ([]*MatchResult, error) {
	matches, err := s.matches.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]*MatchResult, 0, len(matches))
	for _, m := range matches {
		if newOnly && m.SeenBy(userID) {
			continue
		}
		conv, err := s.conversations.GetByMatchID(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &MatchResult{
			Match:          m,
			ConversationID: conv.ID,
			IsNew:          !m.SeenBy(userID),
		})
	}
	return out, nil
}

// MarkSeen records that the user has viewed the match.
func (s *MatchService) MarkSeen(ctx context.Context, matchID, userID string) error {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if !m.HasParticipant(userID) {
		return apperrors.ErrMatchNotFound
	}
	return s.matches.MarkSeen(ctx, matchID, userID)
}

// Unmatch deactivates a match and soft-deletes its conversation. Messages
// are retained but inaccessible to non-participants. Both directions of
// swipes are cleared so the pair can only re-match if both re-approve.
func (s *MatchService) Unmatch(ctx context.Context, matchID, requester string) error {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return err
	}
	if m.Status != models.MatchActive {
		return apperrors.ErrMatchNotFound
	}
	if !m.HasParticipant(requester) {
		return apperrors.Forbidden("not a participant of this match")
	}
	return s.deactivate(ctx, m)
}

// DeactivatePair unmatches the active match between two users, if any.
// Used by the block path, where no participant check is needed.
func (s *MatchService) DeactivatePair(ctx context.Context, userA, userB string) error {
	m, err := s.matches.GetActiveByPair(ctx, userA, userB)
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	return s.deactivate(ctx, m)
}

func (s *MatchService) deactivate(ctx context.Context, m *models.Match) error {
	if err := s.matches.SetStatus(ctx, m.ID, models.MatchUnmatched); err != nil {
		return err
	}

	conv, err := s.conversations.GetByMatchID(ctx, m.ID)
	if err != nil {
		return err
	}
	if err := s.conversations.SoftDelete(ctx, conv.ID, time.Now()); err != nil {
		return err
	}
	if err := s.swipes.DeletePair(ctx, m.UserAID, m.UserBID); err != nil {
		return err
	}

	log.Info().Str("match_id", m.ID).Msg("Match deactivated")

	data := UnmatchedEventData{MatchID: m.ID, ConversationID: conv.ID}
	s.hub.SendToUser(m.UserAID, Envelope{Event: EventUnmatched, Data: data})
	s.hub.SendToUser(m.UserBID, Envelope{Event: EventUnmatched, Data: data})
	return nil
}
