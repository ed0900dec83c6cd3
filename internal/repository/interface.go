package repository

import (
	"context"
	"time"

	"matchchat-backend/internal/models"
)

// SwipeRepository persists directional approval actions.
type SwipeRepository interface {
	// Upsert writes the swipe, overwriting any earlier action for the same
	// (actor, target) pair.
	Upsert(ctx context.Context, swipe *models.Swipe) error
	// Get returns the swipe from actor to target, or nil when absent.
	Get(ctx context.Context, actorID, targetID string) (*models.Swipe, error)
	// LatestByActor returns the actor's most recent swipe, or nil.
	LatestByActor(ctx context.Context, actorID string) (*models.Swipe, error)
	Delete(ctx context.Context, id string) error
	// DeletePair removes both directions of swipes between two users.
	DeletePair(ctx context.Context, userA, userB string) error
}

// MatchRepository persists durable pairings.
type MatchRepository interface {
	// CreateIfAbsent inserts the match unless an active match already exists
	// for its canonical pair. It returns the winning row and whether this
	// call created it; the loser of a concurrent race reads back the
	// winner's match.
	CreateIfAbsent(ctx context.Context, match *models.Match) (*models.Match, bool, error)
	GetByID(ctx context.Context, id string) (*models.Match, error)
	// GetActiveByPair returns the active match for the unordered pair, or nil.
	GetActiveByPair(ctx context.Context, userA, userB string) (*models.Match, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*models.Match, error)
	SetStatus(ctx context.Context, id string, status models.MatchStatus) error
	MarkSeen(ctx context.Context, id, userID string) error
}

// ConversationRepository persists conversations.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	// GetByID returns the conversation including soft-deleted rows; callers
	// decide whether a deleted conversation is visible.
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	GetByMatchID(ctx context.Context, matchID string) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	// AddPin appends msgID to the pinned set unless it is already present,
	// enforcing the cap in the same operation. It reports whether the pin
	// was added; a full set yields ErrPinLimit.
	AddPin(ctx context.Context, convID, msgID string, limit int) (bool, error)
	// RemovePin drops msgID from the pinned set and reports whether it was
	// there.
	RemovePin(ctx context.Context, convID, msgID string) (bool, error)
	// SetMute replaces userID's mute state on the conversation.
	SetMute(ctx context.Context, convID, userID string, state models.MuteState) error
	// ResetUnread zeroes userID's unread counter.
	ResetUnread(ctx context.Context, convID, userID string) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// MessageRepository persists messages and owns sequence assignment.
type MessageRepository interface {
	// Create assigns the conversation's next sequence number and persists
	// the message as one atomic unit, bumping the conversation's preview
	// fields and the recipient's unread count. msg.Sequence is set on
	// return.
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	// ListByConversation returns up to limit messages ordered by sequence
	// ascending; beforeSeq > 0 restricts to older messages (history cursor).
	ListByConversation(ctx context.Context, convID string, limit int, beforeSeq int64) ([]*models.Message, error)
	// SetText replaces the text payload of a live message and marks it
	// edited, returning the updated row.
	SetText(ctx context.Context, convID, msgID string, content string, editedAt time.Time) (*models.Message, error)
	// UpdateReaction sets userID's reaction in one operation so concurrent
	// reactions from both participants are preserved. An empty emoji removes
	// the reaction. It returns the updated message and whether anything
	// changed; deleted messages surface as not found.
	UpdateReaction(ctx context.Context, convID, msgID, userID, emoji string) (*models.Message, bool, error)
	// HideFor adds userID to the message's hidden set. Hiding twice is a
	// no-op.
	HideFor(ctx context.Context, convID, msgID, userID string) error
	// MarkDeleted tombstones the message for both participants and clears
	// its reactions. Already-deleted messages are left untouched.
	MarkDeleted(ctx context.Context, convID, msgID string) error
	// AdvanceStatus moves the status of the given messages forward, never
	// backward, skipping messages sent by reader, and returns the ids that
	// actually changed. Applying it twice converges to the same state.
	AdvanceStatus(ctx context.Context, convID string, ids []string, reader string, status models.MessageStatus) ([]string, error)
}

// BlockRepository persists block relationships.
type BlockRepository interface {
	Create(ctx context.Context, block *models.Block) error
	Delete(ctx context.Context, blockerID, blockedID string) error
	// Blocked reports whether either user has blocked the other.
	Blocked(ctx context.Context, a, b string) (bool, error)
	// Get returns the block from blocker to blocked, or nil.
	Get(ctx context.Context, blockerID, blockedID string) (*models.Block, error)
}

// Store bundles the repositories behind one lifecycle.
type Store interface {
	Swipes() SwipeRepository
	Matches() MatchRepository
	Conversations() ConversationRepository
	Messages() MessageRepository
	Blocks() BlockRepository
	Ping(ctx context.Context) error
	Close()
}
