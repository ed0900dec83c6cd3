package repository

import (
	"context"
	"fmt"
	"time"

	"matchchat-backend/internal/models"
	apperrors "matchchat-backend/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgConversations struct {
	db *pgxpool.Pool
}

const conversationColumns = `id, match_id, user_a_id, user_b_id, last_seq, pinned_message_ids,
	mute_a, mute_a_until, mute_b, mute_b_until, unread_a, unread_b,
	last_message_id, last_message_preview, last_message_sender_id, last_message_at,
	created_at, updated_at, deleted_at`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var (
		c                             models.Conversation
		lastID, lastPreview, lastFrom *string
	)
	err := row.Scan(
		&c.ID, &c.MatchID, &c.UserAID, &c.UserBID, &c.LastSeq, &c.PinnedMessageIDs,
		&c.MuteA.Muted, &c.MuteA.Until, &c.MuteB.Muted, &c.MuteB.Until, &c.UnreadA, &c.UnreadB,
		&lastID, &lastPreview, &lastFrom, &c.LastMessageAt,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastID != nil {
		c.LastMessageID = *lastID
	}
	if lastPreview != nil {
		c.LastMessagePreview = *lastPreview
	}
	if lastFrom != nil {
		c.LastMessageSenderID = *lastFrom
	}
	return &c, nil
}

func (r *pgConversations) Create(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, match_id, user_a_id, user_b_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, conv.ID, conv.MatchID, conv.UserAID, conv.UserBID, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *pgConversations) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	c, err := scanConversation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

func (r *pgConversations) GetByMatchID(ctx context.Context, matchID string) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE match_id = $1`
	c, err := scanConversation(r.db.QueryRow(ctx, query, matchID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation by match: %w", err)
	}
	return c, nil
}

func (r *pgConversations) ListByUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE (user_a_id = $1 OR user_b_id = $1) AND deleted_at IS NULL
		ORDER BY updated_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddPin appends in a single guarded UPDATE so two concurrent pins cannot
// overwrite each other and the cap cannot be exceeded.
func (r *pgConversations) AddPin(ctx context.Context, convID, msgID string, limit int) (bool, error) {
	query := `
		UPDATE conversations
		SET pinned_message_ids = array_append(pinned_message_ids, $2)
		WHERE id = $1
		  AND NOT ($2 = ANY(pinned_message_ids))
		  AND coalesce(array_length(pinned_message_ids, 1), 0) < $3
	`
	tag, err := r.db.Exec(ctx, query, convID, msgID, limit)
	if err != nil {
		return false, fmt.Errorf("failed to pin message: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	// No row matched: either already pinned, the set is full, or the
	// conversation is gone. Read back to tell them apart.
	conv, err := r.GetByID(ctx, convID)
	if err != nil {
		return false, err
	}
	for _, id := range conv.PinnedMessageIDs {
		if id == msgID {
			return false, nil
		}
	}
	return false, apperrors.ErrPinLimit
}

func (r *pgConversations) RemovePin(ctx context.Context, convID, msgID string) (bool, error) {
	query := `
		UPDATE conversations
		SET pinned_message_ids = array_remove(pinned_message_ids, $2)
		WHERE id = $1 AND $2 = ANY(pinned_message_ids)
	`
	tag, err := r.db.Exec(ctx, query, convID, msgID)
	if err != nil {
		return false, fmt.Errorf("failed to unpin message: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgConversations) SetMute(ctx context.Context, convID, userID string, state models.MuteState) error {
	query := `
		UPDATE conversations
		SET mute_a = CASE WHEN user_a_id = $2 THEN $3 ELSE mute_a END,
		    mute_a_until = CASE WHEN user_a_id = $2 THEN $4 ELSE mute_a_until END,
		    mute_b = CASE WHEN user_b_id = $2 THEN $3 ELSE mute_b END,
		    mute_b_until = CASE WHEN user_b_id = $2 THEN $4 ELSE mute_b_until END
		WHERE id = $1 AND (user_a_id = $2 OR user_b_id = $2)
	`
	tag, err := r.db.Exec(ctx, query, convID, userID, state.Muted, state.Until)
	if err != nil {
		return fmt.Errorf("failed to set mute state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConversationNotFound
	}
	return nil
}

func (r *pgConversations) ResetUnread(ctx context.Context, convID, userID string) error {
	query := `
		UPDATE conversations
		SET unread_a = CASE WHEN user_a_id = $2 THEN 0 ELSE unread_a END,
		    unread_b = CASE WHEN user_b_id = $2 THEN 0 ELSE unread_b END
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, convID, userID); err != nil {
		return fmt.Errorf("failed to reset unread count: %w", err)
	}
	return nil
}

func (r *pgConversations) SoftDelete(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE conversations SET deleted_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to soft delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConversationNotFound
	}
	return nil
}
