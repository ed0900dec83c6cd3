package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"matchchat-backend/internal/models"
	apperrors "matchchat-backend/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgMessages struct {
	db *pgxpool.Pool
}

const messageColumns = `id, conversation_id, sender_id, sequence, type, payload, status,
	reactions, reply_to, is_edited, edited_at, is_deleted, deleted_scope, hidden_for, created_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var (
		m          models.Message
		payloadRaw []byte
		replyRaw   []byte
	)
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &m.Sequence, &m.Type, &payloadRaw, &m.Status,
		&m.Reactions, &replyRaw, &m.IsEdited, &m.EditedAt, &m.IsDeleted, &m.DeletedScope,
		&m.HiddenFor, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if m.IsDeleted && m.DeletedScope == models.DeleteForEveryone {
		m.Payload = models.TombstonePayload{}
	} else {
		p, err := models.DecodePayload(m.Type, payloadRaw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode payload: %w", err)
		}
		m.Payload = p
	}
	if replyRaw != nil {
		var r models.ReplyInfo
		if err := json.Unmarshal(replyRaw, &r); err != nil {
			return nil, fmt.Errorf("failed to decode reply info: %w", err)
		}
		m.ReplyTo = &r
	}
	if m.Reactions == nil {
		m.Reactions = map[string]string{}
	}
	return &m, nil
}

// Create assigns the next sequence and inserts the message inside one
// transaction. The UPDATE ... RETURNING on the conversation row serializes
// concurrent senders, so sequence numbers are gapless and unique.
func (r *pgMessages) Create(ctx context.Context, msg *models.Message) error {
	payloadRaw, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	var replyRaw []byte
	if msg.ReplyTo != nil {
		replyRaw, err = json.Marshal(msg.ReplyTo)
		if err != nil {
			return fmt.Errorf("failed to encode reply info: %w", err)
		}
	}

	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		bump := `
			UPDATE conversations
			SET last_seq = last_seq + 1,
			    last_message_id = $2,
			    last_message_preview = $3,
			    last_message_sender_id = $4,
			    last_message_at = $5,
			    unread_a = unread_a + CASE WHEN user_a_id = $4 THEN 0 ELSE 1 END,
			    unread_b = unread_b + CASE WHEN user_b_id = $4 THEN 0 ELSE 1 END,
			    updated_at = $5
			WHERE id = $1
			RETURNING last_seq
		`
		err := tx.QueryRow(ctx, bump,
			msg.ConversationID, msg.ID, msg.Payload.Preview(), msg.SenderID, msg.CreatedAt,
		).Scan(&msg.Sequence)
		if err != nil {
			if err == pgx.ErrNoRows {
				return apperrors.ErrConversationNotFound
			}
			return fmt.Errorf("failed to assign sequence: %w", err)
		}

		insert := `
			INSERT INTO messages (id, conversation_id, sender_id, sequence, type, payload, status,
				reactions, reply_to, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, '{}', $8, $9)
		`
		_, err = tx.Exec(ctx, insert,
			msg.ID, msg.ConversationID, msg.SenderID, msg.Sequence, msg.Type, payloadRaw,
			msg.Status, replyRaw, msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		return nil
	})
}

func (r *pgMessages) GetByID(ctx context.Context, id string) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	m, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

func (r *pgMessages) ListByConversation(ctx context.Context, convID string, limit int, beforeSeq int64) ([]*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1 AND ($3 <= 0 OR sequence < $3)
		ORDER BY sequence DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, convID, limit, beforeSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Chronological order for callers.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *pgMessages) SetText(ctx context.Context, convID, msgID string, content string, editedAt time.Time) (*models.Message, error) {
	payloadRaw, err := json.Marshal(models.TextPayload{Content: content})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	query := `
		UPDATE messages
		SET payload = $3, is_edited = TRUE, edited_at = $4
		WHERE id = $2 AND conversation_id = $1 AND NOT is_deleted
		RETURNING ` + messageColumns
	m, err := scanMessage(r.db.QueryRow(ctx, query, convID, msgID, payloadRaw, editedAt))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}
	return m, nil
}

// UpdateReaction touches only the caller's key inside the reactions column,
// so a concurrent reaction from the other participant is never lost.
func (r *pgMessages) UpdateReaction(ctx context.Context, convID, msgID, userID, emoji string) (*models.Message, bool, error) {
	var query string
	args := []any{convID, msgID, userID}
	if emoji == "" {
		query = `
			UPDATE messages
			SET reactions = reactions - $3
			WHERE id = $2 AND conversation_id = $1 AND NOT is_deleted
			  AND reactions ->> $3 IS NOT NULL
			RETURNING ` + messageColumns
	} else {
		query = `
			UPDATE messages
			SET reactions = jsonb_set(reactions, ARRAY[$3], to_jsonb($4::text))
			WHERE id = $2 AND conversation_id = $1 AND NOT is_deleted
			  AND reactions ->> $3 IS DISTINCT FROM $4
			RETURNING ` + messageColumns
		args = append(args, emoji)
	}
	m, err := scanMessage(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return m, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, fmt.Errorf("failed to update reaction: %w", err)
	}
	// No row changed: the reaction already had this value, or the message is
	// gone or deleted. Read back to tell the no-op apart from not found.
	m, err = r.GetByID(ctx, msgID)
	if err != nil {
		return nil, false, err
	}
	if m.ConversationID != convID || m.IsDeleted {
		return nil, false, apperrors.ErrMessageNotFound
	}
	return m, false, nil
}

func (r *pgMessages) HideFor(ctx context.Context, convID, msgID, userID string) error {
	query := `
		UPDATE messages
		SET hidden_for = array_append(hidden_for, $3)
		WHERE id = $2 AND conversation_id = $1 AND NOT ($3 = ANY(hidden_for))
	`
	if _, err := r.db.Exec(ctx, query, convID, msgID, userID); err != nil {
		return fmt.Errorf("failed to hide message: %w", err)
	}
	return nil
}

func (r *pgMessages) MarkDeleted(ctx context.Context, convID, msgID string) error {
	query := `
		UPDATE messages
		SET is_deleted = TRUE, deleted_scope = 'for_everyone', reactions = '{}'::jsonb
		WHERE id = $2 AND conversation_id = $1 AND NOT is_deleted
	`
	if _, err := r.db.Exec(ctx, query, convID, msgID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (r *pgMessages) AdvanceStatus(ctx context.Context, convID string, ids []string, reader string, status models.MessageStatus) ([]string, error) {
	// Rank comparison keeps the transition monotonic and idempotent.
	query := `
		UPDATE messages
		SET status = $4
		WHERE conversation_id = $1
		  AND id = ANY($2)
		  AND sender_id <> $3
		  AND CASE status
		        WHEN 'sending' THEN 0 WHEN 'sent' THEN 1
		        WHEN 'delivered' THEN 2 WHEN 'read' THEN 3 ELSE 99 END
		    < CASE $4::text
		        WHEN 'sending' THEN 0 WHEN 'sent' THEN 1
		        WHEN 'delivered' THEN 2 WHEN 'read' THEN 3 ELSE -1 END
		RETURNING id
	`
	rows, err := r.db.Query(ctx, query, convID, ids, reader, status)
	if err != nil {
		return nil, fmt.Errorf("failed to advance message status: %w", err)
	}
	defer rows.Close()

	var changed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		changed = append(changed, id)
	}
	return changed, rows.Err()
}
