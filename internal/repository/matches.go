package repository

import (
	"context"
	"fmt"

	"matchchat-backend/internal/models"
	apperrors "matchchat-backend/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgMatches struct {
	db *pgxpool.Pool
}

const matchColumns = `id, user_a_id, user_b_id, matched_at, status, user_a_seen, user_b_seen`

func scanMatch(row pgx.Row) (*models.Match, error) {
	var m models.Match
	err := row.Scan(&m.ID, &m.UserAID, &m.UserBID, &m.MatchedAt, &m.Status, &m.UserASeen, &m.UserBSeen)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateIfAbsent relies on the partial unique index over active pairs: the
// insert either wins or affects zero rows, in which case the existing match
// is read back. No read-then-write window.
func (r *pgMatches) CreateIfAbsent(ctx context.Context, match *models.Match) (*models.Match, bool, error) {
	a, b := models.PairKey(match.UserAID, match.UserBID)
	query := `
		INSERT INTO matches (id, user_a_id, user_b_id, matched_at, status, user_a_seen, user_b_seen)
		VALUES ($1, $2, $3, $4, 'active', FALSE, FALSE)
		ON CONFLICT (user_a_id, user_b_id) WHERE status = 'active' DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, match.ID, a, b, match.MatchedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create match: %w", err)
	}
	if tag.RowsAffected() == 1 {
		created := *match
		created.UserAID, created.UserBID = a, b
		created.Status = models.MatchActive
		return &created, true, nil
	}

	existing, err := r.GetActiveByPair(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, apperrors.ErrMatchNotFound
	}
	return existing, false, nil
}

func (r *pgMatches) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m, err := scanMatch(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

func (r *pgMatches) GetActiveByPair(ctx context.Context, userA, userB string) (*models.Match, error) {
	a, b := models.PairKey(userA, userB)
	query := `SELECT ` + matchColumns + ` FROM matches WHERE user_a_id = $1 AND user_b_id = $2 AND status = 'active'`
	m, err := scanMatch(r.db.QueryRow(ctx, query, a, b))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get match by pair: %w", err)
	}
	return m, nil
}

func (r *pgMatches) ListActiveByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE (user_a_id = $1 OR user_b_id = $1) AND status = 'active'
		ORDER BY matched_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *pgMatches) SetStatus(ctx context.Context, id string, status models.MatchStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE matches SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update match status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMatchNotFound
	}
	return nil
}

func (r *pgMatches) MarkSeen(ctx context.Context, id, userID string) error {
	query := `
		UPDATE matches
		SET user_a_seen = user_a_seen OR (user_a_id = $2),
		    user_b_seen = user_b_seen OR (user_b_id = $2)
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark match seen: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrMatchNotFound
	}
	return nil
}
