package repository

import (
	"context"
	"fmt"

	"matchchat-backend/internal/models"
	apperrors "matchchat-backend/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgBlocks struct {
	db *pgxpool.Pool
}

func (r *pgBlocks) Create(ctx context.Context, block *models.Block) error {
	query := `
		INSERT INTO blocks (blocker_id, blocked_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, block.BlockerID, block.BlockedID, block.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create block: %w", err)
	}
	return nil
}

func (r *pgBlocks) Delete(ctx context.Context, blockerID, blockedID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`, blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrBlockNotFound
	}
	return nil
}

func (r *pgBlocks) Blocked(ctx context.Context, a, b string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, a, b).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check block: %w", err)
	}
	return exists, nil
}

func (r *pgBlocks) Get(ctx context.Context, blockerID, blockedID string) (*models.Block, error) {
	query := `
		SELECT blocker_id, blocked_id, created_at
		FROM blocks
		WHERE blocker_id = $1 AND blocked_id = $2
	`
	var b models.Block
	err := r.db.QueryRow(ctx, query, blockerID, blockedID).Scan(&b.BlockerID, &b.BlockedID, &b.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	return &b, nil
}
