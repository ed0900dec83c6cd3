package repository

import (
	"context"
	"fmt"

	"matchchat-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgSwipes struct {
	db *pgxpool.Pool
}

func (r *pgSwipes) Upsert(ctx context.Context, swipe *models.Swipe) error {
	query := `
		INSERT INTO swipes (id, actor_id, target_id, action, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (actor_id, target_id)
		DO UPDATE SET id = $1, action = $4, created_at = $5
	`
	_, err := r.db.Exec(ctx, query, swipe.ID, swipe.ActorID, swipe.TargetID, swipe.Action, swipe.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert swipe: %w", err)
	}
	return nil
}

func (r *pgSwipes) Get(ctx context.Context, actorID, targetID string) (*models.Swipe, error) {
	query := `
		SELECT id, actor_id, target_id, action, created_at
		FROM swipes
		WHERE actor_id = $1 AND target_id = $2
	`
	var s models.Swipe
	err := r.db.QueryRow(ctx, query, actorID, targetID).Scan(
		&s.ID, &s.ActorID, &s.TargetID, &s.Action, &s.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get swipe: %w", err)
	}
	return &s, nil
}

func (r *pgSwipes) LatestByActor(ctx context.Context, actorID string) (*models.Swipe, error) {
	query := `
		SELECT id, actor_id, target_id, action, created_at
		FROM swipes
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var s models.Swipe
	err := r.db.QueryRow(ctx, query, actorID).Scan(
		&s.ID, &s.ActorID, &s.TargetID, &s.Action, &s.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest swipe: %w", err)
	}
	return &s, nil
}

func (r *pgSwipes) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM swipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete swipe: %w", err)
	}
	return nil
}

func (r *pgSwipes) DeletePair(ctx context.Context, userA, userB string) error {
	query := `
		DELETE FROM swipes
		WHERE (actor_id = $1 AND target_id = $2) OR (actor_id = $2 AND target_id = $1)
	`
	_, err := r.db.Exec(ctx, query, userA, userB)
	if err != nil {
		return fmt.Errorf("failed to delete pair swipes: %w", err)
	}
	return nil
}
