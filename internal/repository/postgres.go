package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the pgx-backed Store.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres creates a Store over an existing connection pool.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Swipes() SwipeRepository               { return &pgSwipes{db: p.db} }
func (p *Postgres) Matches() MatchRepository              { return &pgMatches{db: p.db} }
func (p *Postgres) Conversations() ConversationRepository { return &pgConversations{db: p.db} }
func (p *Postgres) Messages() MessageRepository           { return &pgMessages{db: p.db} }
func (p *Postgres) Blocks() BlockRepository               { return &pgBlocks{db: p.db} }

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.db.Close()
}
