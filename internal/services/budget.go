package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "matchchat-backend/pkg/errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateBudget tracks the per-user daily super-like quota. Decrements are
// atomic per user; the rollover to a fresh allotment happens at midnight
// UTC, not per request, so a call racing the boundary may still observe the
// pre-reset count.
type RateBudget interface {
	// Consume spends one super like and returns the remaining count, or
	// ErrQuotaExhausted when the budget is empty.
	Consume(ctx context.Context, userID string) (int, error)
	// Remaining returns the current count without consuming.
	Remaining(ctx context.Context, userID string) (int, error)
}

// nextMidnightUTC returns the upcoming daily reset boundary.
func nextMidnightUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// RedisBudget keeps counters in redis. Each user's key expires at the next
// midnight UTC, so the daily reset is the key rollover itself.
type RedisBudget struct {
	client    *redis.Client
	allotment int
}

// NewRedisBudget creates a redis-backed budget.
func NewRedisBudget(client *redis.Client, allotment int) *RedisBudget {
	return &RedisBudget{client: client, allotment: allotment}
}

func (b *RedisBudget) key(userID string) string {
	return "budget:super_likes:" + userID
}

func (b *RedisBudget) Consume(ctx context.Context, userID string) (int, error) {
	key := b.key(userID)

	// Seed the day's allotment if the key rolled over.
	ok, err := b.client.SetNX(ctx, key, b.allotment, 0).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to seed budget: %w", err)
	}
	if ok {
		if err := b.client.ExpireAt(ctx, key, nextMidnightUTC(time.Now())).Err(); err != nil {
			return 0, fmt.Errorf("failed to set budget expiry: %w", err)
		}
	}

	remaining, err := b.client.Decr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to consume budget: %w", err)
	}
	if remaining < 0 {
		// Went below zero: undo and report exhaustion.
		if err := b.client.Incr(ctx, key).Err(); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to restore budget counter")
		}
		return 0, apperrors.ErrQuotaExhausted
	}
	return int(remaining), nil
}

func (b *RedisBudget) Remaining(ctx context.Context, userID string) (int, error) {
	val, err := b.client.Get(ctx, b.key(userID)).Int()
	if err != nil {
		if err == redis.Nil {
			return b.allotment, nil
		}
		return 0, fmt.Errorf("failed to read budget: %w", err)
	}
	if val < 0 {
		return 0, nil
	}
	return val, nil
}

// MemoryBudget is the in-process budget used by tests and the memory
// driver. A sweep goroutine clears all counters at each midnight UTC.
type MemoryBudget struct {
	mu        sync.Mutex
	counts    map[string]int
	allotment int
}

// NewMemoryBudget creates an in-process budget.
func NewMemoryBudget(allotment int) *MemoryBudget {
	return &MemoryBudget{
		counts:    make(map[string]int),
		allotment: allotment,
	}
}

// StartSweep runs the daily reset until ctx is cancelled.
func (b *MemoryBudget) StartSweep(ctx context.Context) {
	go func() {
		for {
			next := nextMidnightUTC(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				b.reset()
			}
		}
	}()
}

func (b *MemoryBudget) reset() {
	b.mu.Lock()
	b.counts = make(map[string]int)
	b.mu.Unlock()
	log.Info().Msg("Super-like budget reset")
}

func (b *MemoryBudget) Consume(ctx context.Context, userID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining, ok := b.counts[userID]
	if !ok {
		remaining = b.allotment
	}
	if remaining == 0 {
		return 0, apperrors.ErrQuotaExhausted
	}
	remaining--
	b.counts[userID] = remaining
	return remaining, nil
}

func (b *MemoryBudget) Remaining(ctx context.Context, userID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining, ok := b.counts[userID]
	if !ok {
		remaining = b.allotment
	}
	return remaining, nil
}
