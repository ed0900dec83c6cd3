package services

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "matchchat-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBudgetConsume(t *testing.T) {
	b := NewMemoryBudget(3)
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		got, err := b.Consume(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := b.Consume(ctx, "alice")
	assert.ErrorIs(t, err, apperrors.ErrQuotaExhausted)

	// Other users have their own budget.
	got, err := b.Consume(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestMemoryBudgetRemaining(t *testing.T) {
	b := NewMemoryBudget(3)
	ctx := context.Background()

	got, err := b.Remaining(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = b.Consume(ctx, "alice")
	require.NoError(t, err)

	got, err = b.Remaining(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestMemoryBudgetConcurrentConsume(t *testing.T) {
	const allotment = 3
	b := NewMemoryBudget(allotment)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Consume(ctx, "alice"); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, allotment, granted, "only the allotment may be granted")
}

func TestNextMidnightUTC(t *testing.T) {
	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)
	next := nextMidnightUTC(now)
	assert.Equal(t, time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), next)

	// Local zones do not shift the boundary.
	est := time.FixedZone("EST", -5*3600)
	next = nextMidnightUTC(time.Date(2024, 6, 15, 10, 0, 0, 0, est))
	assert.Equal(t, time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC), next)
}
