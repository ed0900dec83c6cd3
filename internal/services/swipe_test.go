package services

import (
	"context"
	"testing"

	"matchchat-backend/internal/models"
	apperrors "matchchat-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSwipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.swipes.Record(ctx, "alice", "bob", models.ActionLike)
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Swipe.ActorID)
	assert.Equal(t, "bob", result.Swipe.TargetID)
	assert.Nil(t, result.Match, "one-sided like must not match")
}

func TestRecordSwipeOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.swipes.Record(ctx, "alice", "bob", models.ActionPass)
	require.NoError(t, err)

	// Changing pass to like counts as approval.
	_, err = f.swipes.Record(ctx, "alice", "bob", models.ActionLike)
	require.NoError(t, err)

	result, err := f.swipes.Record(ctx, "bob", "alice", models.ActionLike)
	require.NoError(t, err)
	require.NotNil(t, result.Match)
}

func TestRecordSwipeSelf(t *testing.T) {
	f := newFixture(t)

	_, err := f.swipes.Record(context.Background(), "alice", "alice", models.ActionLike)
	assert.ErrorIs(t, err, apperrors.ErrSelfSwipe)
}

func TestRecordSwipeUnknownAction(t *testing.T) {
	f := newFixture(t)

	_, err := f.swipes.Record(context.Background(), "alice", "bob", "wink")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
}

func TestRecordSwipeBlockedPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.blocks.Block(ctx, "bob", "alice")
	require.NoError(t, err)

	// Either direction of a block stops both users.
	_, err = f.swipes.Record(ctx, "alice", "bob", models.ActionLike)
	assert.ErrorIs(t, err, apperrors.ErrBlockedPair)
	_, err = f.swipes.Record(ctx, "bob", "alice", models.ActionLike)
	assert.ErrorIs(t, err, apperrors.ErrBlockedPair)
}

func TestRecordSwipeAlreadyMatched(t *testing.T) {
	f := newFixture(t)
	f.match(t, "alice", "bob")

	_, err := f.swipes.Record(context.Background(), "alice", "bob", models.ActionLike)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyMatched)
}

func TestSuperLikeQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	targets := []string{"bob", "carol", "dave"}
	for i, target := range targets {
		result, err := f.swipes.Record(ctx, "alice", target, models.ActionSuperLike)
		require.NoError(t, err)
		assert.Equal(t, 2-i, result.SuperLikesRemaining)
	}

	_, err := f.swipes.Record(ctx, "alice", "erin", models.ActionSuperLike)
	assert.ErrorIs(t, err, apperrors.ErrQuotaExhausted)

	// Regular likes are not budgeted.
	_, err = f.swipes.Record(ctx, "alice", "erin", models.ActionLike)
	assert.NoError(t, err)
}

func TestSuperLikeExhaustionKeepsNoSwipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, target := range []string{"bob", "carol", "dave"} {
		_, err := f.swipes.Record(ctx, "alice", target, models.ActionSuperLike)
		require.NoError(t, err)
	}

	_, err := f.swipes.Record(ctx, "alice", "erin", models.ActionSuperLike)
	require.ErrorIs(t, err, apperrors.ErrQuotaExhausted)

	stored, err := f.store.Swipes().Get(ctx, "alice", "erin")
	require.NoError(t, err)
	assert.Nil(t, stored, "rejected swipe must not be recorded")
}

func TestUndo(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()

	_, err := f.swipes.Record(ctx, "alice", "bob", models.ActionLike)
	require.NoError(t, err)

	undone, err := f.swipes.Undo(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "bob", undone.TargetID)

	stored, err := f.store.Swipes().Get(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Nil(t, stored)

	// Nothing left to undo.
	_, err = f.swipes.Undo(ctx, "alice")
	assert.ErrorIs(t, err, apperrors.ErrNothingToUndo)
}

func TestUndoWithoutEntitlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.swipes.Record(ctx, "alice", "bob", models.ActionLike)
	require.NoError(t, err)

	_, err = f.swipes.Undo(ctx, "alice")
	assert.ErrorIs(t, err, apperrors.ErrUndoForbidden)
}

func TestUndoAfterMatchRefused(t *testing.T) {
	f := newFixture(t, "bob")
	f.match(t, "alice", "bob")

	_, err := f.swipes.Undo(context.Background(), "bob")
	assert.ErrorIs(t, err, apperrors.ErrNothingToUndo)
}
