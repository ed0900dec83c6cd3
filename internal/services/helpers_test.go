package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"matchchat-backend/internal/config"
	"matchchat-backend/internal/models"
	"matchchat-backend/internal/push"
	"matchchat-backend/internal/repository"

	"github.com/stretchr/testify/require"
)

// stubHub records every event sent through it and lets tests flip a user's
// online state.
type stubHub struct {
	mu     sync.Mutex
	online map[string]bool
	events map[string][]Envelope
}

func newStubHub() *stubHub {
	return &stubHub{
		online: make(map[string]bool),
		events: make(map[string][]Envelope),
	}
}

func (h *stubHub) SendToUser(userID string, ev Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events[userID] = append(h.events[userID], ev)
}

func (h *stubHub) IsOnline(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.online[userID]
}

func (h *stubHub) setOnline(userID string, v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.online[userID] = v
}

func (h *stubHub) eventsFor(userID string) []Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Envelope, len(h.events[userID]))
	copy(out, h.events[userID])
	return out
}

func (h *stubHub) eventsOfType(userID string, t EventType) []Envelope {
	var out []Envelope
	for _, ev := range h.eventsFor(userID) {
		if ev.Event == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	store  *repository.Memory
	hub    *stubHub
	budget *MemoryBudget

	matches *MatchService
	swipes  *SwipeService
	chat    *ChatService
	blocks  *BlockService
}

func chatConfig() config.ChatConfig {
	return config.ChatConfig{
		EditWindowHours:   48,
		MaxPinnedMessages: 5,
	}
}

func newFixture(t *testing.T, undoUsers ...string) *fixture {
	t.Helper()

	store := repository.NewMemory()
	hub := newStubHub()
	budget := NewMemoryBudget(3)

	matches := NewMatchService(store.Matches(), store.Conversations(), store.Swipes(), hub, push.Noop{}, nil)
	swipes := NewSwipeService(
		store.Swipes(), store.Matches(), store.Blocks(),
		budget, matches, NewStaticEntitlements(undoUsers), nil,
	)
	chat := NewChatService(
		store.Conversations(), store.Messages(), store.Blocks(),
		hub, push.Noop{}, chatConfig(), nil,
	)
	blocks := NewBlockService(store.Blocks(), matches)

	return &fixture{
		store:   store,
		hub:     hub,
		budget:  budget,
		matches: matches,
		swipes:  swipes,
		chat:    chat,
		blocks:  blocks,
	}
}

// match records mutual likes and returns the created match result.
func (f *fixture) match(t *testing.T, userA, userB string) *MatchResult {
	t.Helper()
	ctx := context.Background()

	_, err := f.swipes.Record(ctx, userA, userB, models.ActionLike)
	require.NoError(t, err)

	result, err := f.swipes.Record(ctx, userB, userA, models.ActionLike)
	require.NoError(t, err)
	require.NotNil(t, result.Match)
	require.True(t, result.Match.IsNew)
	return result.Match
}

// send stores a text message from sender in the conversation.
func (f *fixture) send(t *testing.T, convID, sender, text string) *models.Message {
	t.Helper()
	msg, err := f.chat.SendMessage(context.Background(), convID, sender,
		models.MessageText, models.TextPayload{Content: text}, "")
	require.NoError(t, err)
	return msg
}

// advanceClock shifts the chat service's clock by d.
func (f *fixture) advanceClock(d time.Duration) {
	base := time.Now()
	f.chat.now = func() time.Time { return base.Add(d) }
}
