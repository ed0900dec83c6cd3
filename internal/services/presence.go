package services

import (
	"context"
	"sync"
	"time"

	"matchchat-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// PresenceTracker tracks how many live connections each user holds and
// announces online/offline transitions to everyone sharing an active match
// with them. A short grace delay absorbs rapid reconnects so brief network
// blips do not flap presence.
type PresenceTracker struct {
	mu      sync.Mutex
	counts  map[string]int
	pending map[string]*time.Timer

	matches repository.MatchRepository
	hub     Broadcaster
	grace   time.Duration
}

// NewPresenceTracker creates a presence tracker.
func NewPresenceTracker(matches repository.MatchRepository, hub Broadcaster, grace time.Duration) *PresenceTracker {
	return &PresenceTracker{
		counts:  make(map[string]int),
		pending: make(map[string]*time.Timer),
		matches: matches,
		hub:     hub,
		grace:   grace,
	}
}

// OnConnect records a new connection. The first connection of a user emits
// user_online, unless it lands inside the grace window of a disconnect, in
// which case both transitions are absorbed.
func (p *PresenceTracker) OnConnect(ctx context.Context, userID string) {
	p.mu.Lock()
	p.counts[userID]++
	first := p.counts[userID] == 1
	if timer, ok := p.pending[userID]; ok {
		timer.Stop()
		delete(p.pending, userID)
		// Reconnected inside the grace window: the user never went
		// offline from the audience's point of view.
		first = false
	}
	p.mu.Unlock()

	if first {
		p.announce(ctx, userID, EventUserOnline)
	}
}

// OnDisconnect records a closed connection. When the last connection goes,
// user_offline is emitted after the grace delay, provided the user has not
// reconnected in the meantime.
func (p *PresenceTracker) OnDisconnect(ctx context.Context, userID string) {
	p.mu.Lock()
	if p.counts[userID] > 0 {
		p.counts[userID]--
	}
	last := p.counts[userID] == 0
	if last {
		delete(p.counts, userID)
		if timer, ok := p.pending[userID]; ok {
			timer.Stop()
		}
		p.pending[userID] = time.AfterFunc(p.grace, func() {
			p.graceExpired(userID)
		})
	}
	p.mu.Unlock()
}

func (p *PresenceTracker) graceExpired(userID string) {
	p.mu.Lock()
	if _, ok := p.pending[userID]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pending, userID)
	stillOffline := p.counts[userID] == 0
	p.mu.Unlock()

	if stillOffline {
		p.announce(context.Background(), userID, EventUserOffline)
	}
}

// IsOnline reports whether the user currently holds a live connection.
func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID] > 0
}

// announce sends the presence event to all active-match partners.
func (p *PresenceTracker) announce(ctx context.Context, userID string, event EventType) {
	matches, err := p.matches.ListActiveByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list matches for presence")
		return
	}
	data := PresenceEventData{UserID: userID}
	for _, m := range matches {
		p.hub.SendToUser(m.OtherUser(userID), Envelope{Event: event, Data: data})
	}
}
