package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"matchchat-backend/internal/models"
	apperrors "matchchat-backend/pkg/errors"
)

// Memory is an in-process Store used by tests and the "memory" database
// driver. A single mutex guards all state, so the conditional match insert
// and sequence assignment are atomic by construction.
type Memory struct {
	mu sync.Mutex

	swipes        map[string]*models.Swipe        // actor|target -> swipe
	matches       map[string]*models.Match        // id -> match
	conversations map[string]*models.Conversation // id -> conversation
	messages      map[string]*models.Message      // id -> message
	blocks        map[string]*models.Block        // blocker|blocked -> block
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		swipes:        make(map[string]*models.Swipe),
		matches:       make(map[string]*models.Match),
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string]*models.Message),
		blocks:        make(map[string]*models.Block),
	}
}

func (m *Memory) Swipes() SwipeRepository               { return (*memorySwipes)(m) }
func (m *Memory) Matches() MatchRepository              { return (*memoryMatches)(m) }
func (m *Memory) Conversations() ConversationRepository { return (*memoryConversations)(m) }
func (m *Memory) Messages() MessageRepository           { return (*memoryMessages)(m) }
func (m *Memory) Blocks() BlockRepository               { return (*memoryBlocks)(m) }

func (m *Memory) Ping(ctx context.Context) error { return nil }
func (m *Memory) Close()                         {}

func pairID(a, b string) string { return a + "|" + b }

func cloneSwipe(s *models.Swipe) *models.Swipe {
	cp := *s
	return &cp
}

func cloneMatch(mt *models.Match) *models.Match {
	cp := *mt
	return &cp
}

func cloneConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.PinnedMessageIDs = append([]string(nil), c.PinnedMessageIDs...)
	if c.MuteA.Until != nil {
		t := *c.MuteA.Until
		cp.MuteA.Until = &t
	}
	if c.MuteB.Until != nil {
		t := *c.MuteB.Until
		cp.MuteB.Until = &t
	}
	if c.LastMessageAt != nil {
		t := *c.LastMessageAt
		cp.LastMessageAt = &t
	}
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		cp.DeletedAt = &t
	}
	return &cp
}

func cloneMessage(msg *models.Message) *models.Message {
	cp := *msg
	cp.Reactions = make(map[string]string, len(msg.Reactions))
	for k, v := range msg.Reactions {
		cp.Reactions[k] = v
	}
	cp.HiddenFor = append([]string(nil), msg.HiddenFor...)
	if msg.ReplyTo != nil {
		r := *msg.ReplyTo
		cp.ReplyTo = &r
	}
	if msg.EditedAt != nil {
		t := *msg.EditedAt
		cp.EditedAt = &t
	}
	return &cp
}

// --- swipes ---

type memorySwipes Memory

func (m *memorySwipes) Upsert(ctx context.Context, swipe *models.Swipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swipes[pairID(swipe.ActorID, swipe.TargetID)] = cloneSwipe(swipe)
	return nil
}

func (m *memorySwipes) Get(ctx context.Context, actorID, targetID string) (*models.Swipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.swipes[pairID(actorID, targetID)]
	if !ok {
		return nil, nil
	}
	return cloneSwipe(s), nil
}

func (m *memorySwipes) LatestByActor(ctx context.Context, actorID string) (*models.Swipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Swipe
	for _, s := range m.swipes {
		if s.ActorID != actorID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneSwipe(latest), nil
}

func (m *memorySwipes) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, s := range m.swipes {
		if s.ID == id {
			delete(m.swipes, key)
			return nil
		}
	}
	return nil
}

func (m *memorySwipes) DeletePair(ctx context.Context, userA, userB string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.swipes, pairID(userA, userB))
	delete(m.swipes, pairID(userB, userA))
	return nil
}

// --- matches ---

type memoryMatches Memory

func (m *memoryMatches) CreateIfAbsent(ctx context.Context, match *models.Match) (*models.Match, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, b := models.PairKey(match.UserAID, match.UserBID)
	for _, existing := range m.matches {
		if existing.UserAID == a && existing.UserBID == b && existing.Status == models.MatchActive {
			return cloneMatch(existing), false, nil
		}
	}
	cp := cloneMatch(match)
	cp.UserAID, cp.UserBID = a, b
	m.matches[cp.ID] = cp
	return cloneMatch(cp), true, nil
}

func (m *memoryMatches) GetByID(ctx context.Context, id string) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[id]
	if !ok {
		return nil, apperrors.ErrMatchNotFound
	}
	return cloneMatch(mt), nil
}

func (m *memoryMatches) GetActiveByPair(ctx context.Context, userA, userB string) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, b := models.PairKey(userA, userB)
	for _, mt := range m.matches {
		if mt.UserAID == a && mt.UserBID == b && mt.Status == models.MatchActive {
			return cloneMatch(mt), nil
		}
	}
	return nil, nil
}

func (m *memoryMatches) ListActiveByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Match
	for _, mt := range m.matches {
		if mt.Status == models.MatchActive && mt.HasParticipant(userID) {
			out = append(out, cloneMatch(mt))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchedAt.After(out[j].MatchedAt) })
	return out, nil
}

func (m *memoryMatches) SetStatus(ctx context.Context, id string, status models.MatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[id]
	if !ok {
		return apperrors.ErrMatchNotFound
	}
	mt.Status = status
	return nil
}

func (m *memoryMatches) MarkSeen(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.matches[id]
	if !ok {
		return apperrors.ErrMatchNotFound
	}
	if mt.UserAID == userID {
		mt.UserASeen = true
	} else if mt.UserBID == userID {
		mt.UserBSeen = true
	}
	return nil
}

// --- conversations ---

type memoryConversations Memory

func (m *memoryConversations) Create(ctx context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[conv.ID] = cloneConversation(conv)
	return nil
}

func (m *memoryConversations) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	return cloneConversation(c), nil
}

func (m *memoryConversations) GetByMatchID(ctx context.Context, matchID string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.conversations {
		if c.MatchID == matchID {
			return cloneConversation(c), nil
		}
	}
	return nil, apperrors.ErrConversationNotFound
}

func (m *memoryConversations) ListByUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Conversation
	for _, c := range m.conversations {
		if c.DeletedAt == nil && c.HasParticipant(userID) {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memoryConversations) AddPin(ctx context.Context, convID, msgID string, limit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[convID]
	if !ok {
		return false, apperrors.ErrConversationNotFound
	}
	for _, id := range c.PinnedMessageIDs {
		if id == msgID {
			return false, nil
		}
	}
	if len(c.PinnedMessageIDs) >= limit {
		return false, apperrors.ErrPinLimit
	}
	c.PinnedMessageIDs = append(c.PinnedMessageIDs, msgID)
	return true, nil
}

func (m *memoryConversations) RemovePin(ctx context.Context, convID, msgID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[convID]
	if !ok {
		return false, apperrors.ErrConversationNotFound
	}
	for i, id := range c.PinnedMessageIDs {
		if id == msgID {
			c.PinnedMessageIDs = append(c.PinnedMessageIDs[:i], c.PinnedMessageIDs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryConversations) SetMute(ctx context.Context, convID, userID string, state models.MuteState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[convID]
	if !ok {
		return apperrors.ErrConversationNotFound
	}
	switch userID {
	case c.UserAID:
		c.MuteA = state
	case c.UserBID:
		c.MuteB = state
	default:
		return apperrors.ErrConversationNotFound
	}
	return nil
}

func (m *memoryConversations) ResetUnread(ctx context.Context, convID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[convID]
	if !ok {
		return apperrors.ErrConversationNotFound
	}
	switch userID {
	case c.UserAID:
		c.UnreadA = 0
	case c.UserBID:
		c.UnreadB = 0
	}
	return nil
}

func (m *memoryConversations) SoftDelete(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[id]
	if !ok {
		return apperrors.ErrConversationNotFound
	}
	c.DeletedAt = &at
	return nil
}

// --- messages ---

type memoryMessages Memory

func (m *memoryMessages) Create(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[msg.ConversationID]
	if !ok {
		return apperrors.ErrConversationNotFound
	}

	conv.LastSeq++
	msg.Sequence = conv.LastSeq

	conv.LastMessageID = msg.ID
	conv.LastMessagePreview = msg.Payload.Preview()
	conv.LastMessageSenderID = msg.SenderID
	t := msg.CreatedAt
	conv.LastMessageAt = &t
	conv.UpdatedAt = msg.CreatedAt
	if conv.UserAID == msg.SenderID {
		conv.UnreadB++
	} else {
		conv.UnreadA++
	}

	m.messages[msg.ID] = cloneMessage(msg)
	return nil
}

func (m *memoryMessages) GetByID(ctx context.Context, id string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	return cloneMessage(msg), nil
}

func (m *memoryMessages) ListByConversation(ctx context.Context, convID string, limit int, beforeSeq int64) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.ConversationID != convID {
			continue
		}
		if beforeSeq > 0 && msg.Sequence >= beforeSeq {
			continue
		}
		out = append(out, cloneMessage(msg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// liveMessage finds a non-deleted message in convID. Callers hold the lock.
func (m *memoryMessages) liveMessage(convID, msgID string) (*models.Message, error) {
	msg, ok := m.messages[msgID]
	if !ok || msg.ConversationID != convID || msg.IsDeleted {
		return nil, apperrors.ErrMessageNotFound
	}
	return msg, nil
}

func (m *memoryMessages) SetText(ctx context.Context, convID, msgID string, content string, editedAt time.Time) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.liveMessage(convID, msgID)
	if err != nil {
		return nil, err
	}
	msg.Payload = models.TextPayload{Content: content}
	msg.IsEdited = true
	t := editedAt
	msg.EditedAt = &t
	return cloneMessage(msg), nil
}

func (m *memoryMessages) UpdateReaction(ctx context.Context, convID, msgID, userID, emoji string) (*models.Message, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, err := m.liveMessage(convID, msgID)
	if err != nil {
		return nil, false, err
	}
	if msg.Reactions == nil {
		msg.Reactions = map[string]string{}
	}
	current, had := msg.Reactions[userID]
	if emoji == "" {
		if !had {
			return cloneMessage(msg), false, nil
		}
		delete(msg.Reactions, userID)
		return cloneMessage(msg), true, nil
	}
	if had && current == emoji {
		return cloneMessage(msg), false, nil
	}
	msg.Reactions[userID] = emoji
	return cloneMessage(msg), true, nil
}

func (m *memoryMessages) HideFor(ctx context.Context, convID, msgID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[msgID]
	if !ok || msg.ConversationID != convID {
		return apperrors.ErrMessageNotFound
	}
	for _, id := range msg.HiddenFor {
		if id == userID {
			return nil
		}
	}
	msg.HiddenFor = append(msg.HiddenFor, userID)
	return nil
}

func (m *memoryMessages) MarkDeleted(ctx context.Context, convID, msgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[msgID]
	if !ok || msg.ConversationID != convID {
		return apperrors.ErrMessageNotFound
	}
	if msg.IsDeleted {
		return nil
	}
	msg.IsDeleted = true
	msg.DeletedScope = models.DeleteForEveryone
	msg.Payload = models.TombstonePayload{}
	msg.Reactions = map[string]string{}
	return nil
}

func (m *memoryMessages) AdvanceStatus(ctx context.Context, convID string, ids []string, reader string, status models.MessageStatus) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed []string
	for _, id := range ids {
		msg, ok := m.messages[id]
		if !ok || msg.ConversationID != convID || msg.SenderID == reader {
			continue
		}
		if models.StatusAdvances(msg.Status, status) {
			msg.Status = status
			changed = append(changed, id)
		}
	}
	return changed, nil
}

// --- blocks ---

type memoryBlocks Memory

func (m *memoryBlocks) Create(ctx context.Context, block *models.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *block
	m.blocks[pairID(block.BlockerID, block.BlockedID)] = &cp
	return nil
}

func (m *memoryBlocks) Delete(ctx context.Context, blockerID, blockedID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairID(blockerID, blockedID)
	if _, ok := m.blocks[key]; !ok {
		return apperrors.ErrBlockNotFound
	}
	delete(m.blocks, key)
	return nil
}

func (m *memoryBlocks) Blocked(ctx context.Context, a, b string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[pairID(a, b)]; ok {
		return true, nil
	}
	if _, ok := m.blocks[pairID(b, a)]; ok {
		return true, nil
	}
	return false, nil
}

func (m *memoryBlocks) Get(ctx context.Context, blockerID, blockedID string) (*models.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocks[pairID(blockerID, blockedID)]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}
