package models

import "time"

// SwipeAction is the direction of an approval action.
type SwipeAction string

const (
	ActionLike      SwipeAction = "like"
	ActionPass      SwipeAction = "pass"
	ActionSuperLike SwipeAction = "super_like"
)

// Valid reports whether the action is one of the known kinds.
func (a SwipeAction) Valid() bool {
	switch a {
	case ActionLike, ActionPass, ActionSuperLike:
		return true
	}
	return false
}

// Approving reports whether the action counts toward a mutual match.
func (a SwipeAction) Approving() bool {
	return a == ActionLike || a == ActionSuperLike
}

// Swipe records a directional approval/rejection action.
// Unique per (actor, target); a later action overwrites the earlier one.
type Swipe struct {
	ID        string      `json:"id"`
	ActorID   string      `json:"actor_id"`
	TargetID  string      `json:"target_id"`
	Action    SwipeAction `json:"action"`
	CreatedAt time.Time   `json:"created_at"`
}

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchActive    MatchStatus = "active"
	MatchUnmatched MatchStatus = "unmatched"
)

// Match is a durable pairing created once both users approved each other.
// UserAID is always the lexicographically smaller id so the pair key is
// canonical.
type Match struct {
	ID        string      `json:"id"`
	UserAID   string      `json:"user_a_id"`
	UserBID   string      `json:"user_b_id"`
	MatchedAt time.Time   `json:"matched_at"`
	Status    MatchStatus `json:"status"`
	UserASeen bool        `json:"user_a_seen"`
	UserBSeen bool        `json:"user_b_seen"`
}

// PairKey canonicalizes an unordered user pair.
func PairKey(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// HasParticipant reports whether userID is part of the match.
func (m *Match) HasParticipant(userID string) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// OtherUser returns the partner's id.
func (m *Match) OtherUser(userID string) string {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// SeenBy reports whether the given participant has seen the match.
func (m *Match) SeenBy(userID string) bool {
	if m.UserAID == userID {
		return m.UserASeen
	}
	return m.UserBSeen
}

// MuteState is a participant's mute setting for a conversation.
// Muted with a nil Until means muted indefinitely.
type MuteState struct {
	Muted bool       `json:"muted"`
	Until *time.Time `json:"muted_until,omitempty"`
}

// Active reports whether the mute is in effect at the given time.
func (s MuteState) Active(now time.Time) bool {
	if !s.Muted {
		return false
	}
	if s.Until == nil {
		return true
	}
	return now.Before(*s.Until)
}

// Conversation is the message thread bound 1:1 to a match.
type Conversation struct {
	ID      string `json:"id"`
	MatchID string `json:"match_id"`
	UserAID string `json:"user_a_id"`
	UserBID string `json:"user_b_id"`

	// Last assigned message sequence number.
	LastSeq int64 `json:"last_seq"`

	PinnedMessageIDs []string `json:"pinned_message_ids"`

	MuteA MuteState `json:"mute_a"`
	MuteB MuteState `json:"mute_b"`

	UnreadA int `json:"unread_a"`
	UnreadB int `json:"unread_b"`

	LastMessageID       string     `json:"last_message_id,omitempty"`
	LastMessagePreview  string     `json:"last_message_preview,omitempty"`
	LastMessageSenderID string     `json:"last_message_sender_id,omitempty"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.UserAID == userID || c.UserBID == userID
}

// OtherUser returns the partner's id.
func (c *Conversation) OtherUser(userID string) string {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// MuteFor returns the mute state of the given participant.
func (c *Conversation) MuteFor(userID string) MuteState {
	if c.UserAID == userID {
		return c.MuteA
	}
	return c.MuteB
}

// UnreadFor returns the unread count of the given participant.
func (c *Conversation) UnreadFor(userID string) int {
	if c.UserAID == userID {
		return c.UnreadA
	}
	return c.UnreadB
}

// MessageType discriminates the message payload variant.
type MessageType string

const (
	MessageText    MessageType = "text"
	MessageImage   MessageType = "image"
	MessageVideo   MessageType = "video"
	MessageAudio   MessageType = "audio"
	MessageVoice   MessageType = "voice"
	MessageGif     MessageType = "gif"
	MessageSticker MessageType = "sticker"
	MessageFile    MessageType = "file"
)

// MessageStatus is the delivery lifecycle state of a message.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

var statusRank = map[MessageStatus]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// StatusAdvances reports whether moving from cur to next is a forward
// transition. Statuses never regress; read implies delivered.
func StatusAdvances(cur, next MessageStatus) bool {
	cr, ok := statusRank[cur]
	if !ok {
		return false
	}
	nr, ok := statusRank[next]
	if !ok {
		return false
	}
	return nr > cr
}

// DeleteScope describes how a message was deleted.
type DeleteScope string

const (
	DeleteNone        DeleteScope = "none"
	DeleteForSender   DeleteScope = "for_sender"
	DeleteForEveryone DeleteScope = "for_everyone"
)

// Message is a single chat message. Sequence is assigned at creation,
// strictly increasing per conversation, and never reused.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	Sequence       int64         `json:"sequence"`
	Type           MessageType   `json:"type"`
	Payload        Payload       `json:"payload"`
	Status         MessageStatus `json:"status"`

	// One reaction per user; a new reaction replaces the previous one.
	Reactions map[string]string `json:"reactions"`

	ReplyTo *ReplyInfo `json:"reply_to,omitempty"`

	IsEdited     bool        `json:"is_edited"`
	EditedAt     *time.Time  `json:"edited_at,omitempty"`
	IsDeleted    bool        `json:"is_deleted"`
	DeletedScope DeleteScope `json:"deleted_scope"`

	// User ids the message is hidden for (delete-for-sender).
	HiddenFor []string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// ReplyInfo is a denormalized preview of the quoted message.
type ReplyInfo struct {
	MessageID string      `json:"message_id"`
	SenderID  string      `json:"sender_id"`
	Preview   string      `json:"preview"`
	Type      MessageType `json:"type"`
}

// HiddenForUser reports whether the message is hidden for userID.
func (m *Message) HiddenForUser(userID string) bool {
	for _, id := range m.HiddenFor {
		if id == userID {
			return true
		}
	}
	return false
}

// Block records that blocker has blocked blocked.
type Block struct {
	BlockerID string    `json:"blocker_id"`
	BlockedID string    `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one live connection of a user. Ephemeral; a user may hold
// several at once.
type Session struct {
	UserID       string    `json:"user_id"`
	ConnectionID string    `json:"connection_id"`
	ConnectedAt  time.Time `json:"connected_at"`
}
