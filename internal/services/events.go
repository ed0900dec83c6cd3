package services

import "matchchat-backend/internal/models"

// EventType names a wire event. The envelope is shared by both directions
// of the persistent connection.
type EventType string

// Client -> server events.
const (
	EventPing           EventType = "ping"
	EventTyping         EventType = "typing"
	EventStopTyping     EventType = "stop_typing"
	EventRecordingVoice EventType = "recording_voice"
	EventMessageRead    EventType = "message_read"
)

// Server -> client events.
const (
	EventPong               EventType = "pong"
	EventNewMessage         EventType = "new_message"
	EventMessageEdited      EventType = "message_edited"
	EventMessageDeleted     EventType = "message_deleted"
	EventReactionAdded      EventType = "reaction_added"
	EventReactionRemoved    EventType = "reaction_removed"
	EventMessagePinned      EventType = "message_pinned"
	EventMessageUnpinned    EventType = "message_unpinned"
	EventMessageStatus      EventType = "message_status"
	EventUserTyping         EventType = "user_typing"
	EventUserStopTyping     EventType = "user_stop_typing"
	EventUserRecordingVoice EventType = "user_recording_voice"
	EventNewMatch           EventType = "new_match"
	EventUnmatched          EventType = "unmatched"
	EventUserOnline         EventType = "user_online"
	EventUserOffline        EventType = "user_offline"
	EventError              EventType = "error"
)

// Envelope is the wire frame for the persistent connection.
type Envelope struct {
	Event EventType `json:"event"`
	Data  any       `json:"data,omitempty"`
}

// MessageEventData carries a full message.
type MessageEventData struct {
	ConversationID string          `json:"conversation_id"`
	Message        *models.Message `json:"message"`
}

// MessageRefEventData references a message without its body.
type MessageRefEventData struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// ReactionEventData describes a reaction change.
type ReactionEventData struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	UserID         string `json:"user_id"`
	Emoji          string `json:"emoji,omitempty"`
}

// PinEventData describes a pin change.
type PinEventData struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	PinnedBy       string `json:"pinned_by,omitempty"`
}

// StatusEventData carries a batched status advance.
type StatusEventData struct {
	ConversationID string               `json:"conversation_id"`
	MessageIDs     []string             `json:"message_ids"`
	Status         models.MessageStatus `json:"status"`
}

// TypingEventData carries an ephemeral typing/recording signal.
type TypingEventData struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// MatchEventData announces a new match to one of its participants.
type MatchEventData struct {
	Match          *models.Match `json:"match"`
	UserID         string        `json:"user_id"`
	ConversationID string        `json:"conversation_id"`
}

// UnmatchedEventData announces an unmatch.
type UnmatchedEventData struct {
	MatchID        string `json:"match_id"`
	ConversationID string `json:"conversation_id"`
}

// PresenceEventData announces a presence transition.
type PresenceEventData struct {
	UserID string `json:"user_id"`
}

// ErrorEventData reports a failed inbound event.
type ErrorEventData struct {
	Message string `json:"message"`
}
