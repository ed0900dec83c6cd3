package services

import (
	"context"
	"fmt"
	"time"

	"matchchat-backend/internal/config"
	"matchchat-backend/internal/metrics"
	"matchchat-backend/internal/models"
	"matchchat-backend/internal/push"
	"matchchat-backend/internal/repository"
	apperrors "matchchat-backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ChatService owns the message lifecycle inside a conversation.
type ChatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	blocks        repository.BlockRepository
	hub           Broadcaster
	notifier      push.Notifier
	cfg           config.ChatConfig
	metrics       *metrics.Metrics

	// Injectable clock for the edit window checks.
	now func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	blocks repository.BlockRepository,
	hub Broadcaster,
	notifier push.Notifier,
	cfg config.ChatConfig,
	m *metrics.Metrics,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		blocks:        blocks,
		hub:           hub,
		notifier:      notifier,
		cfg:           cfg,
		metrics:       m,
		now:           time.Now,
	}
}

// GetConversationForUser loads a conversation on behalf of userID. Missing
// and soft-deleted conversations surface as not found; a live conversation
// the user is not part of is forbidden.
func (s *ChatService) GetConversationForUser(ctx context.Context, convID, userID string) (*models.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, convID)
	if err != nil {
		return nil, err
	}
	if conv.DeletedAt != nil {
		return nil, apperrors.ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return conv, nil
}

// ListConversations returns the user's live conversations, most recently
// active first.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	return s.conversations.ListByUser(ctx, userID)
}

// ListMessages returns a page of messages in chronological order. beforeID
// is the history cursor: when set, only messages older than it are returned.
// Messages the user deleted for themselves are filtered out.
func (s *ChatService) ListMessages(ctx context.Context, convID, userID string, limit int, beforeID string) ([]*models.Message, error) {
	if _, err := s.GetConversationForUser(ctx, convID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var beforeSeq int64
	if beforeID != "" {
		cursor, err := s.messages.GetByID(ctx, beforeID)
		if err != nil || cursor.ConversationID != convID {
			return nil, apperrors.ErrMessageNotFound
		}
		beforeSeq = cursor.Sequence
	}

	msgs, err := s.messages.ListByConversation(ctx, convID, limit, beforeSeq)
	if err != nil {
		return nil, err
	}

	visible := make([]*models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.HiddenForUser(userID) {
			continue
		}
		visible = append(visible, m)
	}
	return visible, nil
}

// SendMessage stores a message and fans it out to the recipient. The
// sequence number is assigned atomically by the store.
func (s *ChatService) SendMessage(ctx context.Context, convID, sender string, msgType models.MessageType, payload models.Payload, replyToID string) (*models.Message, error) {
	conv, err := s.GetConversationForUser(ctx, convID, sender)
	if err != nil {
		return nil, err
	}

	recipient := conv.OtherUser(sender)
	blocked, err := s.blocks.Blocked(ctx, sender, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to check blocks: %w", err)
	}
	if blocked {
		return nil, apperrors.ErrBlockedPair
	}

	if err := models.ValidatePayload(msgType, payload); err != nil {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, err.Error())
	}

	var replyTo *models.ReplyInfo
	if replyToID != "" {
		quoted, err := s.messages.GetByID(ctx, replyToID)
		if err != nil || quoted.ConversationID != convID || quoted.IsDeleted {
			return nil, apperrors.ErrBadReplyReference
		}
		replyTo = &models.ReplyInfo{
			MessageID: quoted.ID,
			SenderID:  quoted.SenderID,
			Preview:   quoted.Payload.Preview(),
			Type:      quoted.Type,
		}
	}

	msg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: convID,
		SenderID:       sender,
		Type:           msgType,
		Payload:        payload,
		Status:         models.StatusSent,
		Reactions:      map[string]string{},
		ReplyTo:        replyTo,
		DeletedScope:   models.DeleteNone,
		CreatedAt:      s.now(),
	}
	if err := withStoreRetry(ctx, func() error { return s.messages.Create(ctx, msg) }); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	if s.metrics != nil {
		s.metrics.MessagesSent.WithLabelValues(string(msgType)).Inc()
	}
	log.Debug().
		Str("conversation_id", convID).
		Str("message_id", msg.ID).
		Int64("sequence", msg.Sequence).
		Msg("Message stored")

	s.hub.SendToUser(recipient, Envelope{
		Event: EventNewMessage,
		Data:  MessageEventData{ConversationID: convID, Message: msg},
	})
	if !s.hub.IsOnline(recipient) && !conv.MuteFor(recipient).Active(s.now()) {
		s.notifier.Notify(ctx, recipient, "New message", msg.Payload.Preview())
	}

	return msg, nil
}

// EditMessage replaces the text of a message. Only the sender may edit, only
// text messages, and only inside the edit window.
func (s *ChatService) EditMessage(ctx context.Context, convID, msgID, editor, text string) (*models.Message, error) {
	conv, err := s.GetConversationForUser(ctx, convID, editor)
	if err != nil {
		return nil, err
	}

	msg, err := s.getConversationMessage(ctx, convID, msgID)
	if err != nil {
		return nil, err
	}
	if msg.IsDeleted {
		return nil, apperrors.ErrMessageNotFound
	}
	if msg.SenderID != editor {
		return nil, apperrors.ErrNotSender
	}
	if msg.Type != models.MessageText {
		return nil, apperrors.ErrEditNonText
	}
	if s.windowExpired(msg) {
		return nil, apperrors.ErrEditWindowExpired
	}

	if err := models.ValidatePayload(models.MessageText, models.TextPayload{Content: text}); err != nil {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, err.Error())
	}

	updated, err := s.messages.SetText(ctx, convID, msgID, text, s.now())
	if err != nil {
		return nil, err
	}

	s.hub.SendToUser(conv.OtherUser(editor), Envelope{
		Event: EventMessageEdited,
		Data:  MessageEventData{ConversationID: convID, Message: updated},
	})
	return updated, nil
}

// DeleteMessage removes a message. for_sender hides it from the requester
// only; for_everyone replaces it with a tombstone for both participants and
// is restricted to the sender inside the edit window.
func (s *ChatService) DeleteMessage(ctx context.Context, convID, msgID, requester string, scope models.DeleteScope) error {
	conv, err := s.GetConversationForUser(ctx, convID, requester)
	if err != nil {
		return err
	}

	msg, err := s.getConversationMessage(ctx, convID, msgID)
	if err != nil {
		return err
	}

	switch scope {
	case models.DeleteForSender:
		return s.messages.HideFor(ctx, convID, msgID, requester)

	case models.DeleteForEveryone:
		if msg.IsDeleted {
			return nil
		}
		if msg.SenderID != requester {
			return apperrors.ErrNotSender
		}
		if s.windowExpired(msg) {
			return apperrors.ErrEditWindowExpired
		}

		if err := s.messages.MarkDeleted(ctx, convID, msgID); err != nil {
			return err
		}
		// A deleted message cannot stay pinned.
		if _, err := s.conversations.RemovePin(ctx, convID, msgID); err != nil {
			return err
		}

		s.hub.SendToUser(conv.OtherUser(requester), Envelope{
			Event: EventMessageDeleted,
			Data:  MessageRefEventData{ConversationID: convID, MessageID: msgID},
		})
		return nil

	default:
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("unknown delete scope %q", scope))
	}
}

// React sets the user's reaction on a message. A new emoji replaces the
// previous one; an empty emoji removes the reaction.
func (s *ChatService) React(ctx context.Context, convID, msgID, userID, emoji string) (*models.Message, error) {
	conv, err := s.GetConversationForUser(ctx, convID, userID)
	if err != nil {
		return nil, err
	}

	msg, changed, err := s.messages.UpdateReaction(ctx, convID, msgID, userID, emoji)
	if err != nil {
		return nil, err
	}
	if !changed {
		return msg, nil
	}

	event := EventReactionAdded
	if emoji == "" {
		event = EventReactionRemoved
	}
	data := ReactionEventData{
		ConversationID: convID,
		MessageID:      msgID,
		UserID:         userID,
		Emoji:          emoji,
	}
	s.hub.SendToUser(conv.OtherUser(userID), Envelope{Event: event, Data: data})
	return msg, nil
}

// Pin adds a message to the conversation's pinned set, capped in size.
// Pinning an already pinned message is a no-op.
func (s *ChatService) Pin(ctx context.Context, convID, msgID, userID string) error {
	conv, err := s.GetConversationForUser(ctx, convID, userID)
	if err != nil {
		return err
	}

	msg, err := s.getConversationMessage(ctx, convID, msgID)
	if err != nil {
		return err
	}
	if msg.IsDeleted {
		return apperrors.ErrMessageNotFound
	}

	added, err := s.conversations.AddPin(ctx, convID, msgID, s.cfg.MaxPinnedMessages)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	s.hub.SendToUser(conv.OtherUser(userID), Envelope{
		Event: EventMessagePinned,
		Data:  PinEventData{ConversationID: convID, MessageID: msgID, PinnedBy: userID},
	})
	return nil
}

// Unpin removes a message from the pinned set. Unpinning a message that is
// not pinned is a no-op.
func (s *ChatService) Unpin(ctx context.Context, convID, msgID, userID string) error {
	conv, err := s.GetConversationForUser(ctx, convID, userID)
	if err != nil {
		return err
	}

	removed, err := s.conversations.RemovePin(ctx, convID, msgID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	s.hub.SendToUser(conv.OtherUser(userID), Envelope{
		Event: EventMessageUnpinned,
		Data:  PinEventData{ConversationID: convID, MessageID: msgID},
	})
	return nil
}

// Mute sets the user's mute state for a conversation. A nil duration mutes
// indefinitely, zero unmutes, positive mutes until now+d. Muting only
// silences push notifications; stored messages and live events are
// unaffected.
func (s *ChatService) Mute(ctx context.Context, convID, userID string, duration *time.Duration) (*models.Conversation, error) {
	conv, err := s.GetConversationForUser(ctx, convID, userID)
	if err != nil {
		return nil, err
	}

	var state models.MuteState
	switch {
	case duration == nil:
		state = models.MuteState{Muted: true}
	case *duration <= 0:
		state = models.MuteState{}
	default:
		until := s.now().Add(*duration)
		state = models.MuteState{Muted: true, Until: &until}
	}

	if err := s.conversations.SetMute(ctx, convID, userID, state); err != nil {
		return nil, err
	}
	if conv.UserAID == userID {
		conv.MuteA = state
	} else {
		conv.MuteB = state
	}
	return conv, nil
}

// MarkRead advances the given messages to read for the reader and resets
// their unread counter. Already-read messages are skipped; the sender is
// notified only about messages whose status actually changed.
func (s *ChatService) MarkRead(ctx context.Context, convID, reader string, messageIDs []string) error {
	conv, err := s.GetConversationForUser(ctx, convID, reader)
	if err != nil {
		return err
	}

	changed, err := s.messages.AdvanceStatus(ctx, convID, messageIDs, reader, models.StatusRead)
	if err != nil {
		return err
	}

	if err := s.conversations.ResetUnread(ctx, convID, reader); err != nil {
		return err
	}

	if len(changed) > 0 {
		s.hub.SendToUser(conv.OtherUser(reader), Envelope{
			Event: EventMessageStatus,
			Data: StatusEventData{
				ConversationID: convID,
				MessageIDs:     changed,
				Status:         models.StatusRead,
			},
		})
	}
	return nil
}

// getConversationMessage loads a message and checks it belongs to convID.
func (s *ChatService) getConversationMessage(ctx context.Context, convID, msgID string) (*models.Message, error) {
	msg, err := s.messages.GetByID(ctx, msgID)
	if err != nil {
		return nil, err
	}
	if msg.ConversationID != convID {
		return nil, apperrors.ErrMessageNotFound
	}
	return msg, nil
}

func (s *ChatService) windowExpired(msg *models.Message) bool {
	window := time.Duration(s.cfg.EditWindowHours) * time.Hour
	return s.now().Sub(msg.CreatedAt) > window
}
