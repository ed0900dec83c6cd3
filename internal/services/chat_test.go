package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"matchchat-backend/internal/models"
	apperrors "matchchat-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageAssignsSequence(t *testing.T) {
	f := newFixture(t)
	m := f.match(t, "alice", "bob")

	first := f.send(t, m.ConversationID, "alice", "hey")
	second := f.send(t, m.ConversationID, "bob", "hi")

	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, int64(2), second.Sequence)
	assert.Equal(t, models.StatusSent, first.Status)

	// The recipient got the fan-out, the sender did not.
	require.Len(t, f.hub.eventsOfType("bob", EventNewMessage), 1)
	assert.Empty(t, f.hub.eventsOfType("alice", EventNewMessage))
}

func TestConcurrentSendsGaplessSequences(t *testing.T) {
	f := newFixture(t)
	m := f.match(t, "alice", "bob")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := "alice"
			if i%2 == 1 {
				sender = "bob"
			}
			_, err := f.chat.SendMessage(context.Background(), m.ConversationID, sender,
				models.MessageText, models.TextPayload{Content: fmt.Sprintf("msg %d", i)}, "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	msgs, err := f.chat.ListMessages(context.Background(), m.ConversationID, "alice", 100, "")
	require.NoError(t, err)
	require.Len(t, msgs, n)
	for i, msg := range msgs {
		assert.Equal(t, int64(i+1), msg.Sequence, "sequences must be gapless and ordered")
	}
}

func TestSendMessageToDeadConversation(t *testing.T) {
	f := newFixture(t)
	m := f.match(t, "alice", "bob")
	require.NoError(t, f.matches.Unmatch(context.Background(), m.Match.ID, "alice"))

	_, err := f.chat.SendMessage(context.Background(), m.ConversationID, "alice",
		models.MessageText, models.TextPayload{Content: "anyone?"}, "")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}

func TestSendMessageOutsider(t *testing.T) {
	f := newFixture(t)
	m := f.match(t, "alice", "bob")

	// A live conversation the user is not part of is forbidden, not hidden.
	_, err := f.chat.SendMessage(context.Background(), m.ConversationID, "mallory",
		models.MessageText, models.TextPayload{Content: "hi"}, "")
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}

func TestConversationAccessErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")

	_, err := f.chat.GetConversationForUser(ctx, m.ConversationID, "mallory")
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	_, err = f.chat.GetConversationForUser(ctx, "no-such-conversation", "alice")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)

	// Once unmatched the conversation is gone for everyone, participants
	// and outsiders alike.
	require.NoError(t, f.matches.Unmatch(ctx, m.Match.ID, "alice"))
	_, err = f.chat.GetConversationForUser(ctx, m.ConversationID, "alice")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
	_, err = f.chat.GetConversationForUser(ctx, m.ConversationID, "mallory")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}

func TestSendMessageEmptyText(t *testing.T) {
	f := newFixture(t)
	m := f.match(t, "alice", "bob")

	_, err := f.chat.SendMessage(context.Background(), m.ConversationID, "alice",
		models.MessageText, models.TextPayload{}, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
}

func TestReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")
	quoted := f.send(t, m.ConversationID, "alice", "original")

	reply, err := f.chat.SendMessage(ctx, m.ConversationID, "bob",
		models.MessageText, models.TextPayload{Content: "answer"}, quoted.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, quoted.ID, reply.ReplyTo.MessageID)
	assert.Equal(t, "original", reply.ReplyTo.Preview)
	assert.Equal(t, "alice", reply.ReplyTo.SenderID)
}

func TestReplyAcrossConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m1 := f.match(t, "alice", "bob")
	m2 := f.match(t, "alice", "carol")
	foreign := f.send(t, m2.ConversationID, "alice", "elsewhere")

	_, err := f.chat.SendMessage(ctx, m1.ConversationID, "alice",
		models.MessageText, models.TextPayload{Content: "ref"}, foreign.ID)
	assert.ErrorIs(t, err, apperrors.ErrBadReplyReference)

	// Nothing was stored.
	msgs, err := f.chat.ListMessages(ctx, m1.ConversationID, "alice", 0, "")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestEditMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")
	msg := f.send(t, m.ConversationID, "alice", "typo")

	edited, err := f.chat.EditMessage(ctx, m.ConversationID, msg.ID, "alice", "fixed")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.NotNil(t, edited.EditedAt)
	assert.Equal(t, models.TextPayload{Content: "fixed"}, edited.Payload)
	assert.Equal(t, msg.Sequence, edited.Sequence, "editing keeps the sequence slot")

	require.Len(t, f.hub.eventsOfType("bob", EventMessageEdited), 1)
}

func TestEditMessageNotSender(t *testing.T) {
	f := newFixture(t)
	m := f.match(t, "alice", "bob")
	msg := f.send(t, m.ConversationID, "alice", "mine")

	_, err := f.chat.EditMessage(context.Background(), m.ConversationID, msg.ID, "bob", "yours")
	assert.ErrorIs(t, err, apperrors.ErrNotSender)
}

func TestEditMessageNonText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")

	msg, err := f.chat.SendMessage(ctx, m.ConversationID, "alice",
		models.MessageGif, models.GifPayload{URL: "https://example.com/cat.gif"}, "")
	require.NoError(t, err)

	_, err = f.chat.EditMessage(ctx, m.ConversationID, msg.ID, "alice", "text")
	assert.ErrorIs(t, err, apperrors.ErrEditNonText)
}

func TestEditWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")
	msg := f.send(t, m.ConversationID, "alice", "v1")

	// Just inside the window.
	f.advanceClock(48*time.Hour - time.Minute)
	_, err := f.chat.EditMessage(ctx, m.ConversationID, msg.ID, "alice", "v2")
	require.NoError(t, err)

	// Just past it.
	f.advanceClock(48*time.Hour + time.Second)
	_, err = f.chat.EditMessage(ctx, m.ConversationID, msg.ID, "alice", "v3")
	assert.ErrorIs(t, err, apperrors.ErrEditWindowExpired)
}

func TestDeleteForSender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")
	msg := f.send(t, m.ConversationID, "alice", "oops")

	require.NoError(t, f.chat.DeleteMessage(ctx, m.ConversationID, msg.ID, "alice", models.DeleteForSender))

	mine, err := f.chat.ListMessages(ctx, m.ConversationID, "alice", 0, "")
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := f.chat.ListMessages(ctx, m.ConversationID, "bob", 0, "")
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.False(t, theirs[0].IsDeleted)
}

func TestDeleteForEveryone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")
	msg := f.send(t, m.ConversationID, "alice", "secret")
	f.send(t, m.ConversationID, "bob", "later")

	require.NoError(t, f.chat.DeleteMessage(ctx, m.ConversationID, msg.ID, "alice", models.DeleteForEveryone))

	msgs, err := f.chat.ListMessages(ctx, m.ConversationID, "bob", 0, "")
	require.NoError(t, err)
	require.Len(t, msgs, 2, "the tombstone keeps its sequence slot")
	assert.True(t, msgs[0].IsDeleted)
	assert.Equal(t, models.TombstonePayload{}, msgs[0].Payload)

	require.Len(t, f.hub.eventsOfType("bob", EventMessageDeleted), 1)
}

func TestDeleteForEveryoneNotSender(t *testing.T) {
	f := newFixture(t)
	m := f.match(t, "alice", "bob")
	msg := f.send(t, m.ConversationID, "alice", "hers")

	err := f.chat.DeleteMessage(context.Background(), m.ConversationID, msg.ID, "bob", models.DeleteForEveryone)
	assert.ErrorIs(t, err, apperrors.ErrNotSender)
}

func TestReactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")
	msg := f.send(t, m.ConversationID, "alice", "hello")

	got, err := f.chat.React(ctx, m.ConversationID, msg.ID, "bob", "❤️")
	require.NoError(t, err)
	assert.Equal(t, "❤️", got.Reactions["bob"])

	// A new emoji replaces the old one.
	got, err = f.chat.React(ctx, m.ConversationID, msg.ID, "bob", "😂")
	require.NoError(t, err)
	assert.Equal(t, "😂", got.Reactions["bob"])
	assert.Len(t, got.Reactions, 1)

	// Empty emoji removes.
	got, err = f.chat.React(ctx, m.ConversationID, msg.ID, "bob", "")
	require.NoError(t, err)
	assert.Empty(t, got.Reactions)

	events := f.hub.eventsFor("alice")
	var added, removed int
	for _, ev := range events {
		switch ev.Event {
		case EventReactionAdded:
			added++
		case EventReactionRemoved:
			removed++
		}
	}
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)
}

func TestConcurrentReactionsBothKept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")
	msg := f.send(t, m.ConversationID, "alice", "hello")

	// Each participant reacts at the same time. Neither write may erase
	// the other.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, r := range []struct{ user, emoji string }{
		{"alice", "👍"},
		{"bob", "❤️"},
	} {
		wg.Add(1)
		go func(i int, user, emoji string) {
			defer wg.Done()
			_, errs[i] = f.chat.React(ctx, m.ConversationID, msg.ID, user, emoji)
		}(i, r.user, r.emoji)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got, err := f.store.Messages().GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "👍", got.Reactions["alice"])
	assert.Equal(t, "❤️", got.Reactions["bob"])
}

func TestConcurrentPinsBothKept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")
	first := f.send(t, m.ConversationID, "alice", "one")
	second := f.send(t, m.ConversationID, "bob", "two")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, p := range []struct{ user, msgID string }{
		{"alice", first.ID},
		{"bob", second.ID},
	} {
		wg.Add(1)
		go func(i int, user, msgID string) {
			defer wg.Done()
			errs[i] = f.chat.Pin(ctx, m.ConversationID, msgID, user)
		}(i, p.user, p.msgID)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	conv, err := f.chat.GetConversationForUser(ctx, m.ConversationID, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, conv.PinnedMessageIDs)
}

func TestPinCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")

	var ids []string
	for i := 0; i < 6; i++ {
		msg := f.send(t, m.ConversationID, "alice", fmt.Sprintf("m%d", i))
		ids = append(ids, msg.ID)
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, f.chat.Pin(ctx, m.ConversationID, ids[i], "alice"))
	}

	// Re-pinning is a no-op, not a second slot.
	require.NoError(t, f.chat.Pin(ctx, m.ConversationID, ids[0], "alice"))

	err := f.chat.Pin(ctx, m.ConversationID, ids[5], "bob")
	assert.ErrorIs(t, err, apperrors.ErrPinLimit)

	conv, err := f.chat.GetConversationForUser(ctx, m.ConversationID, "alice")
	require.NoError(t, err)
	assert.Len(t, conv.PinnedMessageIDs, 5, "failed pin must not change state")

	// Unpin frees a slot.
	require.NoError(t, f.chat.Unpin(ctx, m.ConversationID, ids[0], "alice"))
	require.NoError(t, f.chat.Pin(ctx, m.ConversationID, ids[5], "bob"))
}

func TestMute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")

	// Indefinite.
	conv, err := f.chat.Mute(ctx, m.ConversationID, "alice", nil)
	require.NoError(t, err)
	assert.True(t, conv.MuteFor("alice").Active(time.Now()))
	assert.False(t, conv.MuteFor("bob").Active(time.Now()))

	// Timed.
	d := time.Hour
	conv, err = f.chat.Mute(ctx, m.ConversationID, "alice", &d)
	require.NoError(t, err)
	state := conv.MuteFor("alice")
	assert.True(t, state.Active(time.Now()))
	assert.False(t, state.Active(time.Now().Add(2*time.Hour)), "timed mute expires on its own")

	// Unmute.
	zero := time.Duration(0)
	conv, err = f.chat.Mute(ctx, m.ConversationID, "alice", &zero)
	require.NoError(t, err)
	assert.False(t, conv.MuteFor("alice").Active(time.Now()))
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")
	m1 := f.send(t, m.ConversationID, "alice", "one")
	m2 := f.send(t, m.ConversationID, "alice", "two")

	conv, err := f.chat.GetConversationForUser(ctx, m.ConversationID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, conv.UnreadFor("bob"))

	require.NoError(t, f.chat.MarkRead(ctx, m.ConversationID, "bob", []string{m1.ID, m2.ID}))

	conv, err = f.chat.GetConversationForUser(ctx, m.ConversationID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, conv.UnreadFor("bob"))

	events := f.hub.eventsOfType("alice", EventMessageStatus)
	require.Len(t, events, 1)
	data := events[0].Data.(StatusEventData)
	assert.ElementsMatch(t, []string{m1.ID, m2.ID}, data.MessageIDs)
	assert.Equal(t, models.StatusRead, data.Status)

	// Idempotent: a second mark-read changes nothing and stays silent.
	require.NoError(t, f.chat.MarkRead(ctx, m.ConversationID, "bob", []string{m1.ID, m2.ID}))
	assert.Len(t, f.hub.eventsOfType("alice", EventMessageStatus), 1)
}

func TestMarkReadSkipsOwnMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")
	mine := f.send(t, m.ConversationID, "alice", "mine")

	require.NoError(t, f.chat.MarkRead(ctx, m.ConversationID, "alice", []string{mine.ID}))

	got, err := f.store.Messages().GetByID(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.Status, "reading your own message is meaningless")
}

func TestListMessagesPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.match(t, "alice", "bob")

	for i := 1; i <= 10; i++ {
		f.send(t, m.ConversationID, "alice", fmt.Sprintf("m%d", i))
	}

	page, err := f.chat.ListMessages(ctx, m.ConversationID, "bob", 4, "")
	require.NoError(t, err)
	require.Len(t, page, 4)
	assert.Equal(t, int64(7), page[0].Sequence)
	assert.Equal(t, int64(10), page[3].Sequence)

	older, err := f.chat.ListMessages(ctx, m.ConversationID, "bob", 4, page[0].ID)
	require.NoError(t, err)
	require.Len(t, older, 4)
	assert.Equal(t, int64(3), older[0].Sequence)
	assert.Equal(t, int64(6), older[3].Sequence)
}

func TestListConversationsOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m1 := f.match(t, "alice", "bob")
	m2 := f.match(t, "alice", "carol")

	f.send(t, m1.ConversationID, "alice", "first")
	time.Sleep(5 * time.Millisecond)
	f.send(t, m2.ConversationID, "alice", "second")

	convs, err := f.chat.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, m2.ConversationID, convs[0].ID, "most recently active first")
}
