package errors

var (
	// Swipes and matching
	ErrSelfSwipe      = New(CodeInvalidTarget, "cannot swipe on yourself")
	ErrBlockedPair    = New(CodeInvalidTarget, "action not allowed between these users")
	ErrAlreadyMatched = New(CodeAlreadyMatched, "users are already matched")
	ErrQuotaExhausted = New(CodeQuotaExhausted, "no super likes remaining today")
	ErrNothingToUndo  = New(CodeNothingToUndo, "no swipe to undo")
	ErrUndoForbidden  = New(CodeForbidden, "undo requires an entitlement")
	ErrMatchNotFound  = New(CodeNotFound, "match not found")

	// Conversations and messages
	ErrConversationNotFound = New(CodeNotFound, "conversation not found")
	ErrMessageNotFound      = New(CodeNotFound, "message not found")
	ErrNotParticipant       = New(CodeForbidden, "not a participant of this conversation")
	ErrNotSender            = New(CodeForbidden, "only the sender may do this")
	ErrBadReplyReference    = New(CodeInvalidReference, "reply_to message does not belong to this conversation")
	ErrEditWindowExpired    = New(CodeExpired, "edit window has expired")
	ErrEditNonText          = New(CodeUnsupported, "only text messages can be edited")
	ErrPinLimit             = New(CodeLimitExceeded, "pin limit reached")

	// Blocks
	ErrSelfBlock      = New(CodeInvalidArgument, "cannot block yourself")
	ErrAlreadyBlocked = New(CodeInvalidArgument, "user already blocked")
	ErrBlockNotFound  = New(CodeNotFound, "user not blocked")
)
