package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInvalidTarget    Code = "INVALID_TARGET"
	CodeAlreadyMatched   Code = "ALREADY_MATCHED"
	CodeQuotaExhausted   Code = "QUOTA_EXHAUSTED"
	CodeNothingToUndo    Code = "NOTHING_TO_UNDO"
	CodeForbidden        Code = "FORBIDDEN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalidReference Code = "INVALID_REFERENCE"
	CodeExpired          Code = "EXPIRED"
	CodeUnsupported      Code = "UNSUPPORTED"
	CodeLimitExceeded    Code = "LIMIT_EXCEEDED"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeInternal         Code = "INTERNAL"
)
