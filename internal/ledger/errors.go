package ledger

import (
	"errors"
	"fmt"
)

// Kind categorizes escrow operation failures. Kinds are stable and
// enumerable: callers may switch on them, and no operation silently
// coerces one kind into another.
type Kind string

const (
	// Input validation failures at create/authorize time.
	KindInvalidAmount       Kind = "INVALID_AMOUNT"
	KindInvalidLockDuration Kind = "INVALID_LOCK_DURATION"
	KindInvalidFeedKey      Kind = "INVALID_FEED_KEY"
	KindSelfTransfer        Kind = "SELF_TRANSFER_NOT_ALLOWED"
	KindInvalidPrincipal    Kind = "INVALID_PRINCIPAL"

	// KindUnauthorized: caller lacks the required role (not the record's
	// sender/recipient, not an authorized reporter, not the owner).
	KindUnauthorized Kind = "UNAUTHORIZED"

	// Referenced entity absent.
	KindRecordNotFound Kind = "RECORD_NOT_FOUND"
	KindFeedNotFound   Kind = "FEED_NOT_FOUND"

	// Terminal-state violations.
	KindAlreadyFulfilled Kind = "ALREADY_FULFILLED"
	KindAlreadyCanceled  Kind = "ALREADY_CANCELED"

	// Claim conditions not yet satisfied.
	KindStillTimeLocked Kind = "STILL_TIME_LOCKED"
	KindThresholdNotMet Kind = "THRESHOLD_NOT_MET"

	// KindTransferFailed: the value-movement collaborator could not
	// complete. Core state is left unchanged.
	KindTransferFailed Kind = "TRANSFER_FAILED"
)

// Error is the typed failure returned by every escrow operation.
// Structured fields identify the entity involved for diagnostics.
type Error struct {
	Kind    Kind
	Message string

	Caller    Identity
	PaymentID *uint64
	FeedKey   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.PaymentID != nil:
		return fmt.Sprintf("%s: %s (payment=%d)", e.Kind, e.Message, *e.PaymentID)
	case e.FeedKey != "":
		return fmt.Sprintf("%s: %s (feed=%s)", e.Kind, e.Message, e.FeedKey)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// KindOf extracts the Kind from an error chain.
// Returns "" if the error is not a ledger Error.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// IsKind reports whether the error chain contains a ledger Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// NewError creates an Error with no entity context.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// PaymentError creates an Error tied to a payment id.
func PaymentError(kind Kind, id uint64, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), PaymentID: &id}
}

// FeedError creates an Error tied to a feed key.
func FeedError(kind Kind, key string, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), FeedKey: key}
}
