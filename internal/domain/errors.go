package domain

import (
	"errors"
	"fmt"
)

// Kind groups domain errors so transport layers can map them to responses
// without inspecting individual sentinels.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
)

// Error is a terminal, non-retryable domain error. All engine failures are
// caused by caller input or business-rule state, never by transient
// infrastructure, so nothing here is worth retrying.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrItemNotFound    = &Error{Kind: KindNotFound, Message: "item not found"}
	ErrUserNotFound    = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrBookingNotFound = &Error{Kind: KindNotFound, Message: "booking not found"}

	ErrInvalidTimeRange  = &Error{Kind: KindValidation, Message: "end must be after start"}
	ErrInvalidPagination = &Error{Kind: KindValidation, Message: "from must be zero or positive, size must be positive"}
	ErrUnknownState      = &Error{Kind: KindValidation, Message: "unknown state"}
	ErrEmptyComment      = &Error{Kind: KindValidation, Message: "comment text is required"}

	ErrOwnerBooking    = &Error{Kind: KindConflict, Message: "an owner cannot book their own item"}
	ErrItemUnavailable = &Error{Kind: KindConflict, Message: "item is not available"}
	ErrAlreadyDecided  = &Error{Kind: KindConflict, Message: "booking status already decided"}
	ErrCommentDenied   = &Error{Kind: KindConflict, Message: "user has no started approved booking for this item"}

	ErrNotAuthorized = &Error{Kind: KindUnauthorized, Message: "user is not related to this resource"}
)

// ErrorKind extracts the Kind from err, unwrapping as needed. Unknown errors
// report an empty Kind.
func ErrorKind(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// WithID wraps a sentinel with the offending identifier while keeping
// errors.Is matching intact.
func WithID(err error, id int64) error {
	return fmt.Errorf("%w: id %d", err, id)
}
