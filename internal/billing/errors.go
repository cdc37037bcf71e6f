package billing

import (
	"errors"
	"fmt"
)

// Kind classifies business rejections raised by the ledger.
type Kind int

// Kind constants.
const (
	// KindUnknown is reported for errors that are not business rejections.
	KindUnknown Kind = iota
	// KindNotFound reports a missing company, plan or order.
	KindNotFound
	// KindForbidden reports a violated business rule.
	KindForbidden
	// KindConflict reports a duplicate idempotent activation.
	KindConflict
	// KindBadRequest reports a malformed or untrusted callback.
	KindBadRequest
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// Error is a typed business rejection.
type Error struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Is matches errors of the same kind so errors.Is(err, ErrConflict) works.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Message == "" && other.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrBadRequest = &Error{Kind: KindBadRequest}
)

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden builds a KindForbidden error.
func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a KindConflict error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// BadRequest builds a KindBadRequest error.
func BadRequest(format string, args ...any) error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the business kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target.Kind
	}
	return KindUnknown
}
