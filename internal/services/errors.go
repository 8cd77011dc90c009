package services

import (
	"errors"

	"github.com/attendance-hq/apiserver/internal/store"
)

// ErrorKind classifies failures for transport layers.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a use-case failure with a client-safe message. Err holds the
// underlying cause, if any, and is never shown to clients in production.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: store.ErrNotFound}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

var (
	ErrEmployeeIDRequired = BadRequest("employee ID required")
	ErrEmployeeNotFound   = NotFound("employee not found")
	ErrUserNotFound       = NotFound("user not found")
	ErrInvalidCredentials = Unauthorized("invalid credentials")

	ErrAlreadyCheckedIn  = Conflict("already checked in today")
	ErrNoCheckInToday    = Conflict("no check-in found for today")
	ErrAlreadyCheckedOut = Conflict("already checked out today")
)

// KindOf reports the kind of err. Store sentinels that escaped without a
// service-level translation are classified here.
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, store.ErrConflict):
		return KindConflict
	case errors.Is(err, store.ErrForeignKey):
		return KindBadRequest
	default:
		return KindInternal
	}
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	switch KindOf(err) {
	case KindNotFound:
		return "record not found"
	case KindConflict:
		return "duplicate entry, this record already exists"
	case KindBadRequest:
		return "invalid reference to a related record"
	default:
		return "internal server error"
	}
}
