package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure independently of the transport that reports it.
type ErrorKind string

const (
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindForbidden        ErrorKind = "forbidden"
	KindValidationFailed ErrorKind = "validation_failed"
	KindNotFound         ErrorKind = "not_found"
	KindConflict         ErrorKind = "conflict"
	KindRateLimited      ErrorKind = "rate_limited"
	KindInternal         ErrorKind = "internal_failure"
)

// Status returns the HTTP status hint associated with the kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified domain error carrying a caller-facing message.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

// NewError builds a classified error.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies cause under kind, keeping it reachable through errors.Unwrap.
func WrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// KindOf extracts the kind of a classified error and reports whether one was found.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) && de != nil {
		return de.Kind, true
	}
	return "", false
}

// ValidationError reports invalid input.
func ValidationError(format string, args ...any) *Error {
	return NewError(KindValidationFailed, format, args...)
}

// ConflictError reports a uniqueness or state conflict.
func ConflictError(format string, args ...any) *Error {
	return NewError(KindConflict, format, args...)
}

// NotFoundError reports a missing entity.
func NotFoundError(format string, args ...any) *Error {
	return NewError(KindNotFound, format, args...)
}
