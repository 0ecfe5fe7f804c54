package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for HTTP translation
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindMissingTenant
	KindEmailDelivery
)

// Error is an application error carrying a classification and a
// client-safe message. It is translated to HTTP exactly once, at the
// response boundary; no other component writes a response directly.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the error kind to an HTTP status code
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindMissingTenant:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindEmailDelivery:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Validation builds a 400 validation error
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Unauthorized builds a 401 error
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// Forbidden builds a 403 error
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// NotFound builds a 404 error. Tenant-scope misses use this same
// constructor so cross-tenant probes are indistinguishable from absence.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// MissingTenant builds a 400 error for tenant-required routes with no
// resolvable tenant identifier
func MissingTenant() *Error {
	return &Error{Kind: KindMissingTenant, Message: "No tenant could be resolved for this request"}
}

// EmailDelivery builds a retryable 500 error wrapping a mail failure
func EmailDelivery(err error) *Error {
	return &Error{
		Kind:    KindEmailDelivery,
		Message: "There was an error sending the email. Try again later!",
		Err:     err,
	}
}

// Internal wraps an unexpected error; its detail is hidden from clients
// outside development mode
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Something went wrong", Err: err}
}

// ErrInvalidToken is the single error every token verification failure
// collapses to, so callers cannot distinguish which check failed.
var ErrInvalidToken = Unauthorized("invalid or expired session")

// From extracts an *Error from err, classifying unknown errors as internal
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
