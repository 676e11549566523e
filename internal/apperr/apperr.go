// Package apperr models the error kinds every component surfaces, so HTTP
// and CLI adapters can map failures to status codes and exit codes without
// string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error category.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindForbidden          Kind = "FORBIDDEN"
	KindConflict           Kind = "CONFLICT"
	KindValidationError    Kind = "VALIDATION_ERROR"
	KindQuotaExceeded      Kind = "QUOTA_EXCEEDED"
	KindStorageError       Kind = "STORAGE_ERROR"
	KindProcessingError    Kind = "PROCESSING_ERROR"
	KindUnsupportedFile    Kind = "UNSUPPORTED_FILE_TYPE"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindUnauthorized       Kind = "UNAUTHORIZED"
)

// Error is the concrete error type carrying a Kind, a human-readable
// message, the offending resource identifier (when applicable), a field map
// for validation failures, and the wrapped cause.
type Error struct {
	Kind     Kind
	Message  string
	Resource string
	Fields   map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Resource)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a Kind and resource identifier to an underlying error.
func Wrap(kind Kind, resource string, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Resource: resource, Cause: cause}
}

// WithFields attaches a validation field map and returns the receiver for chaining.
func (e *Error) WithFields(fields map[string]string) *Error {
	e.Fields = fields
	return e
}

// NotFound, Forbidden, Conflict, Validation, QuotaExceeded, Storage,
// Processing, UnsupportedFile, RateLimited, Unauthorized are constructors
// for the common case of a message plus a resource identifier.
func NotFound(resource, message string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Resource: resource}
}

func Forbidden(resource, message string) *Error {
	return &Error{Kind: KindForbidden, Message: message, Resource: resource}
}

func Conflict(resource, message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Resource: resource}
}

func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidationError, Message: message, Fields: fields}
}

func QuotaExceeded(resource, message string) *Error {
	return &Error{Kind: KindQuotaExceeded, Message: message, Resource: resource}
}

func Storage(resource string, cause error) *Error {
	return Wrap(KindStorageError, resource, cause)
}

func Processing(resource string, cause error) *Error {
	return Wrap(KindProcessingError, resource, cause)
}

func UnsupportedFile(resource, message string) *Error {
	return &Error{Kind: KindUnsupportedFile, Message: message, Resource: resource}
}

func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// As extracts the *Error from err, if any is present in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or "" if err does not wrap an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}
