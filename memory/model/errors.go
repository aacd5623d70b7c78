package model

import "fmt"

// ErrorKind enumerates the engine's error taxonomy (spec §7).
type ErrorKind string

const (
	ErrValidationFailed    ErrorKind = "ValidationFailed"
	ErrNotFound            ErrorKind = "NotFound"
	ErrDuplicateRejected   ErrorKind = "DuplicateRejected"
	ErrEmbeddingUnavailable ErrorKind = "EmbeddingUnavailable"
	ErrEmbeddingInvalidInput ErrorKind = "EmbeddingInvalidInput"
	ErrStoreFailed         ErrorKind = "StoreFailed"
	ErrStateInconsistency  ErrorKind = "StateInconsistency"
	ErrCapacityExceeded    ErrorKind = "CapacityExceeded"
	ErrCancelled           ErrorKind = "Cancelled"
)

// Error is the engine-wide error envelope. Kind drives caller branching;
// Details carries structured context (e.g. which store failed, whether the
// error is retryable).
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether details.retryable is set true.
func (e *Error) Retryable() bool {
	if e == nil || e.Details == nil {
		return false
	}
	v, _ := e.Details["retryable"].(bool)
	return v
}

// NewError constructs an Error of the given kind. opts may set Details via
// WithDetail / WithRetryable / WithCause.
func NewError(kind ErrorKind, message string, opts ...func(*Error)) *Error {
	e := &Error{Kind: kind, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithDetail(key string, value any) func(*Error) {
	return func(e *Error) {
		if e.Details == nil {
			e.Details = map[string]any{}
		}
		e.Details[key] = value
	}
}

func WithRetryable(retryable bool) func(*Error) {
	return WithDetail("retryable", retryable)
}

func WithCause(cause error) func(*Error) {
	return func(e *Error) { e.cause = cause }
}

// KindOf extracts the ErrorKind from err if it is (or wraps) an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// As is a small local stand-in for errors.As: it follows single-error
// Unwrap links from err and stores the first *Error it meets in target.
// Errors that unwrap to several errors (Unwrap() []error) are not searched.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
