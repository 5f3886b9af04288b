package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrEmptyCanvas      = errors.New("the canvas is empty, add some notes or images first")
	ErrEmptyMessage     = errors.New("message has no text and no attachment")
	ErrUnsupportedMedia = errors.New("only images can be dropped on the canvas")
	ErrNoDocument       = errors.New("no resume has been generated yet")
)

// Failure classes of the hosted model service, carried in ServiceError.Err.
var (
	ErrRateLimit       = errors.New("rate limited")
	ErrAuthInvalid     = errors.New("invalid or missing API key")
	ErrContextOverflow = errors.New("request too large")
	ErrBlocked         = errors.New("response blocked")
	ErrUpstream        = errors.New("upstream failure")
	ErrCircuitOpen     = errors.New("service temporarily unavailable")
)

// ValidationError blocks a user action before any external call is made.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid wraps err as a ValidationError.
func Invalid(err error) error { return &ValidationError{Err: err} }

// ServiceError reports a failed call to the hosted model service. Message is
// safe to show to the user.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsService reports whether err is a ServiceError.
func IsService(err error) bool {
	var s *ServiceError
	return errors.As(err, &s)
}
