package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures across the lead pipeline.
type ErrorKind string

const (
	ErrInvalidRequest      ErrorKind = "invalid_request"
	ErrProviderUnavailable ErrorKind = "provider_unavailable"
	ErrParseFailure        ErrorKind = "parse_failure"
	ErrStoreConflict       ErrorKind = "store_conflict"
	ErrAllResultsExhausted ErrorKind = "all_results_exhausted"
)

// LeadError is an error tagged with an ErrorKind.
type LeadError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *LeadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *LeadError) Unwrap() error { return e.Err }

// NewError creates a LeadError of the given kind.
func NewError(kind ErrorKind, msg string) *LeadError {
	return &LeadError{Kind: kind, Message: msg}
}

// WrapError tags err with kind. It returns nil when err is nil.
func WrapError(kind ErrorKind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &LeadError{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the ErrorKind of the first LeadError in err's chain, or
// the empty kind when there is none.
func KindOf(err error) ErrorKind {
	var le *LeadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
