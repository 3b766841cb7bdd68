package service

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMalformedPayload means the request did not have the expected
// Data.Users[0].Documents[0] shape.
var ErrMalformedPayload = errors.New("malformed payload")

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a store failure during referral processing.
// Nothing from the failed transaction is kept.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "persistence: " + e.Op + ": " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }
