// Package apperrors defines the error taxonomy shared by repositories,
// services and the HTTP boundary.
package apperrors

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	ErrValidation        = errors.New("validation")         // 400
	ErrNotFound          = errors.New("not found")          // 404
	ErrInvalidTransition = errors.New("invalid transition") // 422
	ErrConflict          = errors.New("conflict")           // 409
	ErrUnauthorized      = errors.New("unauthorized")       // 401
	ErrForbidden         = errors.New("forbidden")          // 403
	// ErrConsistency marks stored data that breaks an invariant, such as a
	// negative line total. It is never retried.
	ErrConsistency = errors.New("consistency violation") // 409
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid returns a *ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the kind of record that could not be resolved, so
// callers can tell a missing order from a missing product.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound returns a *NotFoundError for resource.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// TransitionError is returned when an order status change is not allowed
// by the transition table.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Conflict wraps ErrConflict with a description of what raced.
func Conflict(format string, args ...any) error {
	return errors.Wrap(ErrConflict, fmt.Sprintf(format, args...))
}
