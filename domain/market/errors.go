package market

import (
	"errors"
	"fmt"
)

// The error taxonomy is deliberately small. Every failure a transition can
// surface to a caller is one of these; anything else is a bug.

// ValidationError rejects malformed input before any state is touched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

func ErrValidationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AuthorizationError rejects a caller that is not the creator, owner or admin.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return "unauthorized: " + e.Reason }

func ErrUnauthorizedf(format string, args ...any) error {
	return &AuthorizationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string { return e.Kind + " not found: " + e.Key }

func ErrNotFound(kind, key string) error {
	return &NotFoundError{Kind: kind, Key: key}
}

// StateConflictError reports an operation that is illegal in the current
// state: duplicate order, auction already started, settle before end.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string { return "state conflict: " + e.Reason }

func ErrConflictf(format string, args ...any) error {
	return &StateConflictError{Reason: fmt.Sprintf(format, args...)}
}

// ArithmeticError is fatal for the whole transition. It signals
// misconfiguration (fee overflow/underflow) and is never clamped away.
type ArithmeticError struct {
	Op string
}

func (e *ArithmeticError) Error() string { return "arithmetic: " + e.Op }

func ErrArithmeticf(format string, args ...any) error {
	return &ArithmeticError{Op: fmt.Sprintf(format, args...)}
}

// CollaboratorError wraps a failure from an external service (NFT custody,
// royalty registry, bank). Lookup failures abort the transition; they are
// never treated as no-op success.
type CollaboratorError struct {
	Collab string
	Err    error
}

func (e *CollaboratorError) Error() string {
	return "collaborator " + e.Collab + ": " + e.Err.Error()
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func ErrCollaborator(collab string, err error) error {
	return &CollaboratorError{Collab: collab, Err: err}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsUnauthorized(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *StateConflictError
	return errors.As(err, &e)
}
