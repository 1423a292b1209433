// Package apperr holds the error taxonomy shared by every loan-servicing operation.
// Each typed error matches one sentinel through errors.Is, so callers can branch on the
// kind while still reading the structured context (loan id, status, action).
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
)

// ValidationError reports malformed or missing caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Validation(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// TransitionError reports a state-machine precondition violation.
// Reason optionally narrows the cause (e.g. payment.ErrNotAwaitingVerification).
type TransitionError struct {
	Entity string
	ID     string
	From   string
	Action string
	Reason error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s %s %s in status %q", e.Action, e.Entity, e.ID, e.From)
	if e.Reason != nil {
		msg += ": " + e.Reason.Error()
	}
	return msg
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

func (e *TransitionError) Unwrap() error { return e.Reason }

// AuthorizationError reports that the actor's role or relationship does not allow the action.
type AuthorizationError struct {
	ActorID string
	Role    string
	Action  string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %s (%s) may not %s", e.ActorID, e.Role, e.Action)
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrForbidden }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Entity, e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(entity, id string) error { return &NotFoundError{Entity: entity, ID: id} }

// ConflictError reports a lock/version conflict or a guarded destructive operation.
// Lock conflicts are safe to retry.
type ConflictError struct {
	Entity  string
	ID      string
	Message string
	Err     error
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("conflict on %s %s", e.Entity, e.ID)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }
