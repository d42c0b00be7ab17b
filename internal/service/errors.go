package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"procurement/internal/repository"
)

// ValidationError covers malformed or incomplete input: missing vendor/price on
// accept, missing justification on a threshold override, confirmation token
// mismatch. Never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// StateConflictError covers operations rejected by a document's current state:
// unlink on an issued order, delink of a sent quote, re-link of a linked line.
// The caller must refresh and retry with corrected intent.
type StateConflictError struct {
	Entity string
	Reason string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
}

// ReferentialIntegrityError covers references that no longer resolve at plan
// time (a quote, material, or vendor deleted concurrently). No automatic repair.
type ReferentialIntegrityError struct {
	Entity string
	Ref    string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Ref)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func stateConflictErr(entity, reason string) error {
	return &StateConflictError{Entity: entity, Reason: reason}
}

// refErr wraps a repository lookup failure, mapping gorm.ErrRecordNotFound to
// the engine's referential-integrity error and passing other failures through.
func refErr(entity, ref string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ReferentialIntegrityError{Entity: entity, Ref: ref}
	}
	return fmt.Errorf("failed to load %s %s: %w", entity, ref, err)
}

// IsTransient reports whether the error is the transaction layer giving up
// after bounded conflict retries; the caller may safely resubmit.
func IsTransient(err error) bool {
	return errors.Is(err, repository.ErrTxAborted)
}
