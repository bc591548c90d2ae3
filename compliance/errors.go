/*
errors.go - Centralized error types for the compliance engine

ERROR CATEGORIES:
  1. Precondition errors - Generation inputs are missing
  2. Validation errors   - Malformed periods, statuses, payloads
  3. Store errors        - Missing records, ref conflicts

USAGE:
  if errors.Is(err, compliance.ErrPrecondition) {
      var pe *compliance.PreconditionError
      errors.As(err, &pe)
      // pe.Missing names the empty list
  }
*/
package compliance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPrecondition is returned when generation inputs are empty.
	ErrPrecondition = errors.New("generation precondition failed")

	ErrInvalidPeriod = errors.New("invalid period")
	ErrInvalidStatus = errors.New("invalid status")

	// ErrValidation wraps payload validation failures from the factory.
	ErrValidation = errors.New("validation failed")

	ErrCheckNotFound        = errors.New("check not found")
	ErrTemplateNotFound     = errors.New("template not found")
	ErrAssigneeNotFound     = errors.New("assignee not found")
	ErrBusinessAreaNotFound = errors.New("business area not found")

	// ErrDuplicateCheckRef is returned when an append would reuse a checkRef.
	ErrDuplicateCheckRef = errors.New("duplicate check ref")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// PreconditionError names the generation input that was empty.
type PreconditionError struct {
	Missing string // "templates", "assignees" or "business areas"
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot generate checks: no %s configured", e.Missing)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// RefConflictError reports the ref that already exists in the store.
type RefConflictError struct {
	CheckRef int
}

func (e *RefConflictError) Error() string {
	return fmt.Sprintf("check ref %d already exists", e.CheckRef)
}

func (e *RefConflictError) Unwrap() error { return ErrDuplicateCheckRef }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool {
	return errors.Is(err, ErrCheckNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrAssigneeNotFound) ||
		errors.Is(err, ErrBusinessAreaNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPrecondition) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrValidation)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateCheckRef)
}
