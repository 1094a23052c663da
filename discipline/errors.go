/*
errors.go - Centralized error types for the discipline engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is / errors.As and the helpers
  at the bottom of this file.

ERROR CATEGORIES:
  1. Validation errors - Rejected before any mutation is applied
  2. Not-found errors  - Unknown suspension/match/event ids, no retry
  3. Dependency errors - A collaborator (event timeline, card store)
     was unreachable or timed out

FAILURE POLICY:
  Eligibility decisions degrade to fail-closed on dependency errors:
  the member is reported not eligible rather than the error escaping
  the check-in flow silently. Mutations propagate dependency errors as
  retryable, since no safe default mutation exists.

SEE ALSO:
  - eligibility.go: Applies the fail-closed policy
  - ledger.go: Validation on suspension creation
*/
package discipline

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidEventCount is returned when creating a suspension with
	// fewer than one event to serve.
	ErrInvalidEventCount = errors.New("suspension event count must be at least 1")

	// ErrMissingMember is returned when an operation requires a member id.
	ErrMissingMember = errors.New("member id is required")

	// ErrInvalidCardType is returned for card types outside {yellow, red}.
	ErrInvalidCardType = errors.New("invalid card type")

	// ErrSuspensionNotFound is returned when a suspension id is unknown.
	ErrSuspensionNotFound = errors.New("suspension not found")

	// ErrMatchNotFound is returned when a match id cannot be resolved.
	ErrMatchNotFound = errors.New("match not found")

	// ErrEventNotFound is returned when an event id cannot be resolved.
	ErrEventNotFound = errors.New("event not found")

	// ErrCardNotFound is returned when a match card id is unknown.
	ErrCardNotFound = errors.New("match card not found")

	// ErrDependencyUnavailable is returned when the event timeline or a
	// ledger collaborator is unreachable or timed out.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes invalid input rejected before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// DependencyError wraps a collaborator failure with which dependency failed.
type DependencyError struct {
	Dependency string // "event_timeline", "card_source", "suspension_store"
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return ErrDependencyUnavailable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDependencyUnavailable)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidEventCount) ||
		errors.Is(err, ErrMissingMember) ||
		errors.Is(err, ErrInvalidCardType)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSuspensionNotFound) ||
		errors.Is(err, ErrMatchNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrCardNotFound)
}
