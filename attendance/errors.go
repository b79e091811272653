/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All engine error types in one place for consistency and
  discoverability. Callers branch with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Missing entities - unknown worker ids (never silently created)
  2. Invariant violations - impossible record transitions

USAGE:
  if errors.Is(err, attendance.ErrWorkerNotFound) {
      // surface a user-facing "unknown worker" message
  }
*/
package attendance

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrWorkerNotFound is returned when an attendance operation
	// references a worker id that does not exist. The engine never
	// fabricates a record for an unknown id.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrCheckOutBeforeCheckIn is returned when a check-out time
	// precedes the day's recorded check-in.
	ErrCheckOutBeforeCheckIn = errors.New("check-out before check-in")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Kind string // "worker", "equipment"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	if e.Kind == "worker" {
		return ErrWorkerNotFound
	}
	return nil
}

// InvalidCheckOutError reports a check-out that would precede check-in.
type InvalidCheckOutError struct {
	WorkerID string
	CheckIn  time.Time
	CheckOut time.Time
}

func (e *InvalidCheckOutError) Error() string {
	return fmt.Sprintf("check-out %s before check-in %s for worker %s",
		e.CheckOut.Format(time.RFC3339), e.CheckIn.Format(time.RFC3339), e.WorkerID)
}

func (e *InvalidCheckOutError) Unwrap() error { return ErrCheckOutBeforeCheckIn }

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkerNotFound)
}
