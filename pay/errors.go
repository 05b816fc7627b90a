/*
errors.go - Error types for the pay computation engine

ERROR CATEGORIES:
  1. Precondition errors - Invalid shift input, fatal, never retried
  2. Not-found errors - Unknown rate profile, fatal

All user-visible failures carry the shift reference and the stage that
failed so callers can report which calculation broke.
*/
package pay

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidShift is returned when a shift has zero or negative duration.
	ErrInvalidShift = errors.New("shift end must be after start")

	// ErrBreakExceedsShift is returned when the break consumes the whole shift.
	ErrBreakExceedsShift = errors.New("break exceeds shift duration")

	// ErrNegativeBreak is returned for a negative break length.
	ErrNegativeBreak = errors.New("break minutes must not be negative")

	// ErrRateProfileNotFound is returned when a referenced rate profile
	// doesn't exist in the rule store.
	ErrRateProfileNotFound = errors.New("rate profile not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ShiftError wraps a failure with the shift reference and calculation stage.
type ShiftError struct {
	ShiftRef string // caller-supplied identifier, may be empty for ad-hoc shifts
	Stage    string // "segmentation", "overtime", "compose"
	Err      error
}

func (e *ShiftError) Error() string {
	if e.ShiftRef == "" {
		return fmt.Sprintf("pay computation (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("pay computation for shift %s (%s): %v", e.ShiftRef, e.Stage, e.Err)
}

func (e *ShiftError) Unwrap() error { return e.Err }

// IsPrecondition reports whether err is a fatal input-validation failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrInvalidShift) ||
		errors.Is(err, ErrBreakExceedsShift) ||
		errors.Is(err, ErrNegativeBreak)
}

// IsNotFound reports whether err indicates a missing configuration record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRateProfileNotFound)
}
