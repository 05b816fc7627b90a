/*
errors.go - Error types for the withholding engine

ERROR CATEGORIES:
  1. Precondition errors - Missing gross pay, malformed bracket tables.
     Fatal, surfaced to the caller, never retried.
  2. Not-found errors - Unknown pay period or user. Fatal.
  3. Degradation - Coefficient table unavailable. Recovered via the
     built-in fallback table; the result carries a UsedFallback flag.
  4. Concurrency conflicts - Ledger write contention. Retried inside the
     engine's transaction boundary; surfaced once retries exhaust.
*/
package tax

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrGrossNotComputed is returned when tax is requested for a pay period
	// whose gross pay has not been computed yet.
	ErrGrossNotComputed = errors.New("pay period has no computed gross pay")

	// ErrMalformedTable is returned when a coefficient table does not
	// partition [0, inf): a gap, an overlap, or no unbounded final row.
	// This is a fatal configuration error, never a silent zero.
	ErrMalformedTable = errors.New("malformed coefficient table")

	// ErrPayPeriodNotFound is returned for an unknown pay period id.
	ErrPayPeriodNotFound = errors.New("pay period not found")

	// ErrUserNotFound is returned for an unknown user id.
	ErrUserNotFound = errors.New("user not found")

	// ErrTableNotFound is returned by coefficient stores when no table
	// exists for a (scale, tax-year). The engine recovers via fallback.
	ErrTableNotFound = errors.New("coefficient table not found")

	// ErrConcurrentModification is returned when a ledger write conflicts
	// with a concurrent recalculation of the same (user, tax-year).
	ErrConcurrentModification = errors.New("concurrent ledger modification")

	// ErrInvalidPeriodType is returned for an unknown pay frequency.
	ErrInvalidPeriodType = errors.New("invalid period type")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// CalculationError wraps a failure with the pay-period reference and the
// stage that failed, so callers can tell pay computation failures from tax
// computation failures.
type CalculationError struct {
	PayPeriodID string
	Stage       string // "tax-year", "coefficients", "bracket", "ledger"
	Err         error
}

func (e *CalculationError) Error() string {
	if e.PayPeriodID == "" {
		return fmt.Sprintf("tax calculation (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("tax calculation for pay period %s (%s): %v", e.PayPeriodID, e.Stage, e.Err)
}

func (e *CalculationError) Unwrap() error { return e.Err }

// TableError carries which table failed validation and why.
type TableError struct {
	Scale   Scale
	TaxYear string
	Reason  string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("coefficient table %s/%s: %s", e.Scale, e.TaxYear, e.Reason)
}

func (e *TableError) Unwrap() error { return ErrMalformedTable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable reports whether the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsPrecondition reports whether the error is a fatal input or
// configuration failure that must not be retried.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrGrossNotComputed) ||
		errors.Is(err, ErrMalformedTable) ||
		errors.Is(err, ErrInvalidPeriodType)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPayPeriodNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
