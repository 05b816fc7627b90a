/*
store.go - Persistence interfaces consumed by the withholding engine

The engine consumes two stores:

  CoefficientStore: read-only bracket/supplementary tables per tax-year.
  LedgerStore:      pay periods, per-user tax settings, and the
                    year-to-date ledger.

LEDGER CONCURRENCY:
  Two pay periods for the same (user, tax-year) may recalculate
  concurrently. The year-to-date read-modify-write must therefore run
  inside WithTx so updates serialize; stores that detect a conflict return
  ErrConcurrentModification and the engine retries.
*/
package tax

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COEFFICIENT STORE
// =============================================================================

// CoefficientStore supplies bracket coefficient tables. Implementations
// return ErrTableNotFound when no table exists for the key; the engine
// recovers via the built-in fallback tables.
type CoefficientStore interface {
	// Table returns the bracket table for (scale, taxYear).
	Table(ctx context.Context, scale Scale, taxYear string) ([]TaxCoefficient, error)

	// SupplementaryTable returns the supplementary rate ladder for taxYear.
	SupplementaryTable(ctx context.Context, taxYear string) ([]TaxCoefficient, error)
}

// =============================================================================
// LEDGER STORE
// =============================================================================

// LedgerStore persists pay periods, tax settings, and the year-to-date
// ledger.
type LedgerStore interface {
	// PayPeriod returns a period by id, or ErrPayPeriodNotFound.
	PayPeriod(ctx context.Context, id string) (PayPeriod, error)

	// TaxSettings returns a user's declared settings, or ErrUserNotFound.
	TaxSettings(ctx context.Context, userID string) (TaxSettings, error)

	// YearToDate returns the ledger row for (user, taxYear). A missing row
	// is not an error: a zero-valued row is returned, matching the
	// created-lazily-on-first-use contract.
	YearToDate(ctx context.Context, userID, taxYear string) (YearToDateTax, error)

	// SaveYearToDate upserts a ledger row.
	SaveYearToDate(ctx context.Context, ytd YearToDateTax) error

	// MarkPayPeriodTaxed records the contribution a period made to the
	// ledger, so a later recalculation can swap it out instead of
	// double-counting.
	MarkPayPeriodTaxed(ctx context.Context, id string, taxedGross, taxedAmount decimal.Decimal) error
}

// TxLedgerStore wraps LedgerStore with transaction support. The engine
// performs the step-8 read-modify-write inside WithTx.
type TxLedgerStore interface {
	LedgerStore

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back.
	WithTx(ctx context.Context, fn func(LedgerStore) error) error
}
