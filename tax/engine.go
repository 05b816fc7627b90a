/*
engine.go - The withholding calculation state machine

CALCULATION STEPS (linear, no internal retries except the ledger write):
  1. Resolve the tax-year from the anchor date (fiscal year starts July 1).
  2. Resolve the scale from the taxpayer's settings.
  3. Load the coefficient table for (scale, tax-year); on store failure or
     missing table, fall back to the built-in baseline table and log a
     warning. Recoverable degradation, flagged in the result.
  4. Resolve the bracket on the weekly-equivalent income and compute the
     income-tax component.
  5. Medicare levy: flat 2% of gross, 1% for half exemption, 0 for full.
  6. Supplementary withholding from a second, independently loaded rate
     ladder; zero without a supplementary debt.
  7. Net = gross - income tax - levy - supplementary - extra withholding.
  8. (Persisting variant only) Atomically read-modify-write the
     year-to-date ledger row for (user, tax-year) inside the store's
     transaction; retry bounded times on conflict.

IDEMPOTENCY:
  Recalculating the same pay period replaces that period's previous ledger
  contribution instead of adding a second one, so cumulative totals grow by
  exactly one period's worth no matter how often a period is reprocessed.
*/
package tax

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// ledgerWriteAttempts bounds step-8 retries on ErrConcurrentModification.
const ledgerWriteAttempts = 3

// Engine orchestrates withholding calculations. The arithmetic is pure;
// the only shared mutable state is the year-to-date ledger behind the
// TxLedgerStore.
type Engine struct {
	coefficients CoefficientStore
	ledger       TxLedgerStore
	logger       *slog.Logger
	now          func() time.Time
}

// NewEngine creates a withholding engine. ledger may be nil for callers
// that only use the stateless Calculate. A nil logger uses slog's default.
func NewEngine(coefficients CoefficientStore, ledger TxLedgerStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		coefficients: coefficients,
		ledger:       ledger,
		logger:       logger,
		now:          time.Now,
	}
}

// Calculate runs the stateless calculation (steps 1-7) for one period's
// gross pay.
func (e *Engine) Calculate(ctx context.Context, gross decimal.Decimal, settings TaxSettings, periodType PeriodType, anchor time.Time) (TaxBreakdown, error) {
	if !periodType.Valid() {
		return TaxBreakdown{}, &CalculationError{Stage: "tax-year", Err: ErrInvalidPeriodType}
	}

	taxYear := ResolveTaxYear(anchor)
	scale := ResolveScale(settings)

	table, usedFallback, err := e.loadBracketTable(ctx, scale, taxYear)
	if err != nil {
		return TaxBreakdown{}, &CalculationError{Stage: "coefficients", Err: err}
	}

	weeks := periodType.Weeks()
	weekly := gross.Div(weeks)

	row, err := ResolveBracket(weekly, table)
	if err != nil {
		return TaxBreakdown{}, &CalculationError{Stage: "bracket", Err: err}
	}
	incomeTax := row.WithholdingFor(weekly).Mul(weeks)

	medicare := gross.Mul(MedicareLevyRate(settings.MedicareExemption))

	supplementary := decimal.Zero
	if settings.HasSupplementaryDebt {
		supplementary, err = e.supplementaryWithholding(ctx, gross, weekly, taxYear, &usedFallback)
		if err != nil {
			return TaxBreakdown{}, &CalculationError{Stage: "bracket", Err: err}
		}
	}

	total := incomeTax.Add(medicare).Add(supplementary).Add(settings.ExtraWithholding)

	return TaxBreakdown{
		Gross:            gross,
		IncomeTax:        incomeTax,
		MedicareLevy:     medicare,
		Supplementary:    supplementary,
		ExtraWithholding: settings.ExtraWithholding,
		TotalWithheld:    total,
		Net:              gross.Sub(total),
		Scale:            scale,
		TaxYear:          taxYear,
		UsedFallback:     usedFallback,
	}, nil
}

// CalculateAndPersist runs the full state machine for a stored pay period,
// including the atomic year-to-date ledger update. The period must already
// have a computed gross pay.
func (e *Engine) CalculateAndPersist(ctx context.Context, payPeriodID string) (TaxBreakdown, error) {
	period, err := e.ledger.PayPeriod(ctx, payPeriodID)
	if err != nil {
		return TaxBreakdown{}, &CalculationError{PayPeriodID: payPeriodID, Stage: "ledger", Err: err}
	}
	if period.Gross == nil {
		return TaxBreakdown{}, &CalculationError{PayPeriodID: payPeriodID, Stage: "ledger", Err: ErrGrossNotComputed}
	}

	settings, err := e.ledger.TaxSettings(ctx, period.UserID)
	if err != nil {
		return TaxBreakdown{}, &CalculationError{PayPeriodID: payPeriodID, Stage: "ledger", Err: err}
	}

	breakdown, err := e.Calculate(ctx, *period.Gross, settings, period.Type, period.EndDate)
	if err != nil {
		var calcErr *CalculationError
		if errors.As(err, &calcErr) {
			calcErr.PayPeriodID = payPeriodID
		}
		return TaxBreakdown{}, err
	}

	snapshot, err := e.applyToLedger(ctx, period, breakdown)
	if err != nil {
		return TaxBreakdown{}, &CalculationError{PayPeriodID: payPeriodID, Stage: "ledger", Err: err}
	}
	breakdown.YearToDate = &snapshot
	return breakdown, nil
}

// applyToLedger is step 8: a transactional read-modify-write of the
// (user, tax-year) row, retried on contention. A failed write after a
// successful calculation surfaces as an error - never a silent success.
func (e *Engine) applyToLedger(ctx context.Context, period PayPeriod, breakdown TaxBreakdown) (YearToDateTax, error) {
	var snapshot YearToDateTax
	var err error

	for attempt := 1; attempt <= ledgerWriteAttempts; attempt++ {
		err = e.ledger.WithTx(ctx, func(s LedgerStore) error {
			ytd, txErr := s.YearToDate(ctx, period.UserID, breakdown.TaxYear)
			if txErr != nil {
				return txErr
			}
			ytd.UserID = period.UserID
			ytd.TaxYear = breakdown.TaxYear

			// Reprocessing swaps the period's prior contribution out.
			current, txErr := s.PayPeriod(ctx, period.ID)
			if txErr != nil {
				return txErr
			}
			if current.Taxed {
				ytd.GrossIncome = ytd.GrossIncome.Sub(current.LastTaxedGross)
				ytd.TotalWithheld = ytd.TotalWithheld.Sub(current.LastTaxedAmount)
			}

			ytd.GrossIncome = ytd.GrossIncome.Add(breakdown.Gross)
			ytd.TotalWithheld = ytd.TotalWithheld.Add(breakdown.TotalWithheld)
			ytd.LastUpdated = e.now()

			if txErr = s.SaveYearToDate(ctx, ytd); txErr != nil {
				return txErr
			}
			if txErr = s.MarkPayPeriodTaxed(ctx, period.ID, breakdown.Gross, breakdown.TotalWithheld); txErr != nil {
				return txErr
			}
			snapshot = ytd
			return nil
		})
		if err == nil {
			return snapshot, nil
		}
		if !IsRetryable(err) {
			return YearToDateTax{}, err
		}
		e.logger.Warn("ledger write conflict, retrying",
			slog.String("payPeriod", period.ID),
			slog.Int("attempt", attempt))
	}
	return YearToDateTax{}, err
}

// loadBracketTable loads and validates the table for (scale, taxYear),
// falling back to the built-in baseline table when the store fails or has
// no table. A malformed stored table is fatal, not a fallback case: silent
// substitution would hide a configuration error.
func (e *Engine) loadBracketTable(ctx context.Context, scale Scale, taxYear string) ([]TaxCoefficient, bool, error) {
	table, err := e.coefficients.Table(ctx, scale, taxYear)
	if err != nil {
		e.logger.Warn("coefficient table unavailable, using fallback",
			slog.String("scale", string(scale)),
			slog.String("taxYear", taxYear),
			slog.String("error", err.Error()))
		return FallbackTable(scale), true, nil
	}
	if err := ValidateTable(table); err != nil {
		return nil, false, err
	}
	return table, false, nil
}

// supplementaryWithholding computes the study-loan style component: the
// ladder is keyed by weekly-equivalent income and its rate applies to the
// whole period gross.
func (e *Engine) supplementaryWithholding(ctx context.Context, gross, weekly decimal.Decimal, taxYear string, usedFallback *bool) (decimal.Decimal, error) {
	table, err := e.coefficients.SupplementaryTable(ctx, taxYear)
	if err != nil {
		e.logger.Warn("supplementary table unavailable, using fallback",
			slog.String("taxYear", taxYear),
			slog.String("error", err.Error()))
		table = FallbackSupplementaryTable()
		*usedFallback = true
	} else if err := ValidateTable(table); err != nil {
		return decimal.Zero, err
	}

	row, err := ResolveBracket(weekly, table)
	if err != nil {
		return decimal.Zero, err
	}
	return gross.Mul(row.A), nil
}
