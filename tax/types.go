/*
Package tax implements the withholding engine.

PURPOSE:
  Turns a pay-period's gross pay into withheld amounts and net pay using
  year-anchored bracket coefficients, a flat medicare levy, an optional
  supplementary (study-loan style) withholding table, and a running
  per-(user, tax-year) year-to-date ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - TaxCoefficient: One bracket row (lower/upper bound + linear formula)
  - Scale: The coefficient table variant selected by declared circumstances
  - TaxSettings: A taxpayer's declarations (threshold, residency, TFN, ...)
  - YearToDateTax: Cumulative gross/withholding per user per tax-year
  - TaxBreakdown: The full withholding result for one pay period
  - PayPeriod: The persisted unit the stateful calculation operates on

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal end to end; no binary floating point ever
     touches the ledger, so period-by-period accumulation cannot drift.
  2. Pure core, stateful edge: bracket math is pure; only the year-to-date
     ledger update mutates state, and it does so inside a transaction.

SEE ALSO:
  - bracket.go: Bracket resolution and table validation
  - engine.go: The calculation state machine and ledger update
*/
package tax

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCALES - Coefficient table variants
// =============================================================================

// Scale identifies which coefficient table applies to a taxpayer. The
// mapping from declared circumstances to scale is deterministic; see
// ResolveScale.
type Scale string

const (
	// ScaleNoThreshold: resident, TFN provided, tax-free threshold not claimed.
	ScaleNoThreshold Scale = "scale-1"
	// ScaleThresholdClaimed: resident, TFN provided, threshold claimed.
	ScaleThresholdClaimed Scale = "scale-2"
	// ScaleForeignResident: foreign resident with a TFN.
	ScaleForeignResident Scale = "scale-3"
	// ScaleNoTFN: no tax file number provided; flat top-rate withholding.
	ScaleNoTFN Scale = "scale-4"
)

// =============================================================================
// COEFFICIENTS
// =============================================================================

// TaxCoefficient is one row of a bracket table: for weekly-equivalent
// income x in [LowerBound, UpperBound), withholding = max(0, A*x - B).
// A nil UpperBound marks the single unbounded final row.
//
// A table for a scale must partition [0, inf) with no gaps or overlaps;
// see ValidateTable.
type TaxCoefficient struct {
	Scale      Scale
	LowerBound decimal.Decimal
	UpperBound *decimal.Decimal
	A          decimal.Decimal // marginal rate
	B          decimal.Decimal // subtraction constant
}

// Contains reports whether income falls inside this row's bounds.
func (c TaxCoefficient) Contains(income decimal.Decimal) bool {
	if income.LessThan(c.LowerBound) {
		return false
	}
	return c.UpperBound == nil || income.LessThan(*c.UpperBound)
}

// WithholdingFor applies the linear formula, floored at zero.
func (c TaxCoefficient) WithholdingFor(income decimal.Decimal) decimal.Decimal {
	w := income.Mul(c.A).Sub(c.B)
	if w.IsNegative() {
		return decimal.Zero
	}
	return w
}

// =============================================================================
// TAXPAYER SETTINGS
// =============================================================================

// MedicareExemption is a taxpayer's medicare levy status.
type MedicareExemption string

const (
	MedicareExemptionNone MedicareExemption = "none" // full 2% levy
	MedicareExemptionHalf MedicareExemption = "half" // 1% levy
	MedicareExemptionFull MedicareExemption = "full" // no levy
)

// TaxSettings are a taxpayer's declared circumstances. They determine the
// scale, the levy rate, and whether supplementary withholding applies.
type TaxSettings struct {
	ClaimedTaxFreeThreshold bool
	ForeignResident         bool
	HasTaxFileNumber        bool
	MedicareExemption       MedicareExemption
	HasSupplementaryDebt    bool

	// ExtraWithholding is a fixed per-period amount the user asked to have
	// withheld on top of the computed components.
	ExtraWithholding decimal.Decimal
}

// =============================================================================
// PAY PERIODS
// =============================================================================

// PeriodType is the pay frequency of a period.
type PeriodType string

const (
	PeriodWeekly      PeriodType = "weekly"
	PeriodFortnightly PeriodType = "fortnightly"
	PeriodMonthly     PeriodType = "monthly"
)

var (
	weeksWeekly      = decimal.NewFromInt(1)
	weeksFortnightly = decimal.NewFromInt(2)
	// A month is 13/3 weeks under the standard withholding convention.
	weeksMonthly = decimal.NewFromInt(13).Div(decimal.NewFromInt(3))
)

// Weeks returns the period length in weeks, used to convert period gross to
// the weekly-equivalent income the coefficient tables are expressed in.
func (p PeriodType) Weeks() decimal.Decimal {
	switch p {
	case PeriodFortnightly:
		return weeksFortnightly
	case PeriodMonthly:
		return weeksMonthly
	default:
		return weeksWeekly
	}
}

// Valid reports whether p is a known period type.
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodFortnightly, PeriodMonthly:
		return true
	}
	return false
}

// PayPeriod is the persisted pay-period record the stateful calculation
// operates on. Gross is nil until the pay computation engine has priced the
// period's shifts; calculating tax before that is a precondition failure.
type PayPeriod struct {
	ID       string
	UserID   string
	Type     PeriodType
	EndDate  time.Time // anchor date for tax-year resolution
	Gross    *decimal.Decimal
	TimeZone string

	// Last recorded ledger contribution, used to make recalculation
	// idempotent: reprocessing a period swaps its contribution instead of
	// double-counting it.
	Taxed           bool
	LastTaxedGross  decimal.Decimal
	LastTaxedAmount decimal.Decimal
}

// =============================================================================
// YEAR-TO-DATE LEDGER ROW
// =============================================================================

// YearToDateTax is the running cumulative totals for one user in one
// tax-year. Created lazily with zero values on first use.
type YearToDateTax struct {
	UserID        string
	TaxYear       string
	GrossIncome   decimal.Decimal
	TotalWithheld decimal.Decimal
	LastUpdated   time.Time
}

// =============================================================================
// RESULT
// =============================================================================

// TaxBreakdown is the result of a withholding calculation for one period.
type TaxBreakdown struct {
	Gross            decimal.Decimal
	IncomeTax        decimal.Decimal
	MedicareLevy     decimal.Decimal
	Supplementary    decimal.Decimal
	ExtraWithholding decimal.Decimal
	TotalWithheld    decimal.Decimal
	Net              decimal.Decimal

	Scale   Scale
	TaxYear string

	// UsedFallback flags that the coefficient store was unavailable and the
	// built-in baseline table was used instead (recoverable degradation).
	UsedFallback bool

	// YearToDate snapshots the ledger row this calculation produced, when
	// the persisting variant was used. Nil for stateless calculations.
	YearToDate *YearToDateTax
}
