/*
year.go - Tax-year and scale resolution

The fiscal year starts July 1: an anchor date on or after July 1 belongs to
the year starting that July, anything earlier belongs to the prior fiscal
year. Tax-year strings use the "2024-25" form, which keys both coefficient
tables and year-to-date ledger rows.
*/
package tax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Fiscal year boundary.
const (
	fiscalYearStartMonth = time.July
	fiscalYearStartDay   = 1
)

// ResolveTaxYear maps an anchor date to its tax-year string, e.g. a period
// ending 2025-03-14 resolves to "2024-25".
func ResolveTaxYear(anchor time.Time) string {
	startYear := anchor.Year()
	boundary := time.Date(startYear, fiscalYearStartMonth, fiscalYearStartDay, 0, 0, 0, 0, anchor.Location())
	if anchor.Before(boundary) {
		startYear--
	}
	return FormatTaxYear(startYear)
}

// FormatTaxYear renders the tax-year string for the fiscal year beginning
// in startYear.
func FormatTaxYear(startYear int) string {
	return fmt.Sprintf("%d-%02d", startYear, (startYear+1)%100)
}

// ResolveScale maps declared circumstances to a coefficient scale. The
// combination is deterministic: a missing TFN dominates everything, then
// foreign residency, then the threshold claim.
func ResolveScale(settings TaxSettings) Scale {
	switch {
	case !settings.HasTaxFileNumber:
		return ScaleNoTFN
	case settings.ForeignResident:
		return ScaleForeignResident
	case settings.ClaimedTaxFreeThreshold:
		return ScaleThresholdClaimed
	default:
		return ScaleNoThreshold
	}
}

var (
	levyFull = decimal.RequireFromString("0.02")
	levyHalf = decimal.RequireFromString("0.01")
)

// MedicareLevyRate returns the levy fraction for an exemption status:
// 2% by default, 1% for half exemption, 0 for full.
func MedicareLevyRate(exemption MedicareExemption) decimal.Decimal {
	switch exemption {
	case MedicareExemptionFull:
		return decimal.Zero
	case MedicareExemptionHalf:
		return levyHalf
	default:
		return levyFull
	}
}
