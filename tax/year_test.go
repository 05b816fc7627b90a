package tax_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/payroll-engine/tax"
)

func TestResolveTaxYear_FiscalBoundary(t *testing.T) {
	cases := []struct {
		date     time.Time
		expected string
	}{
		{time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC), "2023-24"},
		{time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), "2024-25"},
		{time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC), "2024-25"},
		{time.Date(2025, time.June, 30, 23, 59, 0, 0, time.UTC), "2024-25"},
		{time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), "2025-26"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, tax.ResolveTaxYear(tc.date), "anchor %s", tc.date)
	}
}

func TestFormatTaxYear_CenturyRollover(t *testing.T) {
	assert.Equal(t, "2024-25", tax.FormatTaxYear(2024))
	assert.Equal(t, "1999-00", tax.FormatTaxYear(1999))
	assert.Equal(t, "2099-00", tax.FormatTaxYear(2099))
}

func TestResolveScale_Precedence(t *testing.T) {
	// Missing TFN dominates everything, then foreign residency, then the
	// threshold claim.
	cases := []struct {
		name     string
		settings tax.TaxSettings
		expected tax.Scale
	}{
		{"no TFN beats all", tax.TaxSettings{ForeignResident: true, ClaimedTaxFreeThreshold: true}, tax.ScaleNoTFN},
		{"foreign beats threshold", tax.TaxSettings{HasTaxFileNumber: true, ForeignResident: true, ClaimedTaxFreeThreshold: true}, tax.ScaleForeignResident},
		{"threshold claimed", tax.TaxSettings{HasTaxFileNumber: true, ClaimedTaxFreeThreshold: true}, tax.ScaleThresholdClaimed},
		{"resident without claim", tax.TaxSettings{HasTaxFileNumber: true}, tax.ScaleNoThreshold},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tax.ResolveScale(tc.settings))
		})
	}
}

func TestMedicareLevyRate(t *testing.T) {
	assert.True(t, tax.MedicareLevyRate(tax.MedicareExemptionNone).Equal(decimal.RequireFromString("0.02")))
	assert.True(t, tax.MedicareLevyRate(tax.MedicareExemptionHalf).Equal(decimal.RequireFromString("0.01")))
	assert.True(t, tax.MedicareLevyRate(tax.MedicareExemptionFull).IsZero())
	// Unknown statuses get the full levy rather than silently skipping it.
	assert.True(t, tax.MedicareLevyRate("garbage").Equal(decimal.RequireFromString("0.02")))
}

func TestPeriodType_Weeks(t *testing.T) {
	assert.True(t, tax.PeriodWeekly.Weeks().Equal(decimal.NewFromInt(1)))
	assert.True(t, tax.PeriodFortnightly.Weeks().Equal(decimal.NewFromInt(2)))
	// Monthly uses the 13/3 convention.
	expected := decimal.NewFromInt(13).Div(decimal.NewFromInt(3))
	assert.True(t, tax.PeriodMonthly.Weeks().Equal(expected))
}

func TestPeriodType_Valid(t *testing.T) {
	assert.True(t, tax.PeriodWeekly.Valid())
	assert.True(t, tax.PeriodFortnightly.Valid())
	assert.True(t, tax.PeriodMonthly.Valid())
	assert.False(t, tax.PeriodType("quarterly").Valid())
	assert.False(t, tax.PeriodType("").Valid())
}
