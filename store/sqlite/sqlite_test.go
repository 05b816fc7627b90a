package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/pay"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/tax"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// RATE PROFILES & PENALTY RULES
// =============================================================================

func TestSQLite_RateProfileRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sat := time.Saturday
	sun := time.Sunday
	profile := pay.RateProfile{
		ID:                          "casual-standard",
		Name:                        "Casual Standard",
		BaseRate:                    dec("26.55"),
		CasualLoading:               dec("0.25"),
		OvertimeTier1Multiplier:     dec("1.5"),
		OvertimeTier2Multiplier:     dec("2"),
		DailyOvertimeThresholdHours: dec("10"),
		SpecialThresholdDay:         &sat,
		SpecialDailyThresholdHours:  dec("8"),
		Tier2AllDay:                 &sun,
		OvertimeOnSpanBoundary:      true,
		OvertimeOnDailyLimit:        true,
	}
	profile.OrdinarySpan[time.Monday] = pay.DaySpan{StartMinute: 360, EndMinute: 1260}

	require.NoError(t, store.SaveRateProfile(ctx, profile))

	got, err := store.RateProfile(ctx, "casual-standard")
	require.NoError(t, err)
	assert.Equal(t, profile.Name, got.Name)
	assert.True(t, got.BaseRate.Equal(profile.BaseRate))
	assert.True(t, got.CasualLoading.Equal(profile.CasualLoading))
	assert.Equal(t, pay.DaySpan{StartMinute: 360, EndMinute: 1260}, got.OrdinarySpan[time.Monday])
	assert.Equal(t, pay.DaySpan{}, got.OrdinarySpan[time.Sunday])
	require.NotNil(t, got.SpecialThresholdDay)
	assert.Equal(t, time.Saturday, *got.SpecialThresholdDay)
	require.NotNil(t, got.Tier2AllDay)
	assert.Equal(t, time.Sunday, *got.Tier2AllDay)
	assert.True(t, got.OvertimeOnSpanBoundary)
}

func TestSQLite_RateProfileNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.RateProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, pay.ErrRateProfileNotFound)
}

func TestSQLite_PenaltyRulesPerProfile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRateProfile(ctx, pay.RateProfile{
		ID: "p1", BaseRate: dec("25"), CasualLoading: dec("0"),
		OvertimeTier1Multiplier: dec("1.5"), OvertimeTier2Multiplier: dec("2"),
		DailyOvertimeThresholdHours: dec("0"), SpecialDailyThresholdHours: dec("0"),
	}))

	sat := time.Saturday
	require.NoError(t, store.SavePenaltyRule(ctx, "p1", pay.PenaltyRule{
		ID: "evening", Name: "Evening", StartMinute: 1080, EndMinute: 1320,
		Multiplier: dec("1.25"), Priority: 10, Active: true,
	}))
	require.NoError(t, store.SavePenaltyRule(ctx, "p1", pay.PenaltyRule{
		ID: "saturday", Name: "Saturday", StartMinute: 0, EndMinute: 1440,
		Day: &sat, Multiplier: dec("1.5"), Priority: 30, Active: false,
	}))

	rules, err := store.PenaltyRules(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rules, 2)

	// Ordered by priority descending.
	assert.Equal(t, "saturday", rules[0].ID)
	require.NotNil(t, rules[0].Day)
	assert.Equal(t, time.Saturday, *rules[0].Day)
	assert.False(t, rules[0].Active)
	assert.Equal(t, "evening", rules[1].ID)
	assert.Nil(t, rules[1].Day)

	other, err := store.PenaltyRules(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLite_PublicHolidayRangeFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SavePublicHoliday(ctx, "h1", pay.PublicHoliday{
		Year: 2025, Month: time.January, Day: 1, Name: "New Year's Day",
	}))
	require.NoError(t, store.SavePublicHoliday(ctx, "h2", pay.PublicHoliday{
		Year: 2025, Month: time.April, Day: 25, Name: "Anzac Day",
	}))

	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
	holidays, err := store.PublicHolidays(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, "New Year's Day", holidays[0].Name)
}

// =============================================================================
// COEFFICIENT TABLES
// =============================================================================

func TestSQLite_TableRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	table := tax.FallbackTable(tax.ScaleThresholdClaimed)
	require.NoError(t, store.SaveTable(ctx, "2024-25", table))

	got, err := store.Table(ctx, tax.ScaleThresholdClaimed, "2024-25")
	require.NoError(t, err)
	require.Len(t, got, len(table))
	require.NoError(t, tax.ValidateTable(got))
	assert.True(t, got[0].LowerBound.IsZero())
	assert.Nil(t, got[len(got)-1].UpperBound)

	_, err = store.Table(ctx, tax.ScaleNoThreshold, "2024-25")
	assert.ErrorIs(t, err, tax.ErrTableNotFound)
}

func TestSQLite_SupplementaryTableStoredUnderOwnScale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTable(ctx, "2024-25", tax.FallbackSupplementaryTable()))

	got, err := store.SupplementaryTable(ctx, "2024-25")
	require.NoError(t, err)
	require.NoError(t, tax.ValidateTable(got))

	// It must not leak into a taxpayer scale.
	_, err = store.Table(ctx, tax.ScaleThresholdClaimed, "2024-25")
	assert.ErrorIs(t, err, tax.ErrTableNotFound)
}

func TestSQLite_SaveTableReplacesExistingRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTable(ctx, "2024-25", tax.FallbackTable(tax.ScaleNoTFN)))
	require.NoError(t, store.SaveTable(ctx, "2024-25", tax.FallbackTable(tax.ScaleNoTFN)))

	got, err := store.Table(ctx, tax.ScaleNoTFN, "2024-25")
	require.NoError(t, err)
	assert.Len(t, got, 1, "re-saving replaces, never duplicates")
}

// =============================================================================
// PAY PERIODS & LEDGER
// =============================================================================

func TestSQLite_PayPeriodUpdateKeepsLedgerMarkers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	gross := dec("2000")
	period := tax.PayPeriod{
		ID: "p1", UserID: "u1", Type: tax.PeriodFortnightly,
		EndDate: time.Date(2024, time.September, 15, 0, 0, 0, 0, time.UTC),
		Gross:   &gross,
	}
	require.NoError(t, store.SavePayPeriod(ctx, period))
	require.NoError(t, store.MarkPayPeriodTaxed(ctx, "p1", dec("2000"), dec("285.69")))

	// Re-pricing the period must not clear its recorded contribution.
	newGross := dec("2200")
	period.Gross = &newGross
	require.NoError(t, store.SavePayPeriod(ctx, period))

	got, err := store.PayPeriod(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.Taxed)
	assert.True(t, got.LastTaxedGross.Equal(dec("2000")))
	assert.True(t, got.Gross.Equal(dec("2200")))
	assert.Equal(t, tax.PeriodFortnightly, got.Type)
	assert.Equal(t, "2024-09-15", got.EndDate.Format("2006-01-02"))
}

func TestSQLite_MarkPayPeriodTaxed_Unknown(t *testing.T) {
	store := newTestStore(t)
	err := store.MarkPayPeriodTaxed(context.Background(), "missing", dec("1"), dec("1"))
	assert.ErrorIs(t, err, tax.ErrPayPeriodNotFound)
}

func TestSQLite_TaxSettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings := tax.TaxSettings{
		ClaimedTaxFreeThreshold: true,
		HasTaxFileNumber:        true,
		MedicareExemption:       tax.MedicareExemptionHalf,
		HasSupplementaryDebt:    true,
		ExtraWithholding:        dec("25"),
	}
	require.NoError(t, store.SaveTaxSettings(ctx, "u1", settings))

	got, err := store.TaxSettings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, tax.MedicareExemptionHalf, got.MedicareExemption)
	assert.True(t, got.ExtraWithholding.Equal(dec("25")))
	assert.True(t, got.HasSupplementaryDebt)

	_, err = store.TaxSettings(ctx, "nobody")
	assert.ErrorIs(t, err, tax.ErrUserNotFound)
}

func TestSQLite_YearToDate_MissingRowReadsAsZero(t *testing.T) {
	store := newTestStore(t)

	ytd, err := store.YearToDate(context.Background(), "u1", "2024-25")
	require.NoError(t, err)
	assert.True(t, ytd.GrossIncome.IsZero())
	assert.True(t, ytd.TotalWithheld.IsZero())
	assert.Equal(t, "u1", ytd.UserID)
}

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(s tax.LedgerStore) error {
		if err := s.SaveYearToDate(ctx, tax.YearToDateTax{
			UserID: "u1", TaxYear: "2024-25",
			GrossIncome: dec("1000"), TotalWithheld: dec("100"),
			LastUpdated: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ytd, err := store.YearToDate(ctx, "u1", "2024-25")
	require.NoError(t, err)
	assert.True(t, ytd.GrossIncome.IsZero(), "rolled-back write must not be visible")
}

func TestSQLite_WithTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(s tax.LedgerStore) error {
		return s.SaveYearToDate(ctx, tax.YearToDateTax{
			UserID: "u1", TaxYear: "2024-25",
			GrossIncome: dec("1000"), TotalWithheld: dec("100"),
			LastUpdated: time.Now(),
		})
	})
	require.NoError(t, err)

	ytd, err := store.YearToDate(ctx, "u1", "2024-25")
	require.NoError(t, err)
	assert.True(t, ytd.GrossIncome.Equal(dec("1000")))
}
