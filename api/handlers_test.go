package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/pay"
	"github.com/warp/payroll-engine/store/memory"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httptest.NewServer(api.NewRouter(api.NewHandler(store, logger), nil))
	t.Cleanup(server.Close)
	return server, store
}

func seedPayFixtures(store *memory.Store) {
	profile := pay.RateProfile{
		ID:                      "casual-standard",
		Name:                    "Casual Standard",
		BaseRate:                decimal.RequireFromString("26.55"),
		OvertimeTier1Multiplier: decimal.RequireFromString("1.5"),
		OvertimeTier2Multiplier: decimal.RequireFromString("2"),
		OvertimeOnSpanBoundary:  true,
	}
	span := pay.DaySpan{StartMinute: 6 * 60, EndMinute: 21 * 60}
	for d := time.Monday; d <= time.Friday; d++ {
		profile.OrdinarySpan[d] = span
	}
	store.PutRateProfile(profile)
	store.PutPenaltyRule("casual-standard", pay.PenaltyRule{
		ID:          "evening",
		Name:        "Evening",
		StartMinute: 18 * 60,
		EndMinute:   22 * 60,
		Multiplier:  decimal.RequireFromString("1.25"),
		Active:      true,
	})
}

func seedTaxFixtures(store *memory.Store) {
	for _, scale := range []tax.Scale{
		tax.ScaleNoThreshold, tax.ScaleThresholdClaimed,
		tax.ScaleForeignResident, tax.ScaleNoTFN,
	} {
		store.PutTable(tax.FallbackTaxYear, tax.FallbackTable(scale))
	}
	store.PutSupplementaryTable(tax.FallbackTaxYear, tax.FallbackSupplementaryTable())
	store.PutTaxSettings("u1", tax.TaxSettings{
		ClaimedTaxFreeThreshold: true,
		HasTaxFileNumber:        true,
		MedicareExemption:       tax.MedicareExemptionNone,
	})
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// =============================================================================
// PAY COMPUTATION
// =============================================================================

func TestComputeShiftPayEndpoint(t *testing.T) {
	// GIVEN: The casual profile with an evening rule
	// WHEN: Pricing Monday 17:00-22:00
	// THEN: 1 regular + 3 evening + 1 tier-1 hour

	server, store := newTestServer(t)
	seedPayFixtures(store)

	resp := postJSON(t, server.URL+"/api/pay/compute", api.ComputePayRequest{
		RateProfileID: "casual-standard",
		Start:         "2024-09-16T17:00:00Z",
		End:           "2024-09-16T22:00:00Z",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b := decodeBody[api.PayBreakdownDTO](t, resp)
	assert.Equal(t, "1", b.RegularHours)
	assert.Equal(t, "1", b.OvertimeTier1Hours)
	require.Len(t, b.Penalties, 1)
	assert.Equal(t, "evening", b.Penalties[0].RuleID)
	assert.Equal(t, "3", b.Penalties[0].Hours)
	assert.Equal(t, "165.9375", b.Gross)
	assert.Equal(t, []string{"Evening"}, b.AppliedRuleNames)
}

func TestComputeShiftPayEndpoint_UnknownProfile(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/pay/compute", api.ComputePayRequest{
		RateProfileID: "nope",
		Start:         "2024-09-16T09:00:00Z",
		End:           "2024-09-16T17:00:00Z",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestComputeShiftPayEndpoint_InvalidShift(t *testing.T) {
	server, store := newTestServer(t)
	seedPayFixtures(store)

	resp := postJSON(t, server.URL+"/api/pay/compute", api.ComputePayRequest{
		RateProfileID: "casual-standard",
		Start:         "2024-09-16T17:00:00Z",
		End:           "2024-09-16T09:00:00Z",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRateProfileEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	seedPayFixtures(store)

	resp, err := http.Get(server.URL + "/api/profiles/casual-standard")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	p := decodeBody[api.RateProfileDTO](t, resp)
	assert.Equal(t, "Casual Standard", p.Name)
	assert.Equal(t, "26.55", p.BaseRate)
	assert.Equal(t, []string{"Evening"}, p.PenaltyRules)
}

// =============================================================================
// TAX CALCULATION
// =============================================================================

func TestCalculateTaxEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	seedTaxFixtures(store)

	resp := postJSON(t, server.URL+"/api/tax/calculate", api.CalculateTaxRequest{
		Gross:      "2000",
		PeriodType: "fortnightly",
		AnchorDate: "2024-09-15",
		Settings: api.TaxSettingsDTO{
			ClaimedTaxFreeThreshold: true,
			HasTaxFileNumber:        true,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	b := decodeBody[api.TaxBreakdownDTO](t, resp)
	assert.Equal(t, "245.6936", b.IncomeTax)
	assert.Equal(t, "40", b.MedicareLevy)
	assert.Equal(t, "1714.3064", b.Net)
	assert.Equal(t, "scale-2", b.Scale)
	assert.Equal(t, "2024-25", b.TaxYear)
	assert.False(t, b.UsedFallback)
	assert.Nil(t, b.YearToDate)
}

func TestCalculateTaxEndpoint_InvalidPeriodType(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/tax/calculate", api.CalculateTaxRequest{
		Gross:      "2000",
		PeriodType: "quarterly",
		AnchorDate: "2024-09-15",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// PAY PERIOD LIFECYCLE
// =============================================================================

func TestPayPeriodTaxFlow(t *testing.T) {
	// GIVEN: A registered fortnight with computed gross
	// WHEN: Running the persisting calculation
	// THEN: The breakdown carries the ledger snapshot and the year-to-date
	//       endpoint reflects it

	server, store := newTestServer(t)
	seedTaxFixtures(store)

	created := postJSON(t, server.URL+"/api/pay-periods", api.CreatePayPeriodRequest{
		UserID:     "u1",
		PeriodType: "fortnightly",
		EndDate:    "2024-09-15",
		Gross:      "2000",
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	period := decodeBody[api.PayPeriodDTO](t, created)
	require.NotEmpty(t, period.ID)
	assert.False(t, period.Taxed)

	taxed := postJSON(t, server.URL+"/api/pay-periods/"+period.ID+"/tax", nil)
	require.Equal(t, http.StatusOK, taxed.StatusCode)
	b := decodeBody[api.TaxBreakdownDTO](t, taxed)
	assert.Equal(t, "285.6936", b.TotalWithheld)
	require.NotNil(t, b.YearToDate)
	assert.Equal(t, "2000", b.YearToDate.GrossIncome)

	ytdResp, err := http.Get(fmt.Sprintf("%s/api/users/u1/ytd/%s", server.URL, "2024-25"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, ytdResp.StatusCode)
	ytd := decodeBody[api.YearToDateDTO](t, ytdResp)
	assert.Equal(t, "2000", ytd.GrossIncome)
	assert.Equal(t, "285.6936", ytd.TotalWithheld)
}

func TestPayPeriodTaxEndpoint_NoGross_Conflict(t *testing.T) {
	server, store := newTestServer(t)
	seedTaxFixtures(store)

	created := postJSON(t, server.URL+"/api/pay-periods", api.CreatePayPeriodRequest{
		UserID:     "u1",
		PeriodType: "weekly",
		EndDate:    "2024-09-15",
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	period := decodeBody[api.PayPeriodDTO](t, created)

	resp := postJSON(t, server.URL+"/api/pay-periods/"+period.ID+"/tax", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPayPeriodEndpoint_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/pay-periods/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	taxResp := postJSON(t, server.URL+"/api/pay-periods/missing/tax", nil)
	defer taxResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, taxResp.StatusCode)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidayEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	created := postJSON(t, server.URL+"/api/holidays", api.CreateHolidayRequest{
		Date:         "2025-01-01",
		Name:         "New Year's Day",
		Jurisdiction: "NSW",
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)
	created.Body.Close()

	resp, err := http.Get(server.URL + "/api/holidays/?from=2025-01-01&to=2025-12-31")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	holidays := decodeBody[[]api.HolidayDTO](t, resp)
	require.Len(t, holidays, 1)
	assert.Equal(t, "2025-01-01", holidays[0].Date)
	assert.Equal(t, "New Year's Day", holidays[0].Name)
}

func TestCreateHoliday_InvalidDate(t *testing.T) {
	server, _ := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/holidays", api.CreateHolidayRequest{
		Date: "01/01/2025",
		Name: "Bad Date",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
