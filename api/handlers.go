/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the pay computation and withholding engines via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Pay:
    POST   /api/pay/compute            Price one shift against a profile

  Tax:
    POST   /api/tax/calculate          Stateless withholding calculation
    POST   /api/pay-periods            Register a pay period
    GET    /api/pay-periods/{id}       Get a pay period
    POST   /api/pay-periods/{id}/tax   Calculate + persist to the ledger
    GET    /api/users/{id}/ytd/{year}  Year-to-date ledger row

  Reference data:
    GET    /api/profiles/{id}          Rate profile with its penalty rules
    GET    /api/holidays               List holidays in a date range
    POST   /api/holidays               Add a public holiday

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Precondition failures (period has no gross) and write conflicts
  - 500: Internal errors, malformed stored tables

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/pay"
	"github.com/warp/payroll-engine/tax"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = time.RFC3339
)

// Store is everything the API needs from persistence. Both the memory and
// the SQLite store satisfy it.
type Store interface {
	pay.RuleStore
	tax.CoefficientStore
	tax.TxLedgerStore

	SavePublicHoliday(ctx context.Context, id string, h pay.PublicHoliday) error
	SavePayPeriod(ctx context.Context, p tax.PayPeriod) error
}

// Handler holds all API dependencies.
type Handler struct {
	store  Store
	engine *tax.Engine
	logger *slog.Logger
}

// NewHandler creates a handler. Coefficient reads go through a TTL cache;
// ledger writes go straight at the store.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	cached := tax.NewCachedCoefficients(store, tax.DefaultCoefficientTTL)
	return &Handler{
		store:  store,
		engine: tax.NewEngine(cached, store, logger),
		logger: logger,
	}
}

// =============================================================================
// PAY ENDPOINTS
// =============================================================================

// ComputeShiftPay prices a single shift.
// POST /api/pay/compute
func (h *Handler) ComputeShiftPay(w http.ResponseWriter, r *http.Request) {
	var req ComputePayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := time.Parse(timeFormat, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start (use RFC 3339)", err)
		return
	}
	end, err := time.Parse(timeFormat, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end (use RFC 3339)", err)
		return
	}

	ctx := r.Context()
	profile, err := h.store.RateProfile(ctx, req.RateProfileID)
	if err != nil {
		if pay.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Rate profile not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load rate profile", err)
		return
	}

	rules, err := h.store.PenaltyRules(ctx, profile.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load penalty rules", err)
		return
	}

	holidays, err := h.store.PublicHolidays(ctx, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load holidays", err)
		return
	}

	shift := pay.ShiftInterval{Start: start, End: end, BreakMinutes: req.BreakMinutes}
	breakdown, err := pay.ComputeShiftPay(shift, profile, rules, holidays)
	if err != nil {
		if pay.IsPrecondition(err) {
			writeError(w, http.StatusBadRequest, "Invalid shift", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to compute pay", err)
		return
	}

	writeJSON(w, http.StatusOK, toPayBreakdownDTO(breakdown))
}

// GetRateProfile returns a rate profile with its penalty rule names.
// GET /api/profiles/{id}
func (h *Handler) GetRateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	profile, err := h.store.RateProfile(ctx, id)
	if err != nil {
		if pay.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Rate profile not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load rate profile", err)
		return
	}

	rules, err := h.store.PenaltyRules(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load penalty rules", err)
		return
	}
	ruleNames := make([]string, 0, len(rules))
	for _, rule := range rules {
		ruleNames = append(ruleNames, rule.Name)
	}

	writeJSON(w, http.StatusOK, RateProfileDTO{
		ID:                      profile.ID,
		Name:                    profile.Name,
		BaseRate:                profile.BaseRate.String(),
		CasualLoading:           profile.CasualLoading.String(),
		OvertimeTier1Multiplier: profile.OvertimeTier1Multiplier.String(),
		OvertimeTier2Multiplier: profile.OvertimeTier2Multiplier.String(),
		DailyOvertimeThreshold:  profile.DailyOvertimeThresholdHours.String(),
		PenaltyRules:            ruleNames,
	})
}

// =============================================================================
// TAX ENDPOINTS
// =============================================================================

// CalculateTax runs the stateless withholding calculation.
// POST /api/tax/calculate
func (h *Handler) CalculateTax(w http.ResponseWriter, r *http.Request) {
	var req CalculateTaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	gross, err := decimal.NewFromString(req.Gross)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid gross amount", err)
		return
	}
	periodType := tax.PeriodType(req.PeriodType)
	if !periodType.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid period_type (weekly, fortnightly, monthly)", nil)
		return
	}
	anchor, err := time.Parse(dateFormat, req.AnchorDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid anchor_date (use YYYY-MM-DD)", err)
		return
	}
	settings, err := req.Settings.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid extra_withholding amount", err)
		return
	}

	breakdown, err := h.engine.Calculate(r.Context(), gross, settings, periodType, anchor)
	if err != nil {
		writeTaxError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxBreakdownDTO(breakdown))
}

// CreatePayPeriod registers a pay period.
// POST /api/pay-periods
func (h *Handler) CreatePayPeriod(w http.ResponseWriter, r *http.Request) {
	var req CreatePayPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	periodType := tax.PeriodType(req.PeriodType)
	if !periodType.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid period_type (weekly, fortnightly, monthly)", nil)
		return
	}
	endDate, err := time.Parse(dateFormat, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}

	period := tax.PayPeriod{
		ID:       uuid.NewString(),
		UserID:   req.UserID,
		Type:     periodType,
		EndDate:  endDate,
		TimeZone: req.TimeZone,
	}
	if req.Gross != "" {
		gross, err := decimal.NewFromString(req.Gross)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid gross amount", err)
			return
		}
		period.Gross = &gross
	}

	if err := h.store.SavePayPeriod(r.Context(), period); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save pay period", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayPeriodDTO(period))
}

// GetPayPeriod returns a stored pay period.
// GET /api/pay-periods/{id}
func (h *Handler) GetPayPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.store.PayPeriod(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if tax.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Pay period not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load pay period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayPeriodDTO(period))
}

// CalculatePeriodTax runs the persisting calculation for a stored period.
// POST /api/pay-periods/{id}/tax
func (h *Handler) CalculatePeriodTax(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.engine.CalculateAndPersist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeTaxError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaxBreakdownDTO(breakdown))
}

// GetYearToDate returns the ledger row for a user and tax-year.
// GET /api/users/{id}/ytd/{year}
func (h *Handler) GetYearToDate(w http.ResponseWriter, r *http.Request) {
	ytd, err := h.store.YearToDate(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load year-to-date totals", err)
		return
	}
	writeJSON(w, http.StatusOK, toYearToDateDTO(ytd))
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns holidays within ?from=YYYY-MM-DD&to=YYYY-MM-DD,
// defaulting to the current calendar year.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)

	var err error
	if q := r.URL.Query().Get("from"); q != "" {
		if from, err = time.Parse(dateFormat, q); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
	}
	if q := r.URL.Query().Get("to"); q != "" {
		if to, err = time.Parse(dateFormat, q); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
	}

	holidays, err := h.store.PublicHolidays(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, holiday := range holidays {
		date := time.Date(holiday.Year, holiday.Month, holiday.Day, 0, 0, 0, 0, time.UTC)
		dtos = append(dtos, HolidayDTO{
			Date:         date.Format(dateFormat),
			Name:         holiday.Name,
			Jurisdiction: holiday.Jurisdiction,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a public holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse(dateFormat, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	holiday := pay.PublicHoliday{
		Year:         date.Year(),
		Month:        date.Month(),
		Day:          date.Day(),
		Name:         req.Name,
		Jurisdiction: req.Jurisdiction,
	}
	if err := h.store.SavePublicHoliday(r.Context(), uuid.NewString(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{
		Date:         date.Format(dateFormat),
		Name:         holiday.Name,
		Jurisdiction: holiday.Jurisdiction,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// writeTaxError maps engine errors onto HTTP statuses. Malformed stored
// tables deliberately land in the 500 bucket: that is a server-side
// configuration failure, not something the client can fix.
func writeTaxError(w http.ResponseWriter, err error) {
	switch {
	case tax.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, tax.ErrGrossNotComputed):
		writeError(w, http.StatusConflict, "Pay period has no computed gross pay", err)
	case errors.Is(err, tax.ErrInvalidPeriodType):
		writeError(w, http.StatusBadRequest, "Invalid period type", err)
	case tax.IsRetryable(err):
		writeError(w, http.StatusConflict, "Concurrent update, retry the request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Calculation failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
