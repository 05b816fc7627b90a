/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND HOURS:
  Decimal fields cross the wire as strings ("192.4875") to keep exact
  values exact. Clients that want numbers can parse; clients that want
  display can pass through.

TIMES AND DATES:
  Instants use RFC 3339. Calendar dates (pay period end, holidays) use
  YYYY-MM-DD since they are dates, not instants.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/pay"
	"github.com/warp/payroll-engine/tax"
)

// =============================================================================
// PAY COMPUTATION
// =============================================================================

// ComputePayRequest prices one shift against a rate profile.
type ComputePayRequest struct {
	RateProfileID string `json:"rate_profile_id"`
	Start         string `json:"start"` // RFC 3339
	End           string `json:"end"`   // RFC 3339
	BreakMinutes  int    `json:"break_minutes"`
}

// PenaltyEntryDTO is one penalty rule's priced total within a breakdown.
type PenaltyEntryDTO struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Hours    string `json:"hours"`
	Rate     string `json:"rate"`
	Amount   string `json:"amount"`
}

// PayBreakdownDTO is the priced result of a shift.
type PayBreakdownDTO struct {
	RegularHours  string `json:"regular_hours"`
	RegularRate   string `json:"regular_rate"`
	RegularAmount string `json:"regular_amount"`

	OvertimeTier1Hours  string `json:"overtime_tier1_hours"`
	OvertimeTier1Rate   string `json:"overtime_tier1_rate"`
	OvertimeTier1Amount string `json:"overtime_tier1_amount"`

	OvertimeTier2Hours  string `json:"overtime_tier2_hours"`
	OvertimeTier2Rate   string `json:"overtime_tier2_rate"`
	OvertimeTier2Amount string `json:"overtime_tier2_amount"`

	Penalties []PenaltyEntryDTO `json:"penalties"`

	CasualLoadingRate   string `json:"casual_loading_rate"`
	CasualLoadingAmount string `json:"casual_loading_amount"`

	Gross string `json:"gross"`

	AppliedRuleNames []string `json:"applied_rule_names"`
}

func toPayBreakdownDTO(b pay.PayBreakdown) PayBreakdownDTO {
	penalties := make([]PenaltyEntryDTO, 0, len(b.Penalties))
	for _, p := range b.Penalties {
		penalties = append(penalties, PenaltyEntryDTO{
			RuleID:   p.RuleID,
			RuleName: p.RuleName,
			Hours:    p.Hours.String(),
			Rate:     p.Rate.String(),
			Amount:   p.Amount.String(),
		})
	}
	names := b.AppliedRuleNames
	if names == nil {
		names = []string{}
	}
	return PayBreakdownDTO{
		RegularHours:        b.RegularHours.String(),
		RegularRate:         b.RegularRate.String(),
		RegularAmount:       b.RegularAmount.String(),
		OvertimeTier1Hours:  b.OvertimeTier1Hours.String(),
		OvertimeTier1Rate:   b.OvertimeTier1Rate.String(),
		OvertimeTier1Amount: b.OvertimeTier1Amount.String(),
		OvertimeTier2Hours:  b.OvertimeTier2Hours.String(),
		OvertimeTier2Rate:   b.OvertimeTier2Rate.String(),
		OvertimeTier2Amount: b.OvertimeTier2Amount.String(),
		Penalties:           penalties,
		CasualLoadingRate:   b.CasualLoadingRate.String(),
		CasualLoadingAmount: b.CasualLoadingAmount.String(),
		Gross:               b.Gross.String(),
		AppliedRuleNames:    names,
	}
}

// =============================================================================
// TAX CALCULATION
// =============================================================================

// TaxSettingsDTO carries a taxpayer's declared circumstances.
type TaxSettingsDTO struct {
	ClaimedTaxFreeThreshold bool   `json:"claimed_tax_free_threshold"`
	ForeignResident         bool   `json:"foreign_resident"`
	HasTaxFileNumber        bool   `json:"has_tax_file_number"`
	MedicareExemption       string `json:"medicare_exemption,omitempty"`
	HasSupplementaryDebt    bool   `json:"has_supplementary_debt"`
	ExtraWithholding        string `json:"extra_withholding,omitempty"`
}

func (d TaxSettingsDTO) toDomain() (tax.TaxSettings, error) {
	extra := decimal.Zero
	if d.ExtraWithholding != "" {
		var err error
		extra, err = decimal.NewFromString(d.ExtraWithholding)
		if err != nil {
			return tax.TaxSettings{}, err
		}
	}
	exemption := tax.MedicareExemptionNone
	if d.MedicareExemption != "" {
		exemption = tax.MedicareExemption(d.MedicareExemption)
	}
	return tax.TaxSettings{
		ClaimedTaxFreeThreshold: d.ClaimedTaxFreeThreshold,
		ForeignResident:         d.ForeignResident,
		HasTaxFileNumber:        d.HasTaxFileNumber,
		MedicareExemption:       exemption,
		HasSupplementaryDebt:    d.HasSupplementaryDebt,
		ExtraWithholding:        extra,
	}, nil
}

// CalculateTaxRequest is the stateless calculation: gross in, breakdown out,
// nothing persisted.
type CalculateTaxRequest struct {
	Gross      string         `json:"gross"`
	PeriodType string         `json:"period_type"`
	AnchorDate string         `json:"anchor_date"` // YYYY-MM-DD
	Settings   TaxSettingsDTO `json:"settings"`
}

// YearToDateDTO is one (user, tax-year) ledger row.
type YearToDateDTO struct {
	UserID        string `json:"user_id"`
	TaxYear       string `json:"tax_year"`
	GrossIncome   string `json:"gross_income"`
	TotalWithheld string `json:"total_withheld"`
	LastUpdated   string `json:"last_updated,omitempty"`
}

// TaxBreakdownDTO is the withholding result for one period.
type TaxBreakdownDTO struct {
	Gross            string `json:"gross"`
	IncomeTax        string `json:"income_tax"`
	MedicareLevy     string `json:"medicare_levy"`
	Supplementary    string `json:"supplementary"`
	ExtraWithholding string `json:"extra_withholding"`
	TotalWithheld    string `json:"total_withheld"`
	Net              string `json:"net"`

	Scale        string `json:"scale"`
	TaxYear      string `json:"tax_year"`
	UsedFallback bool   `json:"used_fallback"`

	YearToDate *YearToDateDTO `json:"year_to_date,omitempty"`
}

func toTaxBreakdownDTO(b tax.TaxBreakdown) TaxBreakdownDTO {
	dto := TaxBreakdownDTO{
		Gross:            b.Gross.String(),
		IncomeTax:        b.IncomeTax.String(),
		MedicareLevy:     b.MedicareLevy.String(),
		Supplementary:    b.Supplementary.String(),
		ExtraWithholding: b.ExtraWithholding.String(),
		TotalWithheld:    b.TotalWithheld.String(),
		Net:              b.Net.String(),
		Scale:            string(b.Scale),
		TaxYear:          b.TaxYear,
		UsedFallback:     b.UsedFallback,
	}
	if b.YearToDate != nil {
		ytd := toYearToDateDTO(*b.YearToDate)
		dto.YearToDate = &ytd
	}
	return dto
}

func toYearToDateDTO(ytd tax.YearToDateTax) YearToDateDTO {
	dto := YearToDateDTO{
		UserID:        ytd.UserID,
		TaxYear:       ytd.TaxYear,
		GrossIncome:   ytd.GrossIncome.String(),
		TotalWithheld: ytd.TotalWithheld.String(),
	}
	if !ytd.LastUpdated.IsZero() {
		dto.LastUpdated = ytd.LastUpdated.Format(timeFormat)
	}
	return dto
}

// =============================================================================
// PAY PERIODS & HOLIDAYS
// =============================================================================

// CreatePayPeriodRequest registers a pay period for later tax processing.
// Gross is optional; a period without it cannot be taxed yet.
type CreatePayPeriodRequest struct {
	UserID     string `json:"user_id"`
	PeriodType string `json:"period_type"`
	EndDate    string `json:"end_date"` // YYYY-MM-DD
	Gross      string `json:"gross,omitempty"`
	TimeZone   string `json:"time_zone,omitempty"`
}

// PayPeriodDTO represents a stored pay period.
type PayPeriodDTO struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	PeriodType string `json:"period_type"`
	EndDate    string `json:"end_date"`
	Gross      string `json:"gross,omitempty"`
	TimeZone   string `json:"time_zone,omitempty"`
	Taxed      bool   `json:"taxed"`
}

func toPayPeriodDTO(p tax.PayPeriod) PayPeriodDTO {
	dto := PayPeriodDTO{
		ID:         p.ID,
		UserID:     p.UserID,
		PeriodType: string(p.Type),
		EndDate:    p.EndDate.Format(dateFormat),
		TimeZone:   p.TimeZone,
		Taxed:      p.Taxed,
	}
	if p.Gross != nil {
		dto.Gross = p.Gross.String()
	}
	return dto
}

// HolidayDTO represents a public holiday date.
type HolidayDTO struct {
	Date         string `json:"date"` // YYYY-MM-DD
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// CreateHolidayRequest adds a public holiday.
type CreateHolidayRequest struct {
	Date         string `json:"date"` // YYYY-MM-DD
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// RateProfileDTO exposes the pricing parameters of a profile.
type RateProfileDTO struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name"`
	BaseRate                string   `json:"base_rate"`
	CasualLoading           string   `json:"casual_loading"`
	OvertimeTier1Multiplier string   `json:"overtime_tier1_multiplier"`
	OvertimeTier2Multiplier string   `json:"overtime_tier2_multiplier"`
	DailyOvertimeThreshold  string   `json:"daily_overtime_threshold_hours"`
	PenaltyRules            []string `json:"penalty_rules"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
