/*
compose.go - Breakdown pricing and the ComputeShiftPay facade

PURPOSE:
  Combines segmentation and overtime classification into a priced
  PayBreakdown: regular, two overtime tiers, per-rule penalties, casual
  loading, gross.

PRICING MODEL:
  - Overtime hours are carved from the END of the shift backwards. A minute
    reclassified as overtime is paid at its tier rate only; it no longer
    contributes to the regular total or to any penalty rule total. This
    keeps every worked minute priced exactly once.
  - Penalty rules are additive, not priority-exclusive: a segment matched
    by two simultaneously-active rules contributes to both rules' totals
    independently. The Priority field is informational only.
  - Casual loading, when configured, applies on top of all wage components.

INVARIANT:
  Gross = regular + tier1 + tier2 + sum(penalties) + casual loading,
  exact to the decimal type.
*/
package pay

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Compose prices a segmented shift into a PayBreakdown.
func Compose(segments []TimeSegment, overtime OvertimeHours, profile RateProfile) PayBreakdown {
	paid := carveOvertime(segments, overtime.Total())

	regularMinutes := decimal.Zero
	ruleMinutes := make(map[string]decimal.Decimal)
	ruleByID := make(map[string]PenaltyRule)
	nameSet := make(map[string]struct{})

	for i, seg := range segments {
		if seg.Regular {
			regularMinutes = regularMinutes.Add(paid[i])
			continue
		}
		for _, r := range seg.Rules {
			nameSet[r.Name] = struct{}{}
			ruleMinutes[r.ID] = ruleMinutes[r.ID].Add(paid[i])
			ruleByID[r.ID] = r
		}
	}

	b := PayBreakdown{
		RegularRate:       profile.BaseRate,
		OvertimeTier1Rate: profile.BaseRate.Mul(profile.OvertimeTier1Multiplier),
		OvertimeTier2Rate: profile.BaseRate.Mul(profile.OvertimeTier2Multiplier),
		CasualLoadingRate: profile.CasualLoading,
	}

	b.RegularHours = minutesToHours(regularMinutes)
	b.RegularAmount = b.RegularHours.Mul(b.RegularRate)

	b.OvertimeTier1Hours = overtime.Tier1
	b.OvertimeTier1Amount = b.OvertimeTier1Hours.Mul(b.OvertimeTier1Rate)

	b.OvertimeTier2Hours = overtime.Tier2
	b.OvertimeTier2Amount = b.OvertimeTier2Hours.Mul(b.OvertimeTier2Rate)

	penaltyTotal := decimal.Zero
	ids := make([]string, 0, len(ruleMinutes))
	for id := range ruleMinutes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		r := ruleByID[id]
		hours := minutesToHours(ruleMinutes[id])
		rate := profile.BaseRate.Mul(r.Multiplier)
		amount := hours.Mul(rate)
		b.Penalties = append(b.Penalties, PenaltyEntry{
			RuleID:   id,
			RuleName: r.Name,
			Hours:    hours,
			Rate:     rate,
			Amount:   amount,
		})
		penaltyTotal = penaltyTotal.Add(amount)
	}

	wages := b.RegularAmount.
		Add(b.OvertimeTier1Amount).
		Add(b.OvertimeTier2Amount).
		Add(penaltyTotal)

	b.CasualLoadingAmount = decimal.Zero
	if profile.CasualLoading.IsPositive() {
		b.CasualLoadingAmount = wages.Mul(profile.CasualLoading)
	}

	b.Gross = wages.Add(b.CasualLoadingAmount)

	b.AppliedRuleNames = make([]string, 0, len(nameSet))
	for name := range nameSet {
		b.AppliedRuleNames = append(b.AppliedRuleNames, name)
	}
	sort.Strings(b.AppliedRuleNames)

	return b
}

// carveOvertime returns, per segment, the minutes still payable at the
// segment's own classification after overtime hours have been taken from
// the end of the shift backwards.
func carveOvertime(segments []TimeSegment, overtimeHours decimal.Decimal) []decimal.Decimal {
	paid := make([]decimal.Decimal, len(segments))
	remaining := overtimeHours.Mul(sixty)
	for i := len(segments) - 1; i >= 0; i-- {
		minutes := decimal.NewFromInt(int64(segments[i].Minutes))
		take := decimal.Min(minutes, decimal.Max(remaining, decimal.Zero))
		paid[i] = minutes.Sub(take)
		remaining = remaining.Sub(take)
	}
	return paid
}

// ComputeShiftPay is the engine facade: validate, segment, classify
// overtime, compose. The engine is pure; it holds no state between calls.
func ComputeShiftPay(shift ShiftInterval, profile RateProfile, rules []PenaltyRule, holidays []PublicHoliday) (PayBreakdown, error) {
	if !shift.End.After(shift.Start) {
		return PayBreakdown{}, &ShiftError{Stage: "segmentation", Err: ErrInvalidShift}
	}
	if shift.BreakMinutes < 0 {
		return PayBreakdown{}, &ShiftError{Stage: "segmentation", Err: ErrNegativeBreak}
	}
	if shift.BreakMinutes >= shift.Duration() {
		return PayBreakdown{}, &ShiftError{Stage: "segmentation", Err: ErrBreakExceedsShift}
	}

	segments := Segment(shift, rules, holidays)
	overtime := ClassifyOvertime(shift.WorkedHours(), shift.Start, shift.End, profile)
	return Compose(segments, overtime, profile), nil
}
