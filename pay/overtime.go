/*
overtime.go - Tiered overtime classification

PURPOSE:
  Computes, per shift, how many of the shift's minutes should be
  reclassified as tier-1 or tier-2 overtime. Two independent, additive
  checks run, each gated by its own policy flag on the rate profile:

  1. SPAN-BOUNDARY CHECK: Minutes falling outside the weekday's configured
     span of ordinary hours count as overtime. The first 3 hours of
     outside-span time go to tier 1, the excess to tier 2. On the
     all-day-tier-2 weekday everything goes straight to tier 2.

  2. DAILY-LIMIT CHECK: Worked hours beyond the day's threshold (the
     special threshold on its designated weekday, else the standard one)
     are overtime. Only the delta beyond what the span check already
     produced is added, clamped at zero, so the checks never double-count.

SEE ALSO:
  - types.go: RateProfile span/threshold fields
  - compose.go: How overtime hours are carved out of the breakdown
*/
package pay

import (
	"time"

	"github.com/shopspring/decimal"
)

// outsideSpanTier1CapHours: first 3 hours of outside-span time are tier 1,
// anything beyond is tier 2.
var outsideSpanTier1CapHours = decimal.NewFromInt(3)

// OvertimeHours is the result of overtime classification. Both fields are
// always >= 0.
type OvertimeHours struct {
	Tier1 decimal.Decimal
	Tier2 decimal.Decimal
}

// Total returns tier-1 plus tier-2 hours.
func (o OvertimeHours) Total() decimal.Decimal {
	return o.Tier1.Add(o.Tier2)
}

// ClassifyOvertime classifies the overtime portion of a shift. The weekday
// is taken from the shift start; a shift crossing midnight is attributed to
// the day it began. totalWorkedHours is net of the break, while the
// span-boundary check measures the raw shift bounds.
func ClassifyOvertime(totalWorkedHours decimal.Decimal, shiftStart, shiftEnd time.Time, profile RateProfile) OvertimeHours {
	var ot OvertimeHours
	ot.Tier1 = decimal.Zero
	ot.Tier2 = decimal.Zero

	weekday := shiftStart.Weekday()
	allDayTier2 := profile.Tier2AllDay != nil && *profile.Tier2AllDay == weekday

	if profile.OvertimeOnSpanBoundary {
		outside := outsideSpanHours(shiftStart, shiftEnd, profile.OrdinarySpan[weekday])
		if outside.IsPositive() {
			if allDayTier2 {
				ot.Tier2 = ot.Tier2.Add(outside)
			} else {
				tier1 := decimal.Min(outside, outsideSpanTier1CapHours)
				ot.Tier1 = ot.Tier1.Add(tier1)
				ot.Tier2 = ot.Tier2.Add(outside.Sub(tier1))
			}
		}
	}

	if profile.OvertimeOnDailyLimit {
		threshold := profile.DailyOvertimeThresholdHours
		if profile.SpecialThresholdDay != nil && *profile.SpecialThresholdDay == weekday &&
			profile.SpecialDailyThresholdHours.IsPositive() {
			threshold = profile.SpecialDailyThresholdHours
		}
		if threshold.IsPositive() && totalWorkedHours.GreaterThan(threshold) {
			excess := totalWorkedHours.Sub(threshold)
			// Only the part the span check has not already classified.
			delta := excess.Sub(ot.Total())
			if delta.IsPositive() {
				if allDayTier2 {
					ot.Tier2 = ot.Tier2.Add(delta)
				} else {
					ot.Tier1 = ot.Tier1.Add(delta)
				}
			}
		}
	}

	return ot
}

// outsideSpanHours measures shift minutes before the span start plus minutes
// after the span end, each clamped to the shift's own bounds, as decimal
// hours. A span with End <= Start means no ordinary hours are configured
// for the day and the whole check is skipped.
func outsideSpanHours(shiftStart, shiftEnd time.Time, span DaySpan) decimal.Decimal {
	if span.EndMinute <= span.StartMinute {
		return decimal.Zero
	}

	day := dayStart(shiftStart)
	spanStart := day.Add(time.Duration(span.StartMinute) * time.Minute)
	spanEnd := day.Add(time.Duration(span.EndMinute) * time.Minute)

	before := minutesBetween(shiftStart, earlier(shiftEnd, spanStart))
	after := minutesBetween(later(shiftStart, spanEnd), shiftEnd)
	return minutesToHours(decimal.NewFromInt(int64(before + after)))
}

func minutesBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / time.Minute)
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
