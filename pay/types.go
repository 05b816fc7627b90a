/*
Package pay implements the shift pay computation engine.

PURPOSE:
  This package turns a shift interval (start, end, break) into a priced,
  multi-component pay breakdown under a rules-based award structure:
  base rate, two overtime tiers, time-of-day/day-of-week penalty loadings,
  public holidays, and casual loading.

KEY CONCEPTS IN THIS FILE (types.go):
  - RateProfile: The pay parameters governing one pay arrangement
  - PenaltyRule: A loading applied inside a day/time window
  - PublicHoliday: A calendar date that suppresses all other rules
  - ShiftInterval: The input interval, constructed per calculation call
  - TimeSegment: A slice of the working interval with its matched rules
  - PayBreakdown: The fully priced output

DESIGN PRINCIPLES:
  1. Purity: The engine holds no state; every call is independent and
     safe to invoke in parallel across unrelated shifts.
  2. Precision: Uses decimal.Decimal for all money and hour arithmetic
     to avoid floating-point drift.
  3. Minutes-of-day arithmetic: Rule windows and ordinary-hours spans are
     expressed as minutes since local midnight, with an explicit
     wraparound branch for windows that cross midnight.

SEE ALSO:
  - segment.go: Interval decomposition and rule matching
  - overtime.go: Tiered overtime classification
  - compose.go: Breakdown pricing and the ComputeShiftPay facade
*/
package pay

import (
	"time"

	"github.com/shopspring/decimal"
)

// MinutesPerDay is the length of a civil day in minutes. Rule windows and
// ordinary-hours spans are expressed as minutes since local midnight in
// [0, MinutesPerDay).
const MinutesPerDay = 24 * 60

// =============================================================================
// RATE PROFILE - Pay parameters for one pay arrangement
// =============================================================================

// DaySpan is an ordinary-hours window for one weekday, in minutes since
// midnight. A span with End <= Start is treated as "no span configured":
// the span-boundary overtime check is skipped for that day.
type DaySpan struct {
	StartMinute int
	EndMinute   int
}

// RateProfile holds the full set of pay parameters governing one pay
// arrangement. Profiles are immutable per calculation and owned by the
// rule store.
type RateProfile struct {
	ID   string
	Name string

	// BaseRate is the hourly rate every component is priced from.
	BaseRate decimal.Decimal

	// CasualLoading is a fraction (e.g. 0.25) applied on top of all wage
	// components. Zero disables the loading.
	CasualLoading decimal.Decimal

	// Overtime multipliers for the two tiers. These are configuration, not
	// fixed 1.5x/2x constants.
	OvertimeTier1Multiplier decimal.Decimal
	OvertimeTier2Multiplier decimal.Decimal

	// OrdinarySpan is the span of ordinary hours per weekday, indexed by
	// time.Weekday (Sunday = 0).
	OrdinarySpan [7]DaySpan

	// DailyOvertimeThresholdHours is the worked-hours limit after which the
	// daily-limit check classifies the excess as overtime. Zero disables
	// the check regardless of the policy flag.
	DailyOvertimeThresholdHours decimal.Decimal

	// SpecialThresholdDay, when set, uses SpecialDailyThresholdHours instead
	// of the standard daily threshold on that weekday.
	SpecialThresholdDay        *time.Weekday
	SpecialDailyThresholdHours decimal.Decimal

	// Tier2AllDay, when set, routes all overtime on that weekday straight to
	// tier 2 (e.g. Sundays under some awards).
	Tier2AllDay *time.Weekday

	// Policy flags gating the two independent overtime checks.
	OvertimeOnSpanBoundary bool
	OvertimeOnDailyLimit   bool
}

// =============================================================================
// PENALTY RULES & PUBLIC HOLIDAYS
// =============================================================================

// PenaltyRule is a loading applied to hours worked inside a day/time window.
// A window with EndMinute <= StartMinute denotes an overnight window that
// crosses midnight.
type PenaltyRule struct {
	ID          string
	Name        string
	StartMinute int
	EndMinute   int

	// Day restricts the rule to one weekday. Nil means every day.
	Day *time.Weekday

	// Multiplier applied to the base rate for matched hours (>= 1).
	Multiplier decimal.Decimal

	// Priority is informational only. All matching active rules apply
	// additively; priority does not exclude lower-priority rules.
	Priority int

	Active bool
}

// MatchesDay reports whether the rule applies on the given weekday.
func (r PenaltyRule) MatchesDay(d time.Weekday) bool {
	return r.Day == nil || *r.Day == d
}

// CrossesMidnight reports whether the rule window wraps past midnight.
func (r PenaltyRule) CrossesMidnight() bool {
	return r.EndMinute <= r.StartMinute
}

// The synthetic public-holiday rule. It is generated on the fly for any day
// matching a PublicHoliday and, when present, suppresses every other rule
// for that entire calendar day. This is the only exclusivity rule in the
// system.
const (
	PublicHolidayRuleID   = "public-holiday"
	PublicHolidayRuleName = "Public Holiday"
)

func publicHolidayRule() PenaltyRule {
	return PenaltyRule{
		ID:          PublicHolidayRuleID,
		Name:        PublicHolidayRuleName,
		StartMinute: 0,
		EndMinute:   MinutesPerDay,
		Multiplier:  decimal.RequireFromString("2.5"),
		Priority:    100,
		Active:      true,
	}
}

// PublicHoliday is a local calendar date, not an instant.
type PublicHoliday struct {
	Year         int
	Month        time.Month
	Day          int
	Name         string
	Jurisdiction string
}

// Matches reports whether t falls on the holiday's calendar date, using
// t's own location.
func (h PublicHoliday) Matches(t time.Time) bool {
	y, m, d := t.Date()
	return y == h.Year && m == h.Month && d == h.Day
}

// =============================================================================
// SHIFT INTERVAL & TIME SEGMENTS
// =============================================================================

// ShiftInterval is the input to a pay calculation. It is ephemeral: callers
// construct one per calculation and this package never persists it.
type ShiftInterval struct {
	Start        time.Time
	End          time.Time
	BreakMinutes int
}

// Duration returns the shift length in minutes, ignoring the break.
func (s ShiftInterval) Duration() int {
	return int(s.End.Sub(s.Start) / time.Minute)
}

// WorkedMinutes returns shift minutes net of the break.
func (s ShiftInterval) WorkedMinutes() int {
	return s.Duration() - s.BreakMinutes
}

// WorkedHours returns worked minutes as decimal hours.
func (s ShiftInterval) WorkedHours() decimal.Decimal {
	return minutesToHours(decimal.NewFromInt(int64(s.WorkedMinutes())))
}

// TimeSegment is a slice of the working interval bounded by midnight and
// rule boundaries. Segments partition the working interval with no gaps or
// overlaps. Regular is true iff no rule matched the segment.
type TimeSegment struct {
	Start   time.Time
	End     time.Time
	Minutes int
	Rules   []PenaltyRule
	Regular bool
}

// =============================================================================
// PAY BREAKDOWN - Priced output
// =============================================================================

// PenaltyEntry is the priced total for one penalty rule across a shift.
type PenaltyEntry struct {
	RuleID   string
	RuleName string
	Hours    decimal.Decimal
	Rate     decimal.Decimal
	Amount   decimal.Decimal
}

// PayBreakdown is the fully classified, priced result of a shift.
//
// INVARIANT: Gross = RegularAmount + OvertimeTier1Amount + OvertimeTier2Amount
// + sum of penalty amounts + CasualLoadingAmount, exact to the decimal type.
type PayBreakdown struct {
	RegularHours  decimal.Decimal
	RegularRate   decimal.Decimal
	RegularAmount decimal.Decimal

	OvertimeTier1Hours  decimal.Decimal
	OvertimeTier1Rate   decimal.Decimal
	OvertimeTier1Amount decimal.Decimal

	OvertimeTier2Hours  decimal.Decimal
	OvertimeTier2Rate   decimal.Decimal
	OvertimeTier2Amount decimal.Decimal

	Penalties []PenaltyEntry

	CasualLoadingRate   decimal.Decimal
	CasualLoadingAmount decimal.Decimal

	Gross decimal.Decimal

	// AppliedRuleNames lists, sorted and de-duplicated, every rule that
	// matched at least one segment.
	AppliedRuleNames []string
}

// =============================================================================
// SMALL HELPERS
// =============================================================================

var sixty = decimal.NewFromInt(60)

func minutesToHours(minutes decimal.Decimal) decimal.Decimal {
	return minutes.Div(sixty)
}

// dayStart returns local midnight of t's calendar day.
func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// minuteOfDay returns t's offset from local midnight in minutes.
func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
