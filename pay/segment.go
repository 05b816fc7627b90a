/*
segment.go - Interval decomposition and penalty rule matching

PURPOSE:
  Decomposes a shift's working interval (shift minus trailing break) into a
  sequence of non-overlapping segments bounded by local midnight and rule
  boundaries, then resolves which penalty rules apply to each segment.

ALGORITHM:
  Walk forward from the shift start. At each step the next boundary is the
  minimum of: local midnight, the working end, and the start/end instants of
  every matching rule projected onto the current day (with midnight
  wraparound duplicated onto the next day). Each [current, boundary) slice
  becomes one segment.

MIDNIGHT WRAPAROUND:
  A rule window with end <= start denotes an overnight window. Overlap is
  tested on minutes-since-midnight with an explicit wraparound branch, so a
  segment and a rule may each independently cross midnight (four
  combinations) and still be matched correctly.

PUBLIC HOLIDAYS:
  A day matching a PublicHoliday is matched ONLY by the synthetic
  public-holiday rule; every other rule is suppressed for that calendar day.

SEE ALSO:
  - types.go: TimeSegment, PenaltyRule definitions
  - compose.go: How matched segments are priced
*/
package pay

import (
	"time"
)

// Segment decomposes the shift's working interval into contiguous,
// non-overlapping segments with their applicable rules resolved.
//
// PROPERTIES:
//   - Segments partition [shift.Start, shift.End - break): no gaps, no
//     overlaps, durations sum to shiftMinutes - breakMinutes.
//   - Zero-duration working intervals yield an empty list; validation of
//     shift bounds belongs to ComputeShiftPay.
//
// Inactive rules never influence the output.
func Segment(shift ShiftInterval, rules []PenaltyRule, holidays []PublicHoliday) []TimeSegment {
	workingEnd := shift.End.Add(-time.Duration(shift.BreakMinutes) * time.Minute)
	if !workingEnd.After(shift.Start) {
		return nil
	}

	active := activeRules(rules)

	var segments []TimeSegment
	current := shift.Start
	for current.Before(workingEnd) {
		boundary := nextBoundary(current, workingEnd, active)
		minutes := int(boundary.Sub(current) / time.Minute)
		if minutes > 0 {
			matched := applicableRules(current, minutes, active, holidays)
			segments = append(segments, TimeSegment{
				Start:   current,
				End:     boundary,
				Minutes: minutes,
				Rules:   matched,
				Regular: len(matched) == 0,
			})
		}
		current = boundary
	}
	return segments
}

// nextBoundary finds the earliest instant after cur where the applicable
// rule set can change: the next local midnight, the working end, or a rule
// window edge. Rule windows from the previous day are considered too, since
// an overnight window spills its end past midnight into the current day.
func nextBoundary(cur, workingEnd time.Time, rules []PenaltyRule) time.Time {
	day := dayStart(cur)
	boundary := workingEnd
	if next := day.AddDate(0, 0, 1); next.Before(boundary) {
		boundary = next
	}

	consider := func(t time.Time) {
		if t.After(cur) && t.Before(boundary) {
			boundary = t
		}
	}

	for _, base := range []time.Time{day.AddDate(0, 0, -1), day} {
		wd := base.Weekday()
		for _, r := range rules {
			if !r.MatchesDay(wd) {
				continue
			}
			start := base.Add(time.Duration(r.StartMinute) * time.Minute)
			end := base.Add(time.Duration(r.EndMinute) * time.Minute)
			if r.CrossesMidnight() {
				end = end.Add(24 * time.Hour)
			}
			consider(start)
			consider(end)
		}
	}
	return boundary
}

// applicableRules resolves the rule set for the segment starting at segStart
// and running for minutes. If the segment's calendar day is a public
// holiday, only the synthetic holiday rule applies - all others are
// suppressed for that day.
func applicableRules(segStart time.Time, minutes int, rules []PenaltyRule, holidays []PublicHoliday) []PenaltyRule {
	for _, h := range holidays {
		if h.Matches(segStart) {
			return []PenaltyRule{publicHolidayRule()}
		}
	}

	segS := minuteOfDay(segStart)
	segE := segS + minutes
	wd := segStart.Weekday()

	var matched []PenaltyRule
	for _, r := range rules {
		if !r.MatchesDay(wd) {
			continue
		}
		if timeOfDayOverlap(segS, segE, r.StartMinute, r.EndMinute) {
			matched = append(matched, r)
		}
	}
	return matched
}

// timeOfDayOverlap tests overlap between two half-open minutes-of-day
// windows, each of which may independently cross midnight. An interval with
// end <= start wraps; it is expanded into its pre-midnight and post-midnight
// portions and each pair of portions is tested for plain intersection.
func timeOfDayOverlap(aStart, aEnd, bStart, bEnd int) bool {
	for _, a := range expandWindow(aStart, aEnd) {
		for _, b := range expandWindow(bStart, bEnd) {
			if a[0] < b[1] && b[0] < a[1] {
				return true
			}
		}
	}
	return false
}

// expandWindow normalizes a minutes-of-day window into one or two linear
// intervals within [0, MinutesPerDay]. A window may cross midnight either
// explicitly (end > MinutesPerDay, e.g. a segment running past 24:00) or by
// the wrapping convention (end <= start).
func expandWindow(start, end int) [][2]int {
	if end > MinutesPerDay {
		return [][2]int{{start, MinutesPerDay}, {0, end - MinutesPerDay}}
	}
	if end <= start {
		return [][2]int{{start, MinutesPerDay}, {0, end}}
	}
	return [][2]int{{start, end}}
}

func activeRules(rules []PenaltyRule) []PenaltyRule {
	out := make([]PenaltyRule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}
