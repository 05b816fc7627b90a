package pay

import (
	"context"
	"time"
)

// RuleStore supplies the active pay-rate parameters, penalty rules, and
// public holidays for a rate profile. Consumed read-only by the engine.
//
// Implementations may return rules in any order and may include inactive
// rules; the engine filters them. Lookups are the only I/O boundary of a
// pay calculation.
type RuleStore interface {
	// RateProfile returns the profile by id, or ErrRateProfileNotFound.
	RateProfile(ctx context.Context, id string) (RateProfile, error)

	// PenaltyRules returns the penalty rules configured for a profile.
	PenaltyRules(ctx context.Context, profileID string) ([]PenaltyRule, error)

	// PublicHolidays returns holidays with dates inside [from, to].
	PublicHolidays(ctx context.Context, from, to time.Time) ([]PublicHoliday, error)
}
