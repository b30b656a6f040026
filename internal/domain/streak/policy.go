// Package streak holds the rule that decides when a user's daily completion
// streak has lapsed. The completion path and the read path both consult the
// same Policy so the two can never disagree.
package streak

import (
	"time"

	"github.com/phrazzld/apitask/internal/domain"
)

// DefaultDecayAfterDays is used when no policy is configured.
const DefaultDecayAfterDays = 2

// Policy decides streak decay. A streak has decayed when there is no last
// streak date, or when at least DecayAfterDays calendar days have passed
// since it. DecayAfterDays <= 0 disables decay.
type Policy struct {
	DecayAfterDays int
}

// Default returns the policy with DefaultDecayAfterDays.
func Default() Policy {
	return Policy{DecayAfterDays: DefaultDecayAfterDays}
}

// Enabled reports whether streaks decay at all.
func (p Policy) Enabled() bool {
	return p.DecayAfterDays > 0
}

// Decayed reports whether a streak last extended on last has lapsed by today.
func (p Policy) Decayed(last *time.Time, today time.Time) bool {
	if last == nil {
		return true
	}
	if !p.Enabled() {
		return false
	}
	return domain.DaysBetween(*last, today) >= p.DecayAfterDays
}

// ResetCutoff returns the latest last-streak date that counts as decayed on
// today, or nil when decay is disabled. It is the SQL-side form of Decayed:
// last <= cutoff iff Decayed(last, today) for non-nil last.
func (p Policy) ResetCutoff(today time.Time) *time.Time {
	if !p.Enabled() {
		return nil
	}
	cutoff := domain.AddDays(today, -p.DecayAfterDays)
	return &cutoff
}

// Award returns the points after a first completion on today and whether a
// point is awarded at all. A second completion on the same day awards
// nothing; a decayed streak restarts at one.
func (p Policy) Award(points int, last *time.Time, today time.Time) (int, bool) {
	if last != nil && last.Equal(today) {
		return points, false
	}
	if p.Decayed(last, today) {
		return 1, true
	}
	return points + 1, true
}

// Current returns the points a reader should see on today.
func (p Policy) Current(points int, last *time.Time, today time.Time) int {
	if p.Decayed(last, today) {
		return 0
	}
	return points
}
