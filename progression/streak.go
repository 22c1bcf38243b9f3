package progression

import (
	"fmt"
	"time"
)

// DefaultStreakGrace is how long after the previous check-in a new one still continues the streak.
const DefaultStreakGrace = 30 * time.Hour

// Streak is the daily check-in state of one user.
type Streak struct {
	Current          int        `json:"current_streak"`
	Longest          int        `json:"longest_streak"`
	LastCheckIn      *time.Time `json:"last_check_in"`
	TodayCheckCount  int        `json:"today_check_count"`
	RedemptionTokens int        `json:"redemption_tokens"`
}

// Transition names the branch a check-in took.
type Transition string

const (
	TransitionSameDay   Transition = "same_day"
	TransitionContinued Transition = "continued"
	TransitionBroken    Transition = "broken"
)

// StreakTracker applies check-ins and redemptions. Day boundaries are computed in Location.
type StreakTracker struct {
	Grace    time.Duration
	Location *time.Location
}

// NewStreakTracker returns a tracker with the given grace window and day-boundary zone.
// Zero values fall back to DefaultStreakGrace and UTC.
func NewStreakTracker(grace time.Duration, loc *time.Location) StreakTracker {
	if grace <= 0 {
		grace = DefaultStreakGrace
	}
	if loc == nil {
		loc = time.UTC
	}
	return StreakTracker{Grace: grace, Location: loc}
}

func (t StreakTracker) location() *time.Location {
	if t.Location == nil {
		return time.UTC
	}
	return t.Location
}

func (t StreakTracker) grace() time.Duration {
	if t.Grace <= 0 {
		return DefaultStreakGrace
	}
	return t.Grace
}

// SameDay reports whether a and b fall on the same calendar date in the tracker's zone.
func (t StreakTracker) SameDay(a, b time.Time) bool {
	loc := t.location()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// CheckIn records a check-in at now.
func (t StreakTracker) CheckIn(s Streak, now time.Time) (Streak, Transition) {
	if s.LastCheckIn != nil {
		last := *s.LastCheckIn
		// a clock that went backwards is counted like a repeat on the same day
		if t.SameDay(last, now) || now.Before(last) {
			s.TodayCheckCount++
			return s, TransitionSameDay
		}
		if now.Sub(last) > t.grace() {
			s.Current = 1
			if s.Longest < s.Current {
				s.Longest = s.Current
			}
			s.LastCheckIn = &now
			s.TodayCheckCount = 1
			return s, TransitionBroken
		}
	}

	s.Current++
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	s.LastCheckIn = &now
	s.TodayCheckCount = 1
	return s, TransitionContinued
}

// Redeem spends one redemption token to extend the streak without the time check.
func (t StreakTracker) Redeem(s Streak, now time.Time) (Streak, error) {
	if s.RedemptionTokens < 1 {
		return s, ErrInsufficientTokens
	}
	s.RedemptionTokens--
	s.Current++
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	s.LastCheckIn = &now
	return s, nil
}

// GrantTokens adds count redemption tokens.
func GrantTokens(s Streak, count int) (Streak, error) {
	if count < 1 {
		return s, fmt.Errorf("%w: token grant %d must be positive", ErrInvalidArgument, count)
	}
	s.RedemptionTokens += count
	return s, nil
}
