package progression

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func TestStreakTracker_CheckIn(t *testing.T) {
	tracker := NewStreakTracker(DefaultStreakGrace, time.UTC)

	tests := []struct {
		name       string
		in         Streak
		now        time.Time
		want       Streak
		transition Transition
	}{
		{
			name:       "first ever check-in",
			in:         Streak{},
			now:        base,
			want:       Streak{Current: 1, Longest: 1, LastCheckIn: at(base), TodayCheckCount: 1},
			transition: TransitionContinued,
		},
		{
			name:       "same calendar day",
			in:         Streak{Current: 4, Longest: 6, LastCheckIn: at(base), TodayCheckCount: 1},
			now:        base.Add(5 * time.Hour),
			want:       Streak{Current: 4, Longest: 6, LastCheckIn: at(base), TodayCheckCount: 2},
			transition: TransitionSameDay,
		},
		{
			name:       "29 hours later",
			in:         Streak{Current: 2, Longest: 2, LastCheckIn: at(base), TodayCheckCount: 3},
			now:        base.Add(29 * time.Hour),
			want:       Streak{Current: 3, Longest: 3, LastCheckIn: at(base.Add(29 * time.Hour)), TodayCheckCount: 1},
			transition: TransitionContinued,
		},
		{
			name:       "exactly at the grace limit",
			in:         Streak{Current: 2, Longest: 9, LastCheckIn: at(base)},
			now:        base.Add(30 * time.Hour),
			want:       Streak{Current: 3, Longest: 9, LastCheckIn: at(base.Add(30 * time.Hour)), TodayCheckCount: 1},
			transition: TransitionContinued,
		},
		{
			name:       "31 hours later breaks the streak",
			in:         Streak{Current: 5, Longest: 8, LastCheckIn: at(base), TodayCheckCount: 2, RedemptionTokens: 1},
			now:        base.Add(31 * time.Hour),
			want:       Streak{Current: 1, Longest: 8, LastCheckIn: at(base.Add(31 * time.Hour)), TodayCheckCount: 1, RedemptionTokens: 1},
			transition: TransitionBroken,
		},
		{
			name:       "clock moved backwards",
			in:         Streak{Current: 3, Longest: 3, LastCheckIn: at(base), TodayCheckCount: 1},
			now:        base.Add(-20 * time.Hour),
			want:       Streak{Current: 3, Longest: 3, LastCheckIn: at(base), TodayCheckCount: 2},
			transition: TransitionSameDay,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, transition := tracker.CheckIn(tt.in, tt.now)
			assert.Equal(t, tt.transition, transition)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStreakTracker_RepeatedSameDayKeepsStreak(t *testing.T) {
	tracker := NewStreakTracker(0, nil)
	s, _ := tracker.CheckIn(Streak{}, base)
	for i := 1; i <= 5; i++ {
		s, _ = tracker.CheckIn(s, base.Add(time.Duration(i)*time.Hour))
	}
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, 6, s.TodayCheckCount)
	assert.Equal(t, base, *s.LastCheckIn)
}

func TestStreakTracker_DayBoundaryUsesLocation(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	// 23:00 and 01:00 the next day in JST, both on March 1st in UTC
	last := time.Date(2026, time.March, 1, 14, 0, 0, 0, time.UTC)
	now := last.Add(2 * time.Hour)
	in := Streak{Current: 1, Longest: 1, LastCheckIn: &last, TodayCheckCount: 1}

	_, transition := NewStreakTracker(DefaultStreakGrace, time.UTC).CheckIn(in, now)
	assert.Equal(t, TransitionSameDay, transition)

	got, transition := NewStreakTracker(DefaultStreakGrace, jst).CheckIn(in, now)
	assert.Equal(t, TransitionContinued, transition)
	assert.Equal(t, 2, got.Current)
}

func TestStreakTracker_Redeem(t *testing.T) {
	tracker := NewStreakTracker(DefaultStreakGrace, time.UTC)
	now := base.Add(10 * time.Hour)

	in := Streak{Current: 2, Longest: 2, LastCheckIn: at(base), TodayCheckCount: 1, RedemptionTokens: 1}
	got, err := tracker.Redeem(in, now)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Current)
	assert.Equal(t, 3, got.Longest)
	assert.Equal(t, 0, got.RedemptionTokens)
	assert.Equal(t, now, *got.LastCheckIn)
	assert.Equal(t, 1, got.TodayCheckCount)
}

func TestStreakTracker_RedeemWithoutTokens(t *testing.T) {
	tracker := NewStreakTracker(DefaultStreakGrace, time.UTC)
	in := Streak{Current: 2, Longest: 4, LastCheckIn: at(base)}

	got, err := tracker.Redeem(in, base.Add(time.Hour))
	assert.ErrorIs(t, err, ErrInsufficientTokens)
	assert.Equal(t, in, got)
}

func TestStreakTracker_LongestNeverDecreases(t *testing.T) {
	tracker := NewStreakTracker(DefaultStreakGrace, time.UTC)
	rng := rand.New(rand.NewSource(7))

	s := Streak{RedemptionTokens: 20}
	now := base
	prevLongest := 0
	for i := 0; i < 500; i++ {
		now = now.Add(time.Duration(rng.Intn(60)) * time.Hour)
		if rng.Intn(10) == 0 {
			var err error
			s, err = tracker.Redeem(s, now)
			if err != nil {
				require.ErrorIs(t, err, ErrInsufficientTokens)
			}
		} else {
			s, _ = tracker.CheckIn(s, now)
		}
		require.GreaterOrEqual(t, s.Longest, prevLongest)
		require.GreaterOrEqual(t, s.Longest, s.Current)
		prevLongest = s.Longest
	}
}

func TestGrantTokens(t *testing.T) {
	s, err := GrantTokens(Streak{RedemptionTokens: 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, s.RedemptionTokens)

	_, err = GrantTokens(s, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
