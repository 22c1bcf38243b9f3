// Package progression implements the gamification rules of practicehub: the
// experience ledger, the daily streak tracker, the achievement catalog and the
// unlock engine that ties them to a per-user store.
package progression

import (
	"fmt"
	"math"
)

const (
	// ExperiencePerLevel is multiplied by the current level to get the threshold for the next one.
	ExperiencePerLevel = 100

	// LevelUpCoinBonus is paid once for every level gained.
	LevelUpCoinBonus = 10

	// MaxAward caps the XP or coins a single ledger operation may credit.
	MaxAward = 1_000_000
)

// Progression is the experience, level and coin balance of one user.
type Progression struct {
	Level  int      `json:"level"`
	XP     int      `json:"xp"`
	Coins  int      `json:"coins"`
	Badges []string `json:"badges"`
}

// LevelGain reports what a ledger operation changed.
type LevelGain struct {
	LevelsGained int `json:"levels_gained"`
	CoinsGained  int `json:"coins_gained"`
}

// NewProgression returns the state of a user who has never earned anything.
func NewProgression() Progression {
	return Progression{Level: 1, Badges: []string{}}
}

// LevelThreshold is the XP needed to go from level to level+1.
func LevelThreshold(level int) int {
	return level * ExperiencePerLevel
}

// HasBadge reports whether badgeID is in the badge collection.
func (p Progression) HasBadge(badgeID string) bool {
	for _, b := range p.Badges {
		if b == badgeID {
			return true
		}
	}
	return false
}

// WithBadge returns p with badgeID added to the collection. The collection is a set.
func (p Progression) WithBadge(badgeID string) Progression {
	if p.HasBadge(badgeID) {
		return p
	}
	badges := make([]string, 0, len(p.Badges)+1)
	badges = append(badges, p.Badges...)
	p.Badges = append(badges, badgeID)
	return p
}

func (p Progression) validate() error {
	if p.Level < 1 {
		return fmt.Errorf("%w: level %d is below 1", ErrInvalidArgument, p.Level)
	}
	if p.XP < 0 {
		return fmt.Errorf("%w: negative xp %d", ErrInvalidArgument, p.XP)
	}
	if p.Coins < 0 {
		return fmt.Errorf("%w: negative coin balance %d", ErrInvalidArgument, p.Coins)
	}
	return nil
}

// ApplyExperience adds delta XP and levels up as many times as the result allows.
// Every level costs level*100 XP and pays LevelUpCoinBonus coins. The returned
// state always satisfies XP < LevelThreshold(Level). Deltas above MaxAward and
// results that would overflow int are rejected and leave p as it was.
func ApplyExperience(p Progression, delta int) (Progression, LevelGain, error) {
	if delta < 0 {
		return p, LevelGain{}, fmt.Errorf("%w: experience delta %d is negative", ErrInvalidArgument, delta)
	}
	if delta > MaxAward {
		return p, LevelGain{}, fmt.Errorf("%w: experience delta %d exceeds %d", ErrInvalidArgument, delta, MaxAward)
	}
	if err := p.validate(); err != nil {
		return p, LevelGain{}, err
	}
	if delta > math.MaxInt-p.XP {
		return p, LevelGain{}, fmt.Errorf("%w: experience %d + %d overflows", ErrInvalidArgument, p.XP, delta)
	}

	start := p
	var gain LevelGain
	p.XP += delta
	for p.XP >= LevelThreshold(p.Level) {
		if p.Coins > math.MaxInt-LevelUpCoinBonus || p.Level >= math.MaxInt/ExperiencePerLevel {
			return start, LevelGain{}, fmt.Errorf("%w: level-up overflows the ledger", ErrInvalidArgument)
		}
		p.XP -= LevelThreshold(p.Level)
		p.Level++
		p.Coins += LevelUpCoinBonus
		gain.LevelsGained++
		gain.CoinsGained += LevelUpCoinBonus
	}
	return p, gain, nil
}

// AwardCoins credits coins earned outside of leveling, such as a completed session.
func AwardCoins(p Progression, coins int) (Progression, error) {
	if coins < 0 {
		return p, fmt.Errorf("%w: coin award %d is negative", ErrInvalidArgument, coins)
	}
	if coins > MaxAward {
		return p, fmt.Errorf("%w: coin award %d exceeds %d", ErrInvalidArgument, coins, MaxAward)
	}
	if err := p.validate(); err != nil {
		return p, err
	}
	if coins > math.MaxInt-p.Coins {
		return p, fmt.Errorf("%w: coin balance %d + %d overflows", ErrInvalidArgument, p.Coins, coins)
	}
	p.Coins += coins
	return p, nil
}
