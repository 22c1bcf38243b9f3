package progression

import (
	"context"
	"time"
)

// Unlock is the durable record that a user earned an achievement.
type Unlock struct {
	UserID      uint      `json:"user_id"`
	BadgeID     string    `json:"badge_id"`
	Type        Type      `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	UnlockedAt  time.Time `json:"date_unlocked"`
}

// Store serializes all mutations of one user's progression, streak and unlocks.
//
// Do runs fn while holding the user's serialization point. Everything fn writes
// through the Tx is committed when fn returns nil and discarded otherwise.
type Store interface {
	Do(ctx context.Context, userID uint, fn func(tx Tx) error) error
}

// Tx is the view of one user's records inside Store.Do.
type Tx interface {
	LoadProgression(ctx context.Context) (Progression, error)
	SaveProgression(ctx context.Context, p Progression) error

	// LoadStreak returns a zero Streak when the user has never checked in.
	LoadStreak(ctx context.Context) (Streak, error)
	SaveStreak(ctx context.Context, s Streak) error

	// TryCreateUnlock inserts u unless the (user, badge) pair exists.
	// created is false on conflict; implementations may also return ErrConflict.
	TryCreateUnlock(ctx context.Context, u Unlock) (created bool, err error)
	UnlockedBadgeIDs(ctx context.Context) (map[string]struct{}, error)
	FindUnlock(ctx context.Context, badgeID string) (Unlock, bool, error)
	ListUnlocks(ctx context.Context) ([]Unlock, error)
}
