package models

import "time"

// CheckIn is the append-only log of daily check-ins. The authoritative streak
// lives in Streak; this table feeds activity stats.
type CheckIn struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	CheckedInAt    time.Time `gorm:"index;not null" json:"checked_in_at"`
	Transition     string    `gorm:"size:16" json:"transition"`
	StreakAchieved int       `json:"streak_achieved"`
	CreatedAt      time.Time `json:"created_at"`
}
