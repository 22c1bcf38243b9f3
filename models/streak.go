package models

import "time"

// Streak stores one user's check-in streak.
type Streak struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentStreak    int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak    int        `gorm:"not null;default:0" json:"longest_streak"`
	LastCheckIn      *time.Time `json:"last_check_in"`
	TodayCheckCount  int        `gorm:"not null;default:0" json:"today_check_count"`
	RedemptionTokens int        `gorm:"not null;default:0" json:"redemption_tokens"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
