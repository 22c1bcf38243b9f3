package models

import "time"

// Achievement is an unlock record. A user holds each badge at most once,
// enforced by idx_achievements_user_badge.
type Achievement struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_achievements_user_badge" json:"user_id"`
	BadgeID     string    `gorm:"size:64;not null;uniqueIndex:idx_achievements_user_badge" json:"badge_id"`
	Type        string    `gorm:"size:16;not null" json:"type"`
	Name        string    `gorm:"size:128" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	Icon        string    `gorm:"size:64" json:"icon"`
	UnlockedAt  time.Time `gorm:"index;not null" json:"date_unlocked"`
	CreatedAt   time.Time `json:"created_at"`
}
