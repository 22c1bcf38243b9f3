package models

import "time"

const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// PracticeSession is one block of practice on a skill. Duration is in minutes.
type PracticeSession struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"user_id"`
	Skill       string     `gorm:"size:128;not null" json:"skill"`
	Category    string     `gorm:"size:64;default:general" json:"category"`
	Priority    string     `gorm:"size:16;default:medium" json:"priority"`
	Duration    int        `gorm:"not null;default:0" json:"duration"`
	Status      string     `gorm:"size:16;index;not null" json:"status"`
	Notes       string     `gorm:"size:1024" json:"notes"`
	Photo       string     `gorm:"size:512" json:"photo,omitempty"`
	XPEarned    int        `gorm:"column:xp_earned" json:"xp_earned"`
	CoinsEarned int        `json:"coins_earned"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
