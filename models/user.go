package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a practitioner account. Passwords are stored as bcrypt hashes only.
// Level, XP, Coins and Badges are owned by the progression engine and must
// only be written through it.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string         `gorm:"size:255" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	RegisterIP   string         `gorm:"size:45" json:"register_ip"`
	AvatarURL    string         `gorm:"size:512" json:"avatar_url"`
	Bio          string         `gorm:"size:1024" json:"bio"`
	Occupation   string         `gorm:"size:128" json:"occupation"`
	Education    string         `gorm:"size:128" json:"education"`
	Level        int            `gorm:"not null;default:1" json:"level"`
	XP           int            `gorm:"column:xp;not null;default:0" json:"xp"`
	Coins        int            `gorm:"not null;default:0" json:"coins"`
	Badges       []string       `gorm:"type:text;serializer:json" json:"badges"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps and the starting progression are set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Level < 1 {
		u.Level = 1
	}
	if u.Badges == nil {
		u.Badges = []string{}
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
