package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/practicehub/models"
	"github.com/cppla/practicehub/progression"
)

// SessionContext counts a user's completed practice sessions into an
// evaluation context. Level is left for the engine to fill in.
func SessionContext(ctx context.Context, db *gorm.DB, userID uint, currentStreak int) (progression.Context, error) {
	var agg struct {
		Sessions int64
		Photos   int64
		Minutes  int64
	}
	err := db.WithContext(ctx).Model(&models.PracticeSession{}).
		Select("COUNT(*) AS sessions, "+
			"COALESCE(SUM(CASE WHEN photo <> '' THEN 1 ELSE 0 END),0) AS photos, "+
			"COALESCE(SUM(duration),0) AS minutes").
		Where("user_id = ? AND status = ?", userID, models.SessionCompleted).
		Scan(&agg).Error
	if err != nil {
		return progression.Context{}, err
	}
	return progression.Context{
		CompletedSessionCount: int(agg.Sessions),
		PhotoSessionCount:     int(agg.Photos),
		TotalPracticeMinutes:  int(agg.Minutes),
		CurrentStreak:         currentStreak,
	}, nil
}

// LeaderboardEntry is one row of the public ranking.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Level     int    `json:"level"`
	XP        int    `json:"xp"`
	Badges    int    `json:"badge_count"`
}

// Leaderboard ranks users by level, then XP, then earliest sign-up.
func Leaderboard(ctx context.Context, db *gorm.DB, limit int) ([]LeaderboardEntry, error) {
	var users []models.User
	if err := db.WithContext(ctx).
		Select("id", "username", "avatar_url", "level", "xp", "badges").
		Order("level DESC, xp DESC, id ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		out = append(out, LeaderboardEntry{
			Rank:      i + 1,
			UserID:    u.ID,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			Level:     u.Level,
			XP:        u.XP,
			Badges:    len(u.Badges),
		})
	}
	return out, nil
}

// Stats are service-wide aggregate counters.
type Stats struct {
	UserCount        int64 `json:"user_count"`
	SessionCount     int64 `json:"session_count"`
	UnlockCount      int64 `json:"achievement_count"`
	DailyActiveCount int64 `json:"daily_active_count"`
}

// LoadStats counts users, completed sessions, unlocks and distinct users who
// checked in since dayStart. Individual failures degrade to zero.
func LoadStats(ctx context.Context, db *gorm.DB, dayStart time.Time) Stats {
	var s Stats
	db = db.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&s.UserCount).Error; err != nil {
		s.UserCount = 0
	}
	if err := db.Model(&models.PracticeSession{}).Where("status = ?", models.SessionCompleted).Count(&s.SessionCount).Error; err != nil {
		s.SessionCount = 0
	}
	if err := db.Model(&models.Achievement{}).Count(&s.UnlockCount).Error; err != nil {
		s.UnlockCount = 0
	}
	if err := db.Model(&models.CheckIn{}).
		Where("checked_in_at >= ?", dayStart).
		Distinct("user_id").
		Count(&s.DailyActiveCount).Error; err != nil {
		s.DailyActiveCount = 0
	}
	return s
}
