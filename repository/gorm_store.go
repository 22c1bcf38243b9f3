// Package repository persists progression state with gorm.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/practicehub/models"
	"github.com/cppla/practicehub/progression"
)

// GormStore implements progression.Store on top of the users, streaks and
// achievements tables. Each unit of work is a database transaction that starts
// by locking the user's row.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Do implements progression.Store.
func (s *GormStore) Do(ctx context.Context, userID uint, fn func(tx progression.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: user %d", progression.ErrNotFound, userID)
			}
			return err
		}
		return fn(&gormTx{db: tx, user: &user})
	})
}

type gormTx struct {
	db     *gorm.DB
	user   *models.User
	streak *models.Streak
}

func (t *gormTx) LoadProgression(context.Context) (progression.Progression, error) {
	badges := make([]string, len(t.user.Badges))
	copy(badges, t.user.Badges)
	return progression.Progression{
		Level:  t.user.Level,
		XP:     t.user.XP,
		Coins:  t.user.Coins,
		Badges: badges,
	}, nil
}

func (t *gormTx) SaveProgression(ctx context.Context, p progression.Progression) error {
	t.user.Level = p.Level
	t.user.XP = p.XP
	t.user.Coins = p.Coins
	t.user.Badges = append([]string{}, p.Badges...)
	return t.db.WithContext(ctx).Model(t.user).
		Select("Level", "XP", "Coins", "Badges", "UpdatedAt").
		Updates(t.user).Error
}

func (t *gormTx) loadStreakRow(ctx context.Context) (*models.Streak, error) {
	if t.streak != nil {
		return t.streak, nil
	}
	var row models.Streak
	err := t.db.WithContext(ctx).Where("user_id = ?", t.user.ID).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.Streak{UserID: t.user.ID}
	case err != nil:
		return nil, err
	}
	t.streak = &row
	return t.streak, nil
}

func (t *gormTx) LoadStreak(ctx context.Context) (progression.Streak, error) {
	row, err := t.loadStreakRow(ctx)
	if err != nil {
		return progression.Streak{}, err
	}
	return streakFromRow(row), nil
}

func (t *gormTx) SaveStreak(ctx context.Context, s progression.Streak) error {
	row, err := t.loadStreakRow(ctx)
	if err != nil {
		return err
	}
	row.CurrentStreak = s.Current
	row.LongestStreak = s.Longest
	row.LastCheckIn = s.LastCheckIn
	row.TodayCheckCount = s.TodayCheckCount
	row.RedemptionTokens = s.RedemptionTokens
	return t.db.WithContext(ctx).Save(row).Error
}

func (t *gormTx) TryCreateUnlock(ctx context.Context, u progression.Unlock) (bool, error) {
	row := achievementRow(t.user.ID, u)
	res := t.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return false, progression.ErrConflict
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (t *gormTx) UnlockedBadgeIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	if err := t.db.WithContext(ctx).Model(&models.Achievement{}).
		Where("user_id = ?", t.user.ID).
		Pluck("badge_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

func (t *gormTx) FindUnlock(ctx context.Context, badgeID string) (progression.Unlock, bool, error) {
	var row models.Achievement
	err := t.db.WithContext(ctx).Where("user_id = ? AND badge_id = ?", t.user.ID, badgeID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return progression.Unlock{}, false, nil
	}
	if err != nil {
		return progression.Unlock{}, false, err
	}
	return unlockFromRow(row), true, nil
}

func (t *gormTx) ListUnlocks(ctx context.Context) ([]progression.Unlock, error) {
	var rows []models.Achievement
	if err := t.db.WithContext(ctx).
		Where("user_id = ?", t.user.ID).
		Order("unlocked_at ASC, badge_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]progression.Unlock, 0, len(rows))
	for _, r := range rows {
		out = append(out, unlockFromRow(r))
	}
	return out, nil
}

func streakFromRow(row *models.Streak) progression.Streak {
	return progression.Streak{
		Current:          row.CurrentStreak,
		Longest:          row.LongestStreak,
		LastCheckIn:      row.LastCheckIn,
		TodayCheckCount:  row.TodayCheckCount,
		RedemptionTokens: row.RedemptionTokens,
	}
}

func achievementRow(userID uint, u progression.Unlock) models.Achievement {
	return models.Achievement{
		UserID:      userID,
		BadgeID:     u.BadgeID,
		Type:        string(u.Type),
		Name:        u.Name,
		Description: u.Description,
		Icon:        u.Icon,
		UnlockedAt:  u.UnlockedAt,
	}
}

func unlockFromRow(row models.Achievement) progression.Unlock {
	return progression.Unlock{
		UserID:      row.UserID,
		BadgeID:     row.BadgeID,
		Type:        progression.Type(row.Type),
		Name:        row.Name,
		Description: row.Description,
		Icon:        row.Icon,
		UnlockedAt:  row.UnlockedAt,
	}
}
