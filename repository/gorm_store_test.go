package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/cppla/practicehub/config"
	"github.com/cppla/practicehub/models"
	"github.com/cppla/practicehub/progression"
)

var now = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		StoreDriver: "sqlite",
		SQLitePath:  filepath.Join(t.TempDir(), "practicehub.db"),
		LogLevel:    "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Username: name, PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func newEngine(db *gorm.DB, clock *time.Time) *progression.Engine {
	return progression.NewEngine(NewGormStore(db), progression.WithClock(func() time.Time { return *clock }))
}

func TestGormStore_EvaluatePersistsUnlockAndProgression(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := createUser(t, db, "ada")
	clock := now
	e := newEngine(db, &clock)

	res, err := e.Evaluate(ctx, user.ID, progression.Context{CompletedSessionCount: 1})
	require.NoError(t, err)
	require.Len(t, res.Granted, 1)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, 2, stored.Level)
	assert.Equal(t, 0, stored.XP)
	assert.Equal(t, 10, stored.Coins)
	assert.Equal(t, []string{"first_steps"}, stored.Badges)

	var rows []models.Achievement
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "first_steps", rows[0].BadgeID)
	assert.Equal(t, "session", rows[0].Type)
	assert.True(t, rows[0].UnlockedAt.Equal(now))

	again, err := e.Evaluate(ctx, user.ID, progression.Context{CompletedSessionCount: 1})
	require.NoError(t, err)
	assert.Empty(t, again.Granted)
}

func TestGormStore_ConcurrentEvaluateCreatesOneRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := createUser(t, db, "grace")
	clock := now
	e := newEngine(db, &clock)

	var (
		mu      sync.Mutex
		granted int
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			res, err := e.Evaluate(gctx, user.ID, progression.Context{CurrentStreak: 3})
			if err != nil {
				return err
			}
			mu.Lock()
			granted += len(res.Granted)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, granted)

	var count int64
	require.NoError(t, db.Model(&models.Achievement{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	p, err := e.Progress(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 50, p.XP)
}

func TestGormStore_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	clock := now
	_, err := newEngine(db, &clock).CheckIn(context.Background(), 404)
	assert.ErrorIs(t, err, progression.ErrNotFound)
}

func TestGormStore_StreakLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := createUser(t, db, "linus")
	clock := now
	e := newEngine(db, &clock)

	s, err := e.StreakStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, progression.Streak{}, s)

	res, err := e.CheckIn(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Streak.Current)

	clock = clock.Add(24 * time.Hour)
	res, err = e.CheckIn(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, progression.TransitionContinued, res.Transition)
	assert.Equal(t, 2, res.Streak.Current)

	_, err = e.GrantTokens(ctx, user.ID, 2)
	require.NoError(t, err)
	s, err = e.Redeem(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Current)
	assert.Equal(t, 3, s.Longest)
	assert.Equal(t, 1, s.RedemptionTokens)

	var rows []models.Streak
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].CurrentStreak)
	require.NotNil(t, rows[0].LastCheckIn)
	assert.True(t, rows[0].LastCheckIn.Equal(clock))
}

func TestGormStore_FailedUnitOfWorkRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := createUser(t, db, "barbara")
	store := NewGormStore(db)
	boom := errors.New("boom")

	err := store.Do(ctx, user.ID, func(tx progression.Tx) error {
		created, err := tx.TryCreateUnlock(ctx, progression.Unlock{BadgeID: "marathon", Type: progression.TypeTime, UnlockedAt: now})
		require.NoError(t, err)
		require.True(t, created)
		p, _, err := progression.ApplyExperience(progression.NewProgression().WithBadge("marathon"), 300)
		require.NoError(t, err)
		require.NoError(t, tx.SaveProgression(ctx, p))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.Achievement{}).Count(&count).Error)
	assert.Zero(t, count)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, 1, stored.Level)
	assert.Zero(t, stored.XP)
	assert.Empty(t, stored.Badges)
}

func TestGormStore_TryCreateUnlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := createUser(t, db, "ken")
	store := NewGormStore(db)

	u := progression.Unlock{BadgeID: "shutterbug", Type: progression.TypePhoto, UnlockedAt: now}
	err := store.Do(ctx, user.ID, func(tx progression.Tx) error {
		created, err := tx.TryCreateUnlock(ctx, u)
		require.NoError(t, err)
		assert.True(t, created)

		u.UnlockedAt = now.Add(time.Hour)
		created, err = tx.TryCreateUnlock(ctx, u)
		require.NoError(t, err)
		assert.False(t, created)

		found, ok, err := tx.FindUnlock(ctx, "shutterbug")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, found.UnlockedAt.Equal(now))
		assert.Equal(t, user.ID, found.UserID)
		return nil
	})
	require.NoError(t, err)
}

func TestGormStore_ListUnlocksOldestFirst(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := createUser(t, db, "margaret")
	clock := now
	e := newEngine(db, &clock)

	_, err := e.Unlock(ctx, user.ID, "marathon", 300)
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	_, err = e.Unlock(ctx, user.ID, "first_steps", 100)
	require.NoError(t, err)

	list, err := e.Achievements(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "marathon", list[0].BadgeID)
	assert.Equal(t, "first_steps", list[1].BadgeID)
}
