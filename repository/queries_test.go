package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/practicehub/models"
)

func TestSessionContext(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "ada")
	other := createUser(t, db, "bob")

	sessions := []models.PracticeSession{
		{UserID: user.ID, Skill: "piano", Duration: 30, Status: models.SessionCompleted},
		{UserID: user.ID, Skill: "piano", Duration: 45, Status: models.SessionCompleted, Photo: "p.jpg"},
		{UserID: user.ID, Skill: "piano", Duration: 60, Status: models.SessionActive},
		{UserID: other.ID, Skill: "chess", Duration: 90, Status: models.SessionCompleted},
	}
	require.NoError(t, db.Create(&sessions).Error)

	c, err := SessionContext(context.Background(), db, user.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, c.CompletedSessionCount)
	assert.Equal(t, 1, c.PhotoSessionCount)
	assert.Equal(t, 75, c.TotalPracticeMinutes)
	assert.Equal(t, 4, c.CurrentStreak)
	assert.Zero(t, c.Level)
}

func TestLeaderboard(t *testing.T) {
	db := newTestDB(t)
	users := []models.User{
		{Username: "low", Level: 1, XP: 50},
		{Username: "high", Level: 4, XP: 10, Badges: []string{"a", "b"}},
		{Username: "mid", Level: 4, XP: 5},
	}
	require.NoError(t, db.Create(&users).Error)

	board, err := Leaderboard(context.Background(), db, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "high", board[0].Username)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 2, board[0].Badges)
	assert.Equal(t, "mid", board[1].Username)
}

func TestLoadStats(t *testing.T) {
	db := newTestDB(t)
	a := createUser(t, db, "ada")
	b := createUser(t, db, "bob")
	day := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&[]models.CheckIn{
		{UserID: a.ID, CheckedInAt: day.Add(time.Hour)},
		{UserID: a.ID, CheckedInAt: day.Add(2 * time.Hour)},
		{UserID: b.ID, CheckedInAt: day.Add(-time.Hour)},
	}).Error)
	require.NoError(t, db.Create(&models.PracticeSession{UserID: a.ID, Skill: "go", Status: models.SessionCompleted}).Error)

	s := LoadStats(context.Background(), db, day)
	assert.EqualValues(t, 2, s.UserCount)
	assert.EqualValues(t, 1, s.SessionCount)
	assert.EqualValues(t, 0, s.UnlockCount)
	assert.EqualValues(t, 1, s.DailyActiveCount)
}
