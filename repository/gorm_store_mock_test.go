package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/practicehub/progression"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

var userColumns = []string{"id", "username", "level", "xp", "coins", "badges"}

func TestGormStore_LocksUserRow(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE `users`.`id` = \\? .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(7, "ada", 3, 40, 20, `["first_steps"]`))
	mock.ExpectCommit()

	var got progression.Progression
	err := NewGormStore(db).Do(context.Background(), 7, func(tx progression.Tx) error {
		var err error
		got, err = tx.LoadProgression(context.Background())
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, progression.Progression{Level: 3, XP: 40, Coins: 20, Badges: []string{"first_steps"}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_MissingUserRollsBack(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `users`").WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectRollback()

	called := false
	err := NewGormStore(db).Do(context.Background(), 9, func(progression.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, progression.ErrNotFound)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_WriteFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	diskFull := errors.New("disk full")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(7, "ada", 1, 0, 0, `[]`))
	mock.ExpectQuery("SELECT `badge_id` FROM `achievements`").WillReturnRows(sqlmock.NewRows([]string{"badge_id"}))
	mock.ExpectExec("INSERT INTO `achievements`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users` SET").WillReturnError(diskFull)
	mock.ExpectRollback()

	e := progression.NewEngine(NewGormStore(db))
	_, err := e.Evaluate(context.Background(), 7, progression.Context{CompletedSessionCount: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}
