package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadJSONConfig_GroupedSections(t *testing.T) {
	path := writeConfig(t, `{
		"app": {"AppPort": "9000", "JWTSecret": "s3cret", "MetricsEnabled": false},
		"database": {"Driver": "sqlite", "SQLitePath": "/tmp/ph.db"},
		"progression": {"StreakGraceHours": 36, "DayBoundaryTimezone": "Asia/Tokyo", "SessionDefaultXP": 15},
		"admin": {"Usernames": ["Root"]}
	}`)

	out := AppConfig{MetricsEnabled: true}
	require.NoError(t, loadJSONConfig(path, &out))
	applyDefaults(&out)

	assert.Equal(t, "9000", out.AppPort)
	assert.Equal(t, "s3cret", out.JWTSecret)
	assert.False(t, out.MetricsEnabled)
	assert.Equal(t, "sqlite", out.StoreDriver)
	assert.Equal(t, "/tmp/ph.db", out.SQLitePath)
	assert.Equal(t, 36*time.Hour, out.StreakGrace())
	assert.Equal(t, 15, out.SessionDefaultXP)
	assert.Equal(t, 1, out.SessionDefaultCoins)
	assert.True(t, out.IsAdmin("root"))
	assert.False(t, out.IsAdmin(""))
}

func TestLoadJSONConfig_MissingFileIsIgnored(t *testing.T) {
	var out AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &out))
}

func TestLoadJSONConfig_InvalidJSON(t *testing.T) {
	var out AppConfig
	assert.Error(t, loadJSONConfig(writeConfig(t, "{not json"), &out))
}

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	assert.Equal(t, "mysql", c.StoreDriver)
	assert.Equal(t, 30*time.Hour, c.StreakGrace())
	assert.Equal(t, time.UTC, c.DayBoundaryLocation())
	assert.Equal(t, 72*time.Hour, c.JWTTTL())
	assert.Equal(t, 10, c.SessionDefaultXP)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("STREAK_GRACE_HOURS", "48")
	t.Setenv("ADMIN_USERNAMES", " alice , ,bob")
	t.Setenv("REDIS_DISABLED", "true")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	assert.Equal(t, "sqlite", c.StoreDriver)
	assert.Equal(t, 48, c.StreakGraceHours)
	assert.Equal(t, []string{"alice", "bob"}, c.AdminUsernames)
	assert.True(t, c.RedisDisabled)
}

func TestDayBoundaryLocation_UnknownFallsBackToUTC(t *testing.T) {
	c := AppConfig{DayBoundaryTimezone: "Mars/Olympus_Mons"}
	assert.Equal(t, time.UTC, c.DayBoundaryLocation())
}
