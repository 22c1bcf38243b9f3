package utils

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("REDIS_DISABLED", "true")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestTokenRoundTripAndRevocation(t *testing.T) {
	token, err := GenerateToken(42, "ada", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	require.NotEmpty(t, claims.ID)

	assert.False(t, IsTokenBlacklisted(claims.ID))
	BlacklistToken(claims.ID, claims.ExpiresAt.Time)
	assert.True(t, IsTokenBlacklisted(claims.ID))
}

func TestParseToken_Expired(t *testing.T) {
	token, err := GenerateToken(1, "ada", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "piano", PlainText("  <script>alert(1)</script><b>piano</b> ", 0))
	assert.Equal(t, "abc", PlainText("abcdef", 3))
}

func TestCacheWithoutRedisIsMiss(t *testing.T) {
	CacheSetJSON("k", map[string]int{"a": 1}, time.Minute)
	var out map[string]int
	assert.False(t, CacheGetJSON("k", &out))
}

func TestRecoveryWithZap(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryWithZap(zap.NewNop(), true))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":50000`)
}

func TestNewRollingFileLogger(t *testing.T) {
	_, err := NewRollingFileLogger("", "info", 1, 1, 1, false)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "gin", "access.log")
	l, err := NewRollingFileLogger(path, "info", 1, 1, 1, false)
	require.NoError(t, err)

	r := gin.New()
	r.Use(Ginzap(l, time.RFC3339, true))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"path":"/ok"`)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("abc-123"))
	assert.ErrorIs(t, ValidatePassword("short"), ErrWeakPassword)
	assert.ErrorIs(t, ValidatePassword("spaces are bad"), ErrWeakPassword)
}
