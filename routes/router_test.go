package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/practicehub/config"
	"github.com/cppla/practicehub/progression"
	"github.com/cppla/practicehub/repository"
)

func TestMain(m *testing.M) {
	logDir, err := os.MkdirTemp("", "practicehub-routes")
	if err != nil {
		panic(err)
	}
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("REDIS_DISABLED", "true")
	os.Setenv("ADMIN_USERNAMES", "root")
	os.Setenv("GIN_MODE", "test")
	os.Setenv("GIN_PATH", filepath.Join(logDir, "gin.log"))
	os.Setenv("RATE_LIMIT_PER_MINUTE", "1000")
	os.Setenv("METRICS_ENABLED", "true")
	code := m.Run()
	_ = os.RemoveAll(logDir)
	os.Exit(code)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t *testing.T
	h http.Handler
}

func newClient(t *testing.T) *client {
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
	engine := progression.NewEngine(repository.NewGormStore(db))
	return &client{t: t, h: SetupRouter(db, engine)}
}

func (c *client) do(method, path, token string, body interface{}) (int, envelope) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (c *client) register(username string) (string, uint) {
	c.t.Helper()
	code, env := c.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret-123",
	})
	require.Equal(c.t, http.StatusCreated, code, env.Message)
	var data struct {
		Token string `json:"token"`
		User  struct {
			ID uint `json:"id"`
		} `json:"user"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(c.t, data.Token)
	return data.Token, data.User.ID
}

func TestHealthAndNotFound(t *testing.T) {
	c := newClient(t)

	code, env := c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Code)

	code, env = c.do(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 40400, env.Code)
}

func TestAuthFlow(t *testing.T) {
	c := newClient(t)
	token, id := c.register("ada")

	code, env := c.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "ada", "password": "secret-123"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40901, env.Code)

	code, _ = c.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"username": "bo b", "password": "secret-123"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "ada", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = c.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "ada", "password": "secret-123"})
	require.Equal(t, http.StatusOK, code)

	code, env = c.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.EqualValues(t, 1, me["level"])
	assert.EqualValues(t, 100, me["xp_to_next"])
	assert.Equal(t, false, me["is_admin"])
	assert.Contains(t, me, "streak")

	code, env = c.do(http.MethodPatch, "/api/v1/auth/profile", token, gin.H{"bio": "<b>cellist</b>"})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "cellist", me["bio"])

	code, env = c.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%d", id), "", nil)
	require.Equal(t, http.StatusOK, code)
	var public map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &public))
	assert.NotContains(t, public, "email")
	assert.Equal(t, "ada", public["username"])

	code, _ = c.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, 40104, env.Code)
}

func TestPracticeAndStreakThroughRouter(t *testing.T) {
	c := newClient(t)
	token, _ := c.register("ada")

	code, _ := c.do(http.MethodGet, "/api/v1/practice/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := c.do(http.MethodPost, "/api/v1/practice/start", token, gin.H{"skill": "Scales", "duration": 25})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var session struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))

	code, env = c.do(http.MethodPost, fmt.Sprintf("/api/v1/practice/complete/%d", session.ID), token, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodPost, "/api/v1/streak/checkin", token, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodGet, "/api/v1/achievements/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	var unlocks []progression.Unlock
	require.NoError(t, json.Unmarshal(env.Data, &unlocks))
	require.Len(t, unlocks, 1)
	assert.Equal(t, "first_steps", unlocks[0].BadgeID)

	code, env = c.do(http.MethodGet, "/api/v1/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, code)
	var board []repository.LeaderboardEntry
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board, 1)
	assert.Equal(t, 2, board[0].Level)
	assert.Equal(t, 1, board[0].Badges)

	code, _ = c.do(http.MethodGet, "/api/v1/achievements/catalog", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAdminRoutes(t *testing.T) {
	c := newClient(t)
	userToken, userID := c.register("ada")
	rootToken, _ := c.register("root")

	path := fmt.Sprintf("/api/v1/admin/users/%d/tokens", userID)
	code, env := c.do(http.MethodPost, path, userToken, gin.H{"count": 2})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, 40301, env.Code)

	code, env = c.do(http.MethodPost, path, rootToken, gin.H{"count": 2})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = c.do(http.MethodPost, "/api/v1/streak/redeem", userToken, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var res struct {
		Streak struct {
			Current int `json:"current_streak"`
			Tokens  int `json:"redemption_tokens"`
		} `json:"streak"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 1, res.Streak.Current)
	assert.Equal(t, 1, res.Streak.Tokens)
}

func TestMetricsEndpoint(t *testing.T) {
	c := newClient(t)
	c.do(http.MethodGet, "/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "practicehub_http_requests_total")
}
