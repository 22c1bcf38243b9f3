package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/practicehub/middleware"
	"github.com/cppla/practicehub/progression"
	"github.com/cppla/practicehub/repository"
	"github.com/cppla/practicehub/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// requireUser writes 401 and returns false when the request carries no user.
func requireUser(ctx *gin.Context) (uint, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return userID, ok
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// respondProgressionError maps engine errors onto the API envelope. Anything
// unrecognised is logged and answered with 500 and fallbackCode.
func respondProgressionError(ctx *gin.Context, err error, fallbackCode int, fallbackMsg string) {
	switch {
	case errors.Is(err, progression.ErrInsufficientTokens):
		utils.Error(ctx, http.StatusBadRequest, 40060, "no redemption tokens left")
	case errors.Is(err, progression.ErrInvalidArgument):
		utils.Error(ctx, http.StatusBadRequest, 40020, err.Error())
	case errors.Is(err, progression.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40420, err.Error())
	case errors.Is(err, context.Canceled):
		utils.Error(ctx, 499, 49900, "request canceled")
	default:
		uid, _ := getUserID(ctx)
		utils.Logger.Error(fallbackMsg,
			zap.Uint("user_id", uid),
			zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
			zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, fallbackCode, fallbackMsg)
	}
}

// evaluationContext builds a full evaluation context for the user from their
// practice history and stored streak.
func evaluationContext(ctx context.Context, db *gorm.DB, engine *progression.Engine, userID uint) (progression.Context, error) {
	streak, err := engine.StreakStatus(ctx, userID)
	if err != nil {
		return progression.Context{}, err
	}
	return repository.SessionContext(ctx, db, userID, streak.Current)
}

func dayStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

type grantResponse struct {
	BadgeID     string    `json:"badge_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Type        string    `json:"type"`
	XPReward    int       `json:"xp_reward"`
	UnlockedAt  time.Time `json:"date_unlocked"`
}

func grantsResponse(grants []progression.Grant) []grantResponse {
	out := make([]grantResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, grantResponse{
			BadgeID:     g.Unlock.BadgeID,
			Name:        g.Unlock.Name,
			Description: g.Unlock.Description,
			Icon:        g.Unlock.Icon,
			Type:        string(g.Unlock.Type),
			XPReward:    g.XPReward,
			UnlockedAt:  g.Unlock.UnlockedAt,
		})
	}
	return out
}

func streakResponse(s progression.Streak) gin.H {
	return gin.H{
		"current_streak":    s.Current,
		"longest_streak":    s.Longest,
		"last_check_in":     s.LastCheckIn,
		"today_check_count": s.TodayCheckCount,
		"redemption_tokens": s.RedemptionTokens,
	}
}

func progressionResponse(p progression.Progression, gain progression.LevelGain) gin.H {
	return gin.H{
		"level":         p.Level,
		"xp":            p.XP,
		"xp_to_next":    progression.LevelThreshold(p.Level) - p.XP,
		"coins":         p.Coins,
		"badges":        p.Badges,
		"levels_gained": gain.LevelsGained,
		"coins_gained":  gain.CoinsGained,
	}
}
