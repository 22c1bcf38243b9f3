package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/practicehub/models"
	"github.com/cppla/practicehub/progression"
	"github.com/cppla/practicehub/repository"
	"github.com/cppla/practicehub/utils"
)

// StreakController handles daily check-in endpoints.
type StreakController struct {
	db     *gorm.DB
	engine *progression.Engine
}

// NewStreakController creates a new controller instance.
func NewStreakController(db *gorm.DB, engine *progression.Engine) *StreakController {
	return &StreakController{db: db, engine: engine}
}

// Status returns the caller's streak. A user who never checked in gets a zero streak.
func (s *StreakController) Status(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	streak, err := s.engine.StreakStatus(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressionError(ctx, err, 50040, "failed to load streak")
		return
	}
	utils.Success(ctx, streakResponse(streak))
}

// CheckIn records a daily check-in, updates the streak and grants any streak
// achievement the new value reaches.
func (s *StreakController) CheckIn(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	reqCtx := ctx.Request.Context()

	res, err := s.engine.CheckIn(reqCtx, userID)
	if err != nil {
		respondProgressionError(ctx, err, 50041, "failed to check in")
		return
	}

	record := models.CheckIn{
		UserID:         userID,
		CheckedInAt:    time.Now().UTC(),
		Transition:     string(res.Transition),
		StreakAchieved: res.Streak.Current,
	}
	if err := s.db.WithContext(reqCtx).Create(&record).Error; err != nil {
		utils.Logger.Warn("check-in log write failed", zap.Uint("user_id", userID), zap.Error(err))
	}

	granted := s.evaluateAfterStreakChange(ctx, userID, res.Streak.Current)

	utils.Success(ctx, gin.H{
		"streak":           streakResponse(res.Streak),
		"transition":       res.Transition,
		"new_achievements": grantsResponse(granted),
	})
}

// Redeem spends one redemption token to extend the streak by a day.
func (s *StreakController) Redeem(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	streak, err := s.engine.Redeem(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressionError(ctx, err, 50042, "failed to redeem token")
		return
	}

	granted := s.evaluateAfterStreakChange(ctx, userID, streak.Current)

	utils.Success(ctx, gin.H{
		"streak":           streakResponse(streak),
		"new_achievements": grantsResponse(granted),
	})
}

// evaluateAfterStreakChange runs the catalog once the streak change has been
// committed. Failures are logged; the streak change stands either way.
func (s *StreakController) evaluateAfterStreakChange(ctx *gin.Context, userID uint, current int) []progression.Grant {
	reqCtx := ctx.Request.Context()
	c, err := repository.SessionContext(reqCtx, s.db, userID, current)
	if err == nil {
		var res progression.EvaluateResult
		res, err = s.engine.Evaluate(reqCtx, userID, c)
		if err == nil {
			if len(res.Granted) > 0 {
				utils.InvalidateByPrefix(leaderboardCacheKey)
			}
			return res.Granted
		}
	}
	utils.Logger.Error("achievement evaluation after streak change failed",
		zap.Uint("user_id", userID),
		zap.String("request_id", ctx.GetString(utils.RequestIDKey)),
		zap.Error(err))
	return nil
}
