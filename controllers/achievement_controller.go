package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/practicehub/progression"
	"github.com/cppla/practicehub/repository"
	"github.com/cppla/practicehub/utils"
)

// AchievementController exposes the catalog and the caller's unlocks.
type AchievementController struct {
	db     *gorm.DB
	engine *progression.Engine
}

// NewAchievementController creates an AchievementController.
func NewAchievementController(db *gorm.DB, engine *progression.Engine) *AchievementController {
	return &AchievementController{db: db, engine: engine}
}

// Mine lists the caller's unlocked achievements, oldest first.
func (a *AchievementController) Mine(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	unlocks, err := a.engine.Achievements(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressionError(ctx, err, 50020, "failed to load achievements")
		return
	}
	if unlocks == nil {
		unlocks = []progression.Unlock{}
	}
	utils.Success(ctx, unlocks)
}

// Catalog lists every achievement that can be earned.
func (a *AchievementController) Catalog(ctx *gin.Context) {
	defs := a.engine.Catalog().All()
	out := make([]gin.H, 0, len(defs))
	for _, d := range defs {
		out = append(out, gin.H{
			"badge_id":    d.BadgeID,
			"name":        d.Name,
			"description": d.Description,
			"icon":        d.Icon,
			"type":        d.Type,
			"xp_reward":   d.XPReward,
		})
	}
	utils.Success(ctx, out)
}

// Unlock grants a catalog achievement explicitly. xp_reward defaults to the
// catalog reward when omitted. A repeated unlock answers 200 with the stored record.
func (a *AchievementController) Unlock(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req struct {
		BadgeID  string `json:"badge_id" binding:"required"`
		XPReward *int   `json:"xp_reward"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "badge_id is required")
		return
	}
	badgeID := strings.TrimSpace(req.BadgeID)

	def, found := a.engine.Catalog().Lookup(badgeID)
	if !found {
		utils.Error(ctx, http.StatusNotFound, 40421, "achievement not found")
		return
	}
	reward := def.XPReward
	if req.XPReward != nil {
		reward = *req.XPReward
	}
	if reward > progression.MaxAward {
		utils.Error(ctx, http.StatusBadRequest, 40024, fmt.Sprintf("xp_reward must not exceed %d", progression.MaxAward))
		return
	}

	res, err := a.engine.Unlock(ctx.Request.Context(), userID, badgeID, reward)
	if err != nil {
		respondProgressionError(ctx, err, 50021, "failed to unlock achievement")
		return
	}

	payload := gin.H{
		"achievement": res.Unlock,
		"progression": progressionResponse(res.Progression, res.Gain),
	}
	if res.AlreadyUnlocked {
		utils.Respond(ctx, http.StatusOK, 0, "achievement already unlocked", payload)
		return
	}
	utils.InvalidateByPrefix(leaderboardCacheKey)
	utils.Created(ctx, payload)
}

// CheckStreak evaluates the catalog with a streak value reported by the client.
func (a *AchievementController) CheckStreak(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req struct {
		Streak *int `json:"streak"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Streak == nil || *req.Streak == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40022, "current streak is required")
		return
	}
	if *req.Streak < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40023, "streak must not be negative")
		return
	}

	reqCtx := ctx.Request.Context()
	c, err := repository.SessionContext(reqCtx, a.db, userID, *req.Streak)
	if err != nil {
		respondProgressionError(ctx, err, 50022, "failed to evaluate achievements")
		return
	}
	res, err := a.engine.Evaluate(reqCtx, userID, c)
	if err != nil {
		respondProgressionError(ctx, err, 50022, "failed to evaluate achievements")
		return
	}

	message := "no new achievements earned"
	if len(res.Granted) > 0 {
		message = "new achievements earned"
		utils.InvalidateByPrefix(leaderboardCacheKey)
	}
	utils.Respond(ctx, http.StatusOK, 0, message, gin.H{
		"new_achievements": grantsResponse(res.Granted),
		"progression":      progressionResponse(res.Progression, res.Gain),
	})
}
