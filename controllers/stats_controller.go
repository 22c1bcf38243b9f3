package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/practicehub/config"
	"github.com/cppla/practicehub/repository"
	"github.com/cppla/practicehub/utils"
)

const (
	statsCacheKey       = "cache:stats"
	leaderboardCacheKey = "cache:leaderboard"
)

// StatsController provides service statistics and the public leaderboard.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics. Daily active counts distinct users who
// checked in since the start of the configured day.
func (s *StatsController) GetStats(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(statsCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	cfg := config.Get()
	stats := repository.LoadStats(ctx.Request.Context(), s.db, dayStart(time.Now(), cfg.DayBoundaryLocation()))

	utils.CacheSetJSON(statsCacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: stats}, time.Minute)
	utils.Success(ctx, stats)
}

// Leaderboard returns the top users by level, then XP. ?limit= caps the list at
// the configured size.
func (s *StatsController) Leaderboard(ctx *gin.Context) {
	cfg := config.Get()
	limit := cfg.LeaderboardSize
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.Error(ctx, http.StatusBadRequest, 40070, "invalid limit")
			return
		}
		limit = min(n, cfg.LeaderboardSize)
	}

	key := leaderboardCacheKey + ":" + strconv.Itoa(limit)
	if b, ok := utils.CacheGetBytes(key); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	entries, err := repository.Leaderboard(ctx.Request.Context(), s.db, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load leaderboard")
		return
	}

	ttl := time.Duration(cfg.LeaderboardCacheSeconds) * time.Second
	utils.CacheSetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: entries}, ttl)
	utils.Success(ctx, entries)
}
