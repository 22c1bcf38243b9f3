package controllers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/practicehub/config"
	"github.com/cppla/practicehub/models"
	"github.com/cppla/practicehub/progression"
	"github.com/cppla/practicehub/utils"
)

// PracticeController handles practice session endpoints.
type PracticeController struct {
	db     *gorm.DB
	engine *progression.Engine
}

// NewPracticeController creates a new PracticeController.
func NewPracticeController(db *gorm.DB, engine *progression.Engine) *PracticeController {
	return &PracticeController{db: db, engine: engine}
}

const (
	photoURLPrefix = "/uploads/photos/"
	maxNotesRunes  = 1024
)

func normalizeSkill(raw string) string {
	return utils.PlainText(strings.TrimSpace(raw), 128)
}

// sanitizeNotes keeps safe markup in notes and rejects notes over the column size.
func sanitizeNotes(raw string) (string, bool) {
	notes := strings.TrimSpace(utils.Sanitize(raw))
	return notes, utf8.RuneCountInString(notes) <= maxNotesRunes
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func photoURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	name := path.Base(raw)
	if name == "." || name == "/" {
		return ""
	}
	return photoURLPrefix + name
}

// Start opens a practice session on a skill.
func (p *PracticeController) Start(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req struct {
		Skill    string `json:"skill" binding:"required"`
		Duration int    `json:"duration" binding:"required"`
		Category string `json:"category"`
		Priority string `json:"priority"`
		Notes    string `json:"notes"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "skill and duration are required")
		return
	}
	skill := normalizeSkill(req.Skill)
	if skill == "" || req.Duration <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40011, "skill must be non-empty and duration positive")
		return
	}
	notes, ok := sanitizeNotes(req.Notes)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40015, "notes are too long")
		return
	}

	session := models.PracticeSession{
		UserID:    userID,
		Skill:     skill,
		Category:  orDefault(utils.PlainText(req.Category, 64), "general"),
		Priority:  orDefault(utils.PlainText(req.Priority, 16), "medium"),
		Duration:  req.Duration,
		Status:    models.SessionActive,
		Notes:     notes,
		StartedAt: time.Now(),
	}
	if err := p.db.WithContext(ctx.Request.Context()).Create(&session).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to start session")
		return
	}
	utils.Created(ctx, session)
}

// Complete finishes an active session, pays its XP and coins and grants any
// achievement the new totals reach.
func (p *PracticeController) Complete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req struct {
		XPEarned    *int   `json:"xp_earned"`
		CoinsEarned *int   `json:"coins_earned"`
		Photo       string `json:"photo"`
	}
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40012, "invalid request payload")
			return
		}
	}

	cfg := config.Get()
	reward := progression.SessionReward{XP: cfg.SessionDefaultXP, Coins: cfg.SessionDefaultCoins}
	if req.XPEarned != nil && *req.XPEarned != 0 {
		reward.XP = *req.XPEarned
	}
	if req.CoinsEarned != nil && *req.CoinsEarned != 0 {
		reward.Coins = *req.CoinsEarned
	}
	if !validReward(reward) {
		utils.Error(ctx, http.StatusBadRequest, 40013, rewardRangeMessage)
		return
	}

	reqCtx := ctx.Request.Context()
	var session models.PracticeSession
	if err := p.db.WithContext(reqCtx).Where("id = ? AND user_id = ?", id, userID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40411, "session not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to load session")
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.SessionCompleted,
		"completed_at": now,
		"xp_earned":    reward.XP,
		"coins_earned": reward.Coins,
	}
	if u := photoURL(req.Photo); u != "" {
		updates["photo"] = u
	}
	// the status guard makes completion single-shot under concurrent requests
	result := p.db.WithContext(reqCtx).Model(&models.PracticeSession{}).
		Where("id = ? AND status = ?", session.ID, models.SessionActive).
		Updates(updates)
	if result.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to complete session")
		return
	}
	if result.RowsAffected == 0 {
		utils.Error(ctx, http.StatusConflict, 40910, "session already completed")
		return
	}

	res, err := p.recordSession(reqCtx, userID, reward)
	if err != nil {
		revert := map[string]interface{}{
			"status":       models.SessionActive,
			"completed_at": nil,
			"xp_earned":    0,
			"coins_earned": 0,
			"photo":        session.Photo,
		}
		if rerr := p.db.WithContext(context.Background()).Model(&models.PracticeSession{}).
			Where("id = ?", session.ID).Updates(revert).Error; rerr != nil {
			utils.Logger.Error("revert session completion failed", zap.Uint("session_id", session.ID), zap.Error(rerr))
		}
		respondProgressionError(ctx, err, 50014, "failed to record session rewards")
		return
	}

	if err := p.db.WithContext(reqCtx).First(&session, session.ID).Error; err != nil {
		utils.Logger.Warn("reload completed session failed", zap.Uint("session_id", session.ID), zap.Error(err))
	}
	utils.InvalidateByPrefix(leaderboardCacheKey)
	utils.Success(ctx, gin.H{
		"session":          session,
		"progression":      progressionResponse(res.Progression, res.Gain),
		"new_achievements": grantsResponse(res.Granted),
	})
}

// SaveSession records a session that was practiced offline and is already
// finished. Rewards default to one XP per five minutes and one coin per ten.
func (p *PracticeController) SaveSession(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req struct {
		Skill       string     `json:"skill" binding:"required"`
		Category    string     `json:"category"`
		Priority    string     `json:"priority"`
		Duration    int        `json:"duration" binding:"required"`
		StartedAt   *time.Time `json:"started_at"`
		EndedAt     *time.Time `json:"ended_at"`
		XPEarned    *int       `json:"xp_earned"`
		CoinsEarned *int       `json:"coins_earned"`
		Notes       string     `json:"notes"`
		Image       string     `json:"image"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40014, "skill and duration are required")
		return
	}
	skill := normalizeSkill(req.Skill)
	if skill == "" || req.Duration <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40011, "skill must be non-empty and duration positive")
		return
	}
	notes, ok := sanitizeNotes(req.Notes)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40015, "notes are too long")
		return
	}

	reward := progression.SessionReward{
		XP:    int(math.Round(float64(req.Duration) / 5)),
		Coins: int(math.Round(float64(req.Duration) / 10)),
	}
	if req.XPEarned != nil && *req.XPEarned != 0 {
		reward.XP = *req.XPEarned
	}
	if req.CoinsEarned != nil && *req.CoinsEarned != 0 {
		reward.Coins = *req.CoinsEarned
	}
	if !validReward(reward) {
		utils.Error(ctx, http.StatusBadRequest, 40013, rewardRangeMessage)
		return
	}

	endedAt := time.Now()
	if req.EndedAt != nil {
		endedAt = *req.EndedAt
	}
	startedAt := endedAt.Add(-time.Duration(req.Duration) * time.Minute)
	if req.StartedAt != nil {
		startedAt = *req.StartedAt
	}

	session := models.PracticeSession{
		UserID:      userID,
		Skill:       skill,
		Category:    orDefault(utils.PlainText(req.Category, 64), "general"),
		Priority:    orDefault(utils.PlainText(req.Priority, 16), "medium"),
		Duration:    req.Duration,
		Status:      models.SessionCompleted,
		Notes:       notes,
		Photo:       photoURL(req.Image),
		XPEarned:    reward.XP,
		CoinsEarned: reward.Coins,
		StartedAt:   startedAt,
		CompletedAt: &endedAt,
	}
	reqCtx := ctx.Request.Context()
	if err := p.db.WithContext(reqCtx).Create(&session).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to save session")
		return
	}

	res, err := p.recordSession(reqCtx, userID, reward)
	if err != nil {
		if derr := p.db.WithContext(context.Background()).Delete(&models.PracticeSession{}, session.ID).Error; derr != nil {
			utils.Logger.Error("remove unrewarded session failed", zap.Uint("session_id", session.ID), zap.Error(derr))
		}
		respondProgressionError(ctx, err, 50014, "failed to record session rewards")
		return
	}

	utils.InvalidateByPrefix(leaderboardCacheKey)
	utils.Created(ctx, gin.H{
		"session":          session,
		"progression":      progressionResponse(res.Progression, res.Gain),
		"new_achievements": grantsResponse(res.Granted),
	})
}

// recordSession pays reward and evaluates the catalog against the user's
// completed sessions, which already include the one being recorded.
func (p *PracticeController) recordSession(ctx context.Context, userID uint, reward progression.SessionReward) (progression.SessionResult, error) {
	c, err := evaluationContext(ctx, p.db, p.engine, userID)
	if err != nil {
		return progression.SessionResult{}, err
	}
	return p.engine.RecordSession(ctx, userID, reward, c)
}

// History lists the caller's sessions, newest first. Durations are reported in seconds.
func (p *PracticeController) History(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var sessions []models.PracticeSession
	if err := p.db.WithContext(ctx.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&sessions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to load history")
		return
	}

	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		progress := 0
		if s.Status == models.SessionCompleted {
			progress = 100
		}
		out = append(out, gin.H{
			"id":           s.ID,
			"skill":        s.Skill,
			"label":        s.Skill,
			"name":         s.Skill,
			"category":     s.Category,
			"priority":     s.Priority,
			"status":       s.Status,
			"duration":     s.Duration * 60,
			"progress":     progress,
			"notes":        s.Notes,
			"photo":        s.Photo,
			"xp_earned":    s.XPEarned,
			"coins_earned": s.CoinsEarned,
			"started_at":   s.StartedAt,
			"completed_at": s.CompletedAt,
			"created_at":   s.CreatedAt,
		})
	}
	utils.Success(ctx, out)
}

// Photos lists the photos attached to completed sessions, newest first.
func (p *PracticeController) Photos(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var sessions []models.PracticeSession
	if err := p.db.WithContext(ctx.Request.Context()).
		Where("user_id = ? AND status = ? AND photo <> ''", userID, models.SessionCompleted).
		Order("completed_at DESC, id DESC").
		Find(&sessions).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50017, "failed to load photos")
		return
	}

	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, gin.H{
			"id":         s.ID,
			"url":        s.Photo,
			"skill_name": s.Skill,
			"task_name":  s.Skill,
			"date":       s.CompletedAt,
		})
	}
	utils.Success(ctx, out)
}

var rewardRangeMessage = fmt.Sprintf("rewards must be between 0 and %d", progression.MaxAward)

func validReward(r progression.SessionReward) bool {
	return r.XP >= 0 && r.Coins >= 0 && r.XP <= progression.MaxAward && r.Coins <= progression.MaxAward
}
