package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/practicehub/progression"
	"github.com/cppla/practicehub/utils"
)

// AdminController holds operator endpoints.
type AdminController struct {
	engine *progression.Engine
}

// NewAdminController creates an AdminController.
func NewAdminController(engine *progression.Engine) *AdminController {
	return &AdminController{engine: engine}
}

// GrantTokens adds streak redemption tokens to a user.
func (a *AdminController) GrantTokens(ctx *gin.Context) {
	targetID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req struct {
		Count int `json:"count" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Count <= 0 {
		utils.Error(ctx, http.StatusBadRequest, 40080, "count must be a positive integer")
		return
	}

	streak, err := a.engine.GrantTokens(ctx.Request.Context(), targetID, req.Count)
	if err != nil {
		respondProgressionError(ctx, err, 50080, "failed to grant tokens")
		return
	}

	adminID, _ := getUserID(ctx)
	utils.Logger.Info("redemption tokens granted",
		zap.Uint("admin_id", adminID),
		zap.Uint("user_id", targetID),
		zap.Int("count", req.Count))
	utils.Success(ctx, streakResponse(streak))
}
