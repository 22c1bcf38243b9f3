package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/practicehub/config"
	"github.com/cppla/practicehub/middleware"
	"github.com/cppla/practicehub/models"
	"github.com/cppla/practicehub/progression"
	"github.com/cppla/practicehub/utils"
)

// AuthController handles account endpoints: registration, login and profile.
type AuthController struct {
	db     *gorm.DB
	engine *progression.Engine
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, engine *progression.Engine) *AuthController {
	return &AuthController{db: db, engine: engine}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
		Confirm  string `json:"confirm"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if l := len([]rune(req.Username)); l < 2 || l > 32 || !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 2-32 letters, digits, '-' or '_'")
		return
	}
	if req.Confirm != "" && req.Confirm != req.Password {
		utils.Error(ctx, http.StatusBadRequest, 40002, "passwords do not match")
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
		return
	}

	var existing models.User
	if err := a.db.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		RegisterIP:   ctx.ClientIP(),
	}
	if err := a.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, config.Get().JWTTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}

	utils.Created(ctx, gin.H{
		"token": token,
		"user":  userResponseWithAdmin(user),
	})
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, config.Get().JWTTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  userResponseWithAdmin(user),
	})
}

// Logout revokes the caller's token until it expires.
func (a *AuthController) Logout(ctx *gin.Context) {
	tokenID := ctx.GetString(middleware.ContextTokenIDKey)
	if tokenID == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid token")
		return
	}
	expiresAt := ctx.GetTime(middleware.ContextTokenExpiryKey)
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(config.Get().JWTTTL())
	}

	utils.BlacklistToken(tokenID, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the caller's profile with streak state.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	streak, err := a.engine.StreakStatus(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressionError(ctx, err, 50010, "failed to load streak")
		return
	}

	payload := userResponseWithAdmin(user)
	payload["streak"] = streakResponse(streak)
	utils.Success(ctx, payload)
}

// UpdateProfile allows the authenticated user to update profile fields. Omitted
// fields are left as they are; an empty string clears a field.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req struct {
		Email      *string `json:"email"`
		Bio        *string `json:"bio"`
		Occupation *string `json:"occupation"`
		Education  *string `json:"education"`
		AvatarURL  *string `json:"avatar_url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		updates["email"] = utils.PlainText(*req.Email, 255)
	}
	if req.Bio != nil {
		updates["bio"] = utils.PlainText(*req.Bio, 1024)
	}
	if req.Occupation != nil {
		updates["occupation"] = utils.PlainText(*req.Occupation, 128)
	}
	if req.Education != nil {
		updates["education"] = utils.PlainText(*req.Education, 128)
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = utils.PlainText(*req.AvatarURL, 512)
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if len(updates) > 0 {
		// profile columns only, never the progression ones
		if err := a.db.Model(&user).Updates(updates).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
			return
		}
		if err := a.db.First(&user, userID).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to reload profile")
			return
		}
		utils.InvalidateByPrefix("cache:user:public:" + strconv.Itoa(int(user.ID)))
		utils.InvalidateByPrefix(leaderboardCacheKey)
	}

	utils.Success(ctx, userResponseWithAdmin(user))
}

// GetUserPublic returns the public profile of a user by ID.
func (a *AuthController) GetUserPublic(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	key := "cache:user:public:" + strconv.FormatUint(uint64(id), 10)
	if b, ok := utils.CacheGetBytes(key); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var user models.User
	if err := a.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to get user")
		return
	}
	payload := userResponse(user)
	delete(payload, "email")
	utils.CacheSetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
	utils.Success(ctx, payload)
}

func validUsername(s string) bool {
	for _, r := range s {
		if r == '-' || r == '_' {
			continue
		}
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		// basic CJK
		if r >= 0x4E00 && r <= 0x9FFF {
			continue
		}
		return false
	}
	return true
}

func userResponse(user models.User) gin.H {
	badges := user.Badges
	if badges == nil {
		badges = []string{}
	}
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"avatar_url": user.AvatarURL,
		"bio":        user.Bio,
		"occupation": user.Occupation,
		"education":  user.Education,
		"level":      user.Level,
		"xp":         user.XP,
		"xp_to_next": progression.LevelThreshold(user.Level) - user.XP,
		"coins":      user.Coins,
		"badges":     badges,
		"created_at": user.CreatedAt,
	}
}

// userResponseWithAdmin includes is_admin for authenticated responses
func userResponseWithAdmin(user models.User) gin.H {
	m := userResponse(user)
	m["is_admin"] = config.Get().IsAdmin(user.Username)
	return m
}
