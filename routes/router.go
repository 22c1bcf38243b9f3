package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/practicehub/config"
	"github.com/cppla/practicehub/controllers"
	"github.com/cppla/practicehub/metrics"
	"github.com/cppla/practicehub/middleware"
	"github.com/cppla/practicehub/progression"
	"github.com/cppla/practicehub/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, engine *progression.Engine) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db, engine)
	practiceController := controllers.NewPracticeController(db, engine)
	streakController := controllers.NewStreakController(db, engine)
	achievementController := controllers.NewAchievementController(db, engine)
	adminController := controllers.NewAdminController(engine)
	statsController := controllers.NewStatsController(db)

	limit := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)
	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(limit)
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	// Public endpoints
	api.GET("/stats", statsController.GetStats)
	api.GET("/leaderboard", statsController.Leaderboard)
	api.GET("/users/:id", authController.GetUserPublic)
	api.GET("/achievements/catalog", achievementController.Catalog)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), limit)

	practice := protected.Group("/practice")
	practice.POST("/start", practiceController.Start)
	practice.POST("/complete/:id", practiceController.Complete)
	practice.POST("/sessions", practiceController.SaveSession)
	practice.GET("/history", practiceController.History)
	practice.GET("/photos", practiceController.Photos)

	streak := protected.Group("/streak")
	streak.GET("/me", streakController.Status)
	streak.POST("/checkin", streakController.CheckIn)
	streak.POST("/redeem", streakController.Redeem)

	achievements := protected.Group("/achievements")
	achievements.GET("/me", achievementController.Mine)
	achievements.POST("", achievementController.Unlock)
	achievements.POST("/check-streak", achievementController.CheckStreak)

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminRequired())
	admin.POST("/users/:id/tokens", adminController.GrantTokens)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
