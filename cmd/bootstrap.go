package cmd

import (
	"gorm.io/gorm"

	"github.com/cppla/practicehub/config"
	"github.com/cppla/practicehub/metrics"
	"github.com/cppla/practicehub/progression"
	"github.com/cppla/practicehub/repository"
	"github.com/cppla/practicehub/utils"
)

// bootstrap loads configuration, the logger and the migrated database.
func bootstrap() (config.AppConfig, *gorm.DB, error) {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		return cfg, nil, err
	}

	db := config.InitDatabase()
	if err := config.Migrate(db); err != nil {
		return cfg, nil, err
	}
	return cfg, db, nil
}

func newEngine(cfg config.AppConfig, db *gorm.DB) *progression.Engine {
	return progression.NewEngine(
		repository.NewGormStore(db),
		progression.WithStreakTracker(progression.NewStreakTracker(cfg.StreakGrace(), cfg.DayBoundaryLocation())),
		progression.WithLogger(utils.Logger.Named("progression")),
		progression.WithObserver(metrics.NewRecorder()),
	)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
