package common

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"noticeboard/config"
)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	}
}

// ConnectDb opens the page database for the sqlite or postgres driver.
func ConnectDb(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("driver %q is not served by gorm", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	log.Info().Str("driver", cfg.Driver).Msg("opened page database")
	return db, nil
}

// ConnectAnalyticsDb opens the separate analytics sqlite file. It returns nil
// when no path is configured, which disables analytics.
func ConnectAnalyticsDb(path string) *gorm.DB {
	if path == "" {
		log.Info().Msg("analytics_db not set, analytics disabled")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to open analytics database")
		return nil
	}
	log.Info().Str("path", path).Msg("opened analytics database")
	return db
}
