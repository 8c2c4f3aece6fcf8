package database

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"noticeboard/models"
)

func RunMigrations(db *gorm.DB) error {
	log.Info().Msg("running database migrations")

	if err := db.AutoMigrate(&models.User{}, &models.PageRecord{}); err != nil {
		log.Error().Err(err).Msg("migrations failed")
		return err
	}

	log.Info().Msg("migrations completed")
	return nil
}
