package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/varunmayaluru/soc-nextjs-ui-sub000/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the Postgres connection. It returns a nil *gorm.DB when no host is configured,
// which is the normal mode when transcripts are kept by the upstream conversation store.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.Host == "" {
		log.Warn().Msg("DATABASE_HOST is not set. Running without a local database.")
		return nil, nil
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	log.Info().Str("host", cfg.Database.Host).Str("name", cfg.Database.Name).Msg("Database connection established")
	return db, nil
}
