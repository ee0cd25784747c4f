package database

import (
	"time"

	"example.com/connectsphere/config"
	"example.com/connectsphere/internal/models"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the write database and the read-only replica. When no replica
// DSN is configured both handles point at the primary.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, *gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), gormCfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}
	if err := configurePool(db, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg); err != nil {
		return nil, nil, err
	}

	if cfg.ReadOnlyDSN == "" || cfg.ReadOnlyDSN == cfg.DSN {
		return db, db, nil
	}

	readOnlyDB, err := gorm.Open(postgres.Open(cfg.ReadOnlyDSN), gormCfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to read-only database")
	}

	// Higher limits for read operations
	if err := configurePool(readOnlyDB, cfg.MaxOpenConns*2, cfg.MaxIdleConns*2, cfg); err != nil {
		return nil, nil, err
	}

	return db, readOnlyDB, nil
}

func configurePool(db *gorm.DB, maxOpen, maxIdle int, cfg config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying DB connection")
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return nil
}

// Migrate runs schema migrations against the write database
func Migrate(db *gorm.DB) error {
	if err := models.SetupModels(db); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}
	return nil
}

// Close closes both handles, skipping the replica when it is shared
func Close(db, readOnlyDB *gorm.DB) error {
	if readOnlyDB != nil && readOnlyDB != db {
		if sqlDB, err := readOnlyDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
