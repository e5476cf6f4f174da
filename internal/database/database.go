package database

import (
	"database/sql"
	"time"

	"example.com/merchkit/services/quotes/config"
	"example.com/merchkit/services/quotes/internal/models"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the write and read-only database connections, runs
// migrations on the write side, and configures both connection pools.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, *gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}

	readOnlyDB, err := gorm.Open(postgres.Open(cfg.ReadOnlyDSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to read-only database")
	}

	// Auto-migrate only the write database
	if err := models.SetupModels(db); err != nil {
		return nil, nil, errors.Wrap(err, "failed to run migrations")
	}

	if err := configurePool(db, cfg.MaxIdleConns, cfg.MaxOpenConns, cfg.ConnMaxLifetime); err != nil {
		return nil, nil, errors.Wrap(err, "failed to configure write pool")
	}

	// Higher limits for the read-only side, it serves the hot paths
	if err := configurePool(readOnlyDB, cfg.MaxIdleConns*2, cfg.MaxOpenConns*2, cfg.ConnMaxLifetime); err != nil {
		return nil, nil, errors.Wrap(err, "failed to configure read-only pool")
	}

	return db, readOnlyDB, nil
}

func configurePool(db *gorm.DB, maxIdle, maxOpen int, maxLifetime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	applyPoolSettings(sqlDB, maxIdle, maxOpen, maxLifetime)
	return nil
}

// applyPoolSettings bounds the pool. The lifetime cap recycles
// connections so load balancer and Postgres restarts are picked up.
func applyPoolSettings(sqlDB *sql.DB, maxIdle, maxOpen int, maxLifetime time.Duration) {
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(maxLifetime)
}

// Close closes both underlying connections.
func Close(dbs ...*gorm.DB) error {
	for _, db := range dbs {
		if db == nil {
			continue
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.Close(); err != nil {
			return err
		}
	}
	return nil
}
