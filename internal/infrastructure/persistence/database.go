// Package persistence implements the sync repositories on GORM. Every
// tenant-scoped table is filtered by the tenant carried in the statement's
// context, so repositories never add tenant predicates by hand.
package persistence

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/config"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/models"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence/tenant"
)

// Database is the shared GORM handle with tenant isolation installed
type Database struct {
	DB *gorm.DB
}

// NewDatabase connects to PostgreSQL, sizes the pool from cfg and installs
// tenant isolation.
func NewDatabase(cfg *config.DatabaseConfig, gl gormlogger.Interface) (*Database, error) {
	if gl == nil {
		gl = gormlogger.Discard
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return WrapDatabase(db)
}

// WrapDatabase installs tenant isolation on an open connection
func WrapDatabase(db *gorm.DB) (*Database, error) {
	if err := tenant.EnableIsolation(db, models.TenantScopedTables()...); err != nil {
		return nil, fmt.Errorf("install tenant isolation: %w", err)
	}
	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping backs the readiness probe
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
