package store

import (
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"auth-service/backend/internal/config"
	"auth-service/backend/internal/db"
	"auth-service/backend/internal/identity/service"
)

// Backend is the configured Store plus the raw handle behind it. Exactly one of SQL and Gorm
// is set, matching Driver.
type Backend struct {
	service.Store
	Driver string
	SQL    *sql.DB
	Gorm   *gorm.DB
}

// Open connects the store selected by cfg.StoreDriver. Postgres expects the schema to be
// migrated already; SQLite migrates itself.
func Open(cfg *config.Config, opts ...Option) (*Backend, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		gdb, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		st, err := NewSQLite(gdb, opts...)
		if err != nil {
			if sqlDB, dbErr := gdb.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, fmt.Errorf("sqlite migrate: %w", err)
		}
		return &Backend{Store: st, Driver: config.StoreDriverSQLite, Gorm: gdb}, nil
	case config.StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is not set")
		}
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &Backend{Store: NewPostgres(sqlDB, opts...), Driver: config.StoreDriverPostgres, SQL: sqlDB}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Close releases the underlying connection pool.
func (b *Backend) Close() error {
	if b.Gorm != nil {
		sqlDB, err := b.Gorm.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	if b.SQL != nil {
		return b.SQL.Close()
	}
	return nil
}
