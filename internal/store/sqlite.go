package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	auditrepo "auth-service/backend/internal/audit/repository"
	"auth-service/backend/internal/identity/service"
	sessionrepo "auth-service/backend/internal/session/repository"
	userrepo "auth-service/backend/internal/user/repository"
)

// SQLite runs units of work as gorm transactions on the embedded database. There are no
// row locks; rotation relies on the session version compare-and-revoke, and the single
// pooled connection serializes writers.
type SQLite struct {
	db   *gorm.DB
	opts options
}

// NewSQLite migrates the schema and returns a Store over gdb.
func NewSQLite(gdb *gorm.DB, opts ...Option) (*SQLite, error) {
	steps := []struct {
		name    string
		migrate func(*gorm.DB) error
	}{
		{"users", userrepo.AutoMigrate},
		{"sessions", sessionrepo.AutoMigrate},
		{"audit", auditrepo.AutoMigrate},
	}
	for _, step := range steps {
		if err := step.migrate(gdb); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", step.name, err)
		}
	}
	return &SQLite{db: gdb, opts: buildOptions(opts)}, nil
}

func (s *SQLite) InTx(ctx context.Context, fn func(ctx context.Context, r service.Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, sqliteRepos(tx, s.opts))
	})
}

func (s *SQLite) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB exposes the handle for maintenance jobs outside the auth flows.
func (s *SQLite) DB() *gorm.DB { return s.db }

func sqliteRepos(tx *gorm.DB, o options) service.Repos {
	return service.Repos{
		Sessions: sessionrepo.NewGormRepository(tx, o.clock),
		Audit:    auditrepo.NewGormRepository(tx),
		Users:    userrepo.NewGormRepository(tx, o.clock),
		Roles:    userrepo.NewGormRoleRepository(tx),
	}
}
