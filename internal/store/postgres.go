// Package store implements the auth service's unit of work over Postgres and over the
// embedded SQLite database.
package store

import (
	"context"
	"database/sql"

	auditrepo "auth-service/backend/internal/audit/repository"
	"auth-service/backend/internal/db"
	"auth-service/backend/internal/identity/service"
	sessionrepo "auth-service/backend/internal/session/repository"
	userrepo "auth-service/backend/internal/user/repository"
)

// Postgres runs each unit of work in a read-committed transaction. Rotation takes a row lock
// through GetByHashForUpdate, so concurrent rotations of one token queue on the row.
type Postgres struct {
	db   *sql.DB
	opts options
}

// NewPostgres returns a Store over an open pool. The caller owns the pool.
func NewPostgres(sqlDB *sql.DB, opts ...Option) *Postgres {
	return &Postgres{db: sqlDB, opts: buildOptions(opts)}
}

func (p *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, r service.Repos) error) error {
	return db.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		return fn(ctx, postgresRepos(tx, p.opts))
	})
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func postgresRepos(q db.DBTX, o options) service.Repos {
	return service.Repos{
		Sessions: sessionrepo.NewPostgresRepository(q, o.clock),
		Audit:    auditrepo.NewPostgresRepository(q),
		Users:    userrepo.NewPostgresRepository(q, o.clock),
		Roles:    userrepo.NewPostgresRoleRepository(q),
	}
}
