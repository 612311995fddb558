package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auth-service/backend/internal/db"
	"auth-service/backend/internal/platform/clock"
	"auth-service/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, refresh_token_hash, device, ip_address, user_agent,
	expires_at, revoked, version, created_at, updated_at`

// PostgresRepository stores sessions in refresh_sessions. The revoked flag only moves
// from false to true; every statement that flips it filters on NOT revoked.
type PostgresRepository struct {
	q     db.DBTX
	clock clock.Clock
}

// NewPostgresRepository returns a session repository over q, usually a *sql.Tx. clk stamps
// updated_at on revocation; nil means the system clock.
func NewPostgresRepository(q db.DBTX, clk clock.Clock) *PostgresRepository {
	if clk == nil {
		clk = clock.System{}
	}
	return &PostgresRepository{q: q, clock: clk}
}

// Create inserts s as a new unrevoked row at version 1.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	s.Revoked = false
	s.Version = 1
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO refresh_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, 1, $8, $9)`,
		s.ID, s.UserID, s.TokenHash, s.Device, s.IPAddress, s.UserAgent,
		s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateHash
	}
	return err
}

func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return r.get(ctx, `SELECT `+sessionColumns+` FROM refresh_sessions WHERE refresh_token_hash = $1`, tokenHash)
}

// GetByHashForUpdate locks the row until the surrounding transaction ends, so two rotations
// of the same token serialize here.
func (r *PostgresRepository) GetByHashForUpdate(ctx context.Context, tokenHash string) (*domain.Session, error) {
	return r.get(ctx, `SELECT `+sessionColumns+` FROM refresh_sessions WHERE refresh_token_hash = $1 FOR UPDATE`, tokenHash)
}

func (r *PostgresRepository) get(ctx context.Context, query, tokenHash string) (*domain.Session, error) {
	var s domain.Session
	err := r.q.QueryRowContext(ctx, query, tokenHash).Scan(
		&s.ID, &s.UserID, &s.TokenHash, &s.Device, &s.IPAddress, &s.UserAgent,
		&s.ExpiresAt, &s.Revoked, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) RevokeByID(ctx context.Context, id string) (bool, error) {
	return r.exec(ctx, `
		UPDATE refresh_sessions SET revoked = true, version = version + 1, updated_at = $2
		WHERE id = $1 AND NOT revoked`, id, r.clock.Now())
}

// RevokeByHash is idempotent: an already-revoked or missing row reports false with no error.
func (r *PostgresRepository) RevokeByHash(ctx context.Context, tokenHash string) (bool, error) {
	return r.exec(ctx, `
		UPDATE refresh_sessions SET revoked = true, version = version + 1, updated_at = $2
		WHERE refresh_token_hash = $1 AND NOT revoked`, tokenHash, r.clock.Now())
}

func (r *PostgresRepository) CompareAndRevoke(ctx context.Context, id string, version int64) (bool, error) {
	return r.exec(ctx, `
		UPDATE refresh_sessions SET revoked = true, version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $2 AND NOT revoked`, id, version, r.clock.Now())
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...interface{}) (bool, error) {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE refresh_sessions SET revoked = true, version = version + 1, updated_at = $2
		WHERE user_id = $1 AND NOT revoked`, userID, r.clock.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListHashesForUser returns the token hashes of every session the user has, revoked or not.
func (r *PostgresRepository) ListHashesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT refresh_token_hash FROM refresh_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
