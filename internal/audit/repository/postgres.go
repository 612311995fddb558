package repository

import (
	"context"
	"database/sql"

	"auth-service/backend/internal/audit/domain"
	"auth-service/backend/internal/db"
)

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns an audit repository over q, usually a *sql.Tx.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// Append inserts e into login_audit. Postgres routes the row to its monthly partition.
func (r *PostgresRepository) Append(ctx context.Context, e *domain.LoginEvent) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO login_audit (id, user_id, ts, ip_address, user_agent, result, reason)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Timestamp, e.IPAddress, e.UserAgent, string(e.Result), e.Reason,
	)
	return err
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string, page, pageSize int) ([]*domain.LoginEvent, int64, error) {
	var total int64
	if err := r.q.QueryRowContext(ctx, `SELECT count(*) FROM login_audit WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if pastEnd(page, pageSize, total) {
		return nil, total, nil
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, ts, ip_address, user_agent, result, reason
		FROM login_audit
		WHERE user_id = $1
		ORDER BY ts DESC, id
		LIMIT $2 OFFSET $3`,
		userID, pageSize, offset(page, pageSize),
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*domain.LoginEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func scanEvent(rows *sql.Rows) (*domain.LoginEvent, error) {
	var e domain.LoginEvent
	var userID sql.NullString
	var result string
	if err := rows.Scan(&e.ID, &userID, &e.Timestamp, &e.IPAddress, &e.UserAgent, &result, &e.Reason); err != nil {
		return nil, err
	}
	e.UserID = userID.String
	e.Result = domain.Result(result)
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}
