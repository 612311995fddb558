package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"auth-service/backend/internal/db"
	"auth-service/backend/internal/platform/clock"
	"auth-service/backend/internal/user/domain"
)

const userColumns = `id, login, email, password_hash, first_name, last_name, created_at, updated_at`

type PostgresRepository struct {
	q     db.DBTX
	clock clock.Clock
}

// NewPostgresRepository returns a user repository over q. Updates stamp updated_at from clk;
// nil means the system clock.
func NewPostgresRepository(q db.DBTX, clk clock.Clock) *PostgresRepository {
	if clk == nil {
		clk = clock.System{}
	}
	return &PostgresRepository{q: q, clock: clk}
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg string) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&u.ID, &u.Login, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns the user for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.getOne(ctx, `login = $1`, login)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

// Create inserts u. A unique violation is reported as ErrLoginTaken or ErrEmailTaken.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Login, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.CreatedAt, u.UpdatedAt,
	)
	return translateUnique(err)
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, r.clock.Now())
	return err
}

func (r *PostgresRepository) UpdateLogin(ctx context.Context, id, login string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET login = $2, updated_at = $3 WHERE id = $1`, id, login, r.clock.Now())
	return translateUnique(err)
}

func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "email") {
		return ErrEmailTaken
	}
	return ErrLoginTaken
}

// PostgresRoleRepository reads roles and user_roles.
type PostgresRoleRepository struct {
	q db.DBTX
}

func NewPostgresRoleRepository(q db.DBTX) *PostgresRoleRepository {
	return &PostgresRoleRepository{q: q}
}

func (r *PostgresRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.q.QueryRowContext(ctx, `SELECT id, name, description FROM roles WHERE name = $1`, name).
		Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *PostgresRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO roles (id, name, description) VALUES ($1, $2, $3)`,
		role.ID, role.Name, role.Description)
	return err
}

// Assign grants the role. Granting it twice is a no-op.
func (r *PostgresRoleRepository) Assign(ctx context.Context, userID, roleID string) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, roleID)
	return err
}

func (r *PostgresRoleRepository) NamesForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT r.name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
