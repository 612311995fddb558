package service

import (
	"context"
	"time"

	auditdomain "auth-service/backend/internal/audit/domain"
	sessiondomain "auth-service/backend/internal/session/domain"
	userdomain "auth-service/backend/internal/user/domain"
)

// SessionRepo is the session store as seen by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByHash(ctx context.Context, tokenHash string) (*sessiondomain.Session, error)
	GetByHashForUpdate(ctx context.Context, tokenHash string) (*sessiondomain.Session, error)
	RevokeByID(ctx context.Context, id string) (bool, error)
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	CompareAndRevoke(ctx context.Context, id string, version int64) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	ListHashesForUser(ctx context.Context, userID string) ([]string, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// AuditRepo is the append-only login trail.
type AuditRepo interface {
	Append(ctx context.Context, e *auditdomain.LoginEvent) error
	ListForUser(ctx context.Context, userID string, page, pageSize int) ([]*auditdomain.LoginEvent, int64, error)
}

// UserRepo is the user directory.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByLogin(ctx context.Context, login string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateLogin(ctx context.Context, id, login string) error
}

// RoleRepo is the role directory.
type RoleRepo interface {
	GetByName(ctx context.Context, name string) (*userdomain.Role, error)
	Create(ctx context.Context, r *userdomain.Role) error
	Assign(ctx context.Context, userID, roleID string) error
	NamesForUser(ctx context.Context, userID string) ([]string, error)
}

// Repos are the repositories bound to one transaction.
type Repos struct {
	Sessions SessionRepo
	Audit    AuditRepo
	Users    UserRepo
	Roles    RoleRepo
}

// Store runs units of work. InTx commits when fn returns nil and rolls back otherwise,
// so audit rows and session changes of one operation land together or not at all.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	Ping(ctx context.Context) error
}

// PasswordHasher is the black-box hash/verify capability.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}
