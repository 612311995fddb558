package repository

import (
	"context"
	"errors"
	"time"

	"auth-service/backend/internal/session/domain"
)

// ErrDuplicateHash is returned by Create when another row already holds the token hash.
var ErrDuplicateHash = errors.New("session: duplicate refresh token hash")

// Repository defines persistence for refresh sessions. Implementations are bound to a
// transaction by the store package; every call participates in the caller's unit of work.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetByHash returns the session for tokenHash, or nil if none exists.
	GetByHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// GetByHashForUpdate is GetByHash holding a row lock until the transaction ends where the
	// backend supports it.
	GetByHashForUpdate(ctx context.Context, tokenHash string) (*domain.Session, error)
	RevokeByID(ctx context.Context, id string) (bool, error)
	RevokeByHash(ctx context.Context, tokenHash string) (bool, error)
	// CompareAndRevoke revokes the row only if it is unrevoked and still at version.
	// It reports whether this call performed the transition.
	CompareAndRevoke(ctx context.Context, id string, version int64) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	ListHashesForUser(ctx context.Context, userID string) ([]string, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
