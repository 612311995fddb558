package repository

import (
	"context"
	"errors"

	"auth-service/backend/internal/user/domain"
)

var (
	// ErrLoginTaken is returned when another user already has the login.
	ErrLoginTaken = errors.New("user: login already in use")
	// ErrEmailTaken is returned when another user already has the email.
	ErrEmailTaken = errors.New("user: email already in use")
)

// UserRepository is the user directory. Lookups return nil with no error when nothing matches.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateLogin(ctx context.Context, id, login string) error
}

// RoleRepository is the role directory.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Create(ctx context.Context, r *domain.Role) error
	Assign(ctx context.Context, userID, roleID string) error
	// NamesForUser returns the user's current role names, sorted.
	NamesForUser(ctx context.Context, userID string) ([]string, error)
}
