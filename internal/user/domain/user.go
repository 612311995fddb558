package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the identity the auth core authenticates. PasswordHash is an opaque bcrypt hash.
type User struct {
	ID           string
	Login        string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is a named permission group assignable to users.
type Role struct {
	ID          string
	Name        string
	Description string
}

// Role names created by the seed command. DefaultRole is assigned on registration when it exists.
const (
	DefaultRole = "user"
	AdminRole   = "admin"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Login) == "" {
		return errors.New("login is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
