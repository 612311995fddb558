package service

import (
	"context"
	"errors"
	"fmt"

	"auth-service/backend/internal/security"
	sessionrepo "auth-service/backend/internal/session/repository"
	userrepo "auth-service/backend/internal/user/repository"
)

// Kind is the closed set of outcomes an AuthService call can fail with.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindRateLimited
	KindTokenExpired
	KindTokenInvalid
	KindSessionRevoked
	KindSessionNotFound
	KindUserMismatch
	KindConflict
	KindServiceUnavailable
	KindSamePassword
	KindLoginTaken
	KindEmailTaken
	KindUserNotFound
	KindInvalidArgument
)

var kindCodes = map[Kind]string{
	KindUnknown:            "internal",
	KindInvalidCredentials: "invalid_credentials",
	KindRateLimited:        "rate_limited",
	KindTokenExpired:       "token_expired",
	KindTokenInvalid:       "token_invalid",
	KindSessionRevoked:     "refresh_revoked",
	KindSessionNotFound:    "session_not_found",
	KindUserMismatch:       "user_mismatch",
	KindConflict:           "conflict",
	KindServiceUnavailable: "service_unavailable",
	KindSamePassword:       "same_password",
	KindLoginTaken:         "login_taken",
	KindEmailTaken:         "email_taken",
	KindUserNotFound:       "user_not_found",
	KindInvalidArgument:    "invalid_argument",
}

// Code is the stable, client-visible identifier of the kind.
func (k Kind) Code() string {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return kindCodes[KindUnknown]
}

func (k Kind) String() string { return k.Code() }

// Error is returned by every AuthService method. Error() is only the stable code; the
// wrapped cause is for server-side logs and never reaches clients.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Kind.Code() }

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrSessionRevoked) works
// regardless of the cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrRateLimited        = &Error{Kind: KindRateLimited}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired}
	ErrTokenInvalid       = &Error{Kind: KindTokenInvalid}
	ErrSessionRevoked     = &Error{Kind: KindSessionRevoked}
	ErrSessionNotFound    = &Error{Kind: KindSessionNotFound}
	ErrUserMismatch       = &Error{Kind: KindUserMismatch}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable}
	ErrSamePassword       = &Error{Kind: KindSamePassword}
	ErrLoginTaken         = &Error{Kind: KindLoginTaken}
	ErrEmailTaken         = &Error{Kind: KindEmailTaken}
	ErrUserNotFound       = &Error{Kind: KindUserNotFound}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
)

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// tokenError maps codec failures onto the taxonomy.
func tokenError(err error) *Error {
	if errors.Is(err, security.ErrTokenExpired) {
		return newError(KindTokenExpired, err)
	}
	return newError(KindTokenInvalid, err)
}

// storeError classifies a failure that escaped a unit of work. Domain errors pass through,
// known constraint violations get their kind, anything else is transient unavailability.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, sessionrepo.ErrDuplicateHash):
		return newError(KindConflict, err)
	case errors.Is(err, userrepo.ErrLoginTaken):
		return newError(KindLoginTaken, err)
	case errors.Is(err, userrepo.ErrEmailTaken):
		return newError(KindEmailTaken, err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindServiceUnavailable, fmt.Errorf("%s: store timeout: %w", op, err))
	default:
		return newError(KindServiceUnavailable, fmt.Errorf("%s: %w", op, err))
	}
}
