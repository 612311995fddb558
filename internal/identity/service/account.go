package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	auditdomain "auth-service/backend/internal/audit/domain"
	userdomain "auth-service/backend/internal/user/domain"
)

// History paging bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// RegisterInput is the new account's profile and plaintext password.
type RegisterInput struct {
	Login     string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// HistoryPage is one page of a user's login events, newest first.
type HistoryPage struct {
	Items    []*auditdomain.LoginEvent
	Total    int64
	Page     int
	PageSize int
}

// Register creates a user with a unique login and email and grants the default role when
// it exists. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*userdomain.User, error) {
	in.Login = strings.TrimSpace(in.Login)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Login == "" || in.Password == "" {
		return nil, newError(KindInvalidArgument, fmt.Errorf("login and password are required"))
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, newError(KindInvalidArgument, fmt.Errorf("invalid email: %w", err))
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, newError(KindInvalidArgument, err)
	}
	now := s.clock.Now()
	u := &userdomain.User{
		ID:           uuid.NewString(),
		Login:        in.Login,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Validate(); err != nil {
		return nil, newError(KindInvalidArgument, err)
	}
	err = s.inTx(ctx, "register", func(ctx context.Context, r Repos) error {
		if existing, err := r.Users.GetByLogin(ctx, u.Login); err != nil {
			return err
		} else if existing != nil {
			return ErrLoginTaken
		}
		if existing, err := r.Users.GetByEmail(ctx, u.Email); err != nil {
			return err
		} else if existing != nil {
			return ErrEmailTaken
		}
		if err := r.Users.Create(ctx, u); err != nil {
			return err
		}
		role, err := r.Roles.GetByName(ctx, userdomain.DefaultRole)
		if err != nil || role == nil {
			return err
		}
		return r.Roles.Assign(ctx, u.ID, role.ID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID).Msg("user registered")
	return u, nil
}

// ChangeLogin renames the user. Login rate-limit counters are keyed by login, so old
// counters simply expire.
func (s *AuthService) ChangeLogin(ctx context.Context, userID, newLogin string) error {
	newLogin = strings.TrimSpace(newLogin)
	if newLogin == "" {
		return newError(KindInvalidArgument, fmt.Errorf("login is required"))
	}
	return s.inTx(ctx, "change login", func(ctx context.Context, r Repos) error {
		u, err := r.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		if u.Login == newLogin {
			return nil
		}
		other, err := r.Users.GetByLogin(ctx, newLogin)
		if err != nil {
			return err
		}
		if other != nil {
			return ErrLoginTaken
		}
		return r.Users.UpdateLogin(ctx, userID, newLogin)
	})
}

// ChangePassword replaces the password and revokes every session of the user. A wrong
// current password changes nothing.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (err error) {
	ctx, span := s.inst.start(ctx, "auth.ChangePassword")
	defer func() { end(span, err) }()

	if newPassword == "" {
		return newError(KindInvalidArgument, fmt.Errorf("new password is required"))
	}
	if currentPassword == newPassword {
		return ErrSamePassword
	}

	var verified string
	err = s.inTx(ctx, "change password: lookup", func(ctx context.Context, r Repos) error {
		u, err := r.Users.GetByID(ctx, userID)
		if err != nil || u == nil {
			return err
		}
		verified = u.PasswordHash
		return nil
	})
	if err != nil {
		return err
	}
	if verified == "" || !s.hasher.Verify(currentPassword, verified) {
		return ErrInvalidCredentials
	}
	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return newError(KindInvalidArgument, err)
	}

	var hashes []string
	var revoked int64
	err = s.inTx(ctx, "change password", func(ctx context.Context, r Repos) error {
		// The hash verified above must still be current, or a concurrent change won.
		u, err := r.Users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil || u.PasswordHash != verified {
			return ErrInvalidCredentials
		}
		if err := r.Users.UpdatePasswordHash(ctx, userID, newHash); err != nil {
			return err
		}
		// A rotation holding one of the user's session rows makes a pass wait for its commit,
		// and the replacement row is only visible to the next statement. Repeat until a pass
		// finds nothing live.
		for {
			n, err := r.Sessions.RevokeAllForUser(ctx, userID)
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			revoked += n
		}
		hashes, err = r.Sessions.ListHashesForUser(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}
	s.cacheDelete(ctx, hashes...)
	s.log.Info().Str("user_id", userID).Int64("sessions_revoked", revoked).Msg("password changed")
	return nil
}

// LoginHistory returns one page of the user's login events. Zero page or pageSize take
// the defaults (1 and DefaultPageSize).
func (s *AuthService) LoginHistory(ctx context.Context, userID string, page, pageSize int) (*HistoryPage, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 || pageSize < 1 || pageSize > MaxPageSize {
		return nil, newError(KindInvalidArgument, fmt.Errorf("page must be >= 1 and page size in 1..%d", MaxPageSize))
	}
	out := &HistoryPage{Page: page, PageSize: pageSize}
	err := s.inTx(ctx, "login history", func(ctx context.Context, r Repos) error {
		var err error
		out.Items, out.Total, err = r.Audit.ListForUser(ctx, userID, page, pageSize)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
