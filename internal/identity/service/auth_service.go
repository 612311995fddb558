// Package service implements the credential-session lifecycle: login, refresh rotation,
// logout and forced global logout on password change.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"auth-service/backend/internal/audit"
	auditdomain "auth-service/backend/internal/audit/domain"
	"auth-service/backend/internal/platform/clock"
	"auth-service/backend/internal/ratelimit"
	"auth-service/backend/internal/security"
	"auth-service/backend/internal/session/cache"
	sessiondomain "auth-service/backend/internal/session/domain"
)

// TokenTypeBearer is the token_type returned with every pair.
const TokenTypeBearer = "bearer"

// TokenPair is the result of Login and Refresh. ExpiresIn is the access token lifetime in seconds.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
}

// Origin is the client metadata recorded on sessions and audit rows.
type Origin = sessiondomain.Metadata

// Deps are the collaborators of AuthService. Store, Tokens and Hasher are required.
type Deps struct {
	Store     Store
	Cache     cache.Cache
	Limiter   ratelimit.Limiter
	Tokens    *security.TokenCodec
	Hasher    PasswordHasher
	Publisher audit.Publisher
	Clock     clock.Clock
	Logger    zerolog.Logger

	// StoreTimeout bounds each unit of work; CacheTimeout bounds each cache call.
	StoreTimeout time.Duration
	CacheTimeout time.Duration
}

// AuthService coordinates the token codec, session store, cache, limiter and audit log.
// It holds no per-session state; concurrent rotations of one token are serialized by the store.
type AuthService struct {
	store        Store
	cache        cache.Cache
	limiter      ratelimit.Limiter
	tokens       *security.TokenCodec
	hasher       PasswordHasher
	publisher    audit.Publisher
	clock        clock.Clock
	log          zerolog.Logger
	storeTimeout time.Duration
	cacheTimeout time.Duration
	inst         *instruments
}

// NewAuthService returns an AuthService. A nil Cache or Limiter disables that layer.
func NewAuthService(d Deps) *AuthService {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.StoreTimeout <= 0 {
		d.StoreTimeout = 3 * time.Second
	}
	if d.CacheTimeout <= 0 {
		d.CacheTimeout = 200 * time.Millisecond
	}
	return &AuthService{
		store:        d.Store,
		cache:        d.Cache,
		limiter:      d.Limiter,
		tokens:       d.Tokens,
		hasher:       d.Hasher,
		publisher:    d.Publisher,
		clock:        d.Clock,
		log:          d.Logger.With().Str("component", "auth").Logger(),
		storeTimeout: d.StoreTimeout,
		cacheTimeout: d.CacheTimeout,
		inst:         newInstruments(),
	}
}

// inTx runs fn as one unit of work bounded by the store timeout.
func (s *AuthService) inTx(ctx context.Context, op string, fn func(ctx context.Context, r Repos) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return storeError(op, s.store.InTx(ctx, fn))
}

// Login verifies credentials and opens a new session. Failed attempts are audited and
// counted against both the login and the origin address.
func (s *AuthService) Login(ctx context.Context, login, password string, origin Origin) (pair *TokenPair, err error) {
	ctx, span := s.inst.start(ctx, "auth.Login")
	defer func() { end(span, err); count(ctx, s.inst.logins, err) }()

	// Empty input is an ordinary credential failure: limited, audited and counted.
	login = strings.TrimSpace(login)
	idKey, originKey := ratelimit.Identity(login), ratelimit.Origin(origin.IPAddress)
	if err := s.limitCheck(ctx, idKey, originKey); err != nil {
		return nil, err
	}

	var userID, hash string
	if login != "" {
		err = s.inTx(ctx, "login: lookup", func(ctx context.Context, r Repos) error {
			u, err := r.Users.GetByLogin(ctx, login)
			if err != nil || u == nil {
				return err
			}
			userID, hash = u.ID, u.PasswordHash
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	if userID == "" || password == "" || !s.hasher.Verify(password, hash) {
		ev := s.loginEvent(userID, origin, auditdomain.ResultFail, auditdomain.ReasonBadCredentials, now)
		if err := s.inTx(ctx, "login: audit failure", func(ctx context.Context, r Repos) error {
			return r.Audit.Append(ctx, ev)
		}); err != nil {
			return nil, err
		}
		s.limitBump(ctx, idKey, originKey)
		audit.PublishAsync(s.publisher, ev)
		return nil, ErrInvalidCredentials
	}

	s.limitReset(ctx, idKey, originKey)

	var sess *sessiondomain.Session
	ev := s.loginEvent(userID, origin, auditdomain.ResultSuccess, "", now)
	err = s.inTx(ctx, "login: open session", func(ctx context.Context, r Repos) error {
		var err error
		pair, sess, err = s.openSession(ctx, r, userID, origin, now)
		if err != nil {
			return err
		}
		return r.Audit.Append(ctx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.cachePut(ctx, sess)
	audit.PublishAsync(s.publisher, ev)
	return pair, nil
}

// Refresh rotates refreshToken: the old session is revoked and a new one created in the
// same transaction. Exactly one of several concurrent rotations of the same token succeeds;
// the rest fail with ErrSessionRevoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, origin Origin) (pair *TokenPair, err error) {
	ctx, span := s.inst.start(ctx, "auth.Refresh")
	defer func() { end(span, err); count(ctx, s.inst.refreshes, err) }()

	claims, err := s.tokens.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, tokenError(err)
	}
	userID := claims.Subject
	oldHash := security.HashRefreshToken(refreshToken)

	// Revocation is monotonic, so a cached revoked flag is never stale. Anything else
	// must be confirmed against the store below.
	if e := s.cacheGet(ctx, oldHash); e != nil && e.Revoked {
		return nil, ErrSessionRevoked
	}

	var newSess *sessiondomain.Session
	err = s.inTx(ctx, "refresh", func(ctx context.Context, r Repos) error {
		now := s.clock.Now()
		old, err := r.Sessions.GetByHashForUpdate(ctx, oldHash)
		switch {
		case err != nil:
			return err
		case old == nil:
			return ErrSessionNotFound
		case old.Revoked:
			return ErrSessionRevoked
		case old.UserID != userID:
			return ErrUserMismatch
		case !old.Active(now):
			return ErrTokenExpired
		}
		won, err := r.Sessions.CompareAndRevoke(ctx, old.ID, old.Version)
		if err != nil {
			return err
		}
		if !won {
			return ErrSessionRevoked
		}
		pair, newSess, err = s.openSession(ctx, r, userID, origin, now)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSessionRevoked) {
			s.log.Warn().Str("token_hash", security.ShortHash(oldHash)).Str("user_id", userID).
				Msg("refresh: revoked token presented")
		}
		return nil, err
	}
	s.cacheDelete(ctx, oldHash)
	s.cachePut(ctx, newSess)
	return pair, nil
}

// Logout revokes the session of refreshToken. Repeating it is a no-op success.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	ctx, span := s.inst.start(ctx, "auth.Logout")
	defer func() { end(span, err) }()

	if _, err := s.tokens.DecodeRefresh(refreshToken); err != nil {
		return tokenError(err)
	}
	hash := security.HashRefreshToken(refreshToken)
	err = s.inTx(ctx, "logout", func(ctx context.Context, r Repos) error {
		_, err := r.Sessions.RevokeByHash(ctx, hash)
		return err
	})
	if err != nil {
		return err
	}
	s.cacheDelete(ctx, hash)
	return nil
}

// openSession issues a token pair for userID with its current roles and stores the new
// session. Runs inside the caller's unit of work.
func (s *AuthService) openSession(ctx context.Context, r Repos, userID string, origin Origin, now time.Time) (*TokenPair, *sessiondomain.Session, error) {
	roles, err := r.Roles.NamesForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	access, ttl, err := s.tokens.IssueAccess(userID, roles)
	if err != nil {
		return nil, nil, err
	}
	refresh, exp, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, nil, err
	}
	sess := &sessiondomain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: security.HashRefreshToken(refresh),
		Device:    origin.Device,
		IPAddress: origin.IPAddress,
		UserAgent: origin.UserAgent,
		ExpiresAt: exp,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Sessions.Create(ctx, sess); err != nil {
		return nil, nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: TokenTypeBearer, ExpiresIn: ttl}, sess, nil
}

func (s *AuthService) loginEvent(userID string, origin Origin, result auditdomain.Result, reason string, now time.Time) *auditdomain.LoginEvent {
	return &auditdomain.LoginEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Timestamp: now,
		IPAddress: origin.IPAddress,
		UserAgent: origin.UserAgent,
		Result:    result,
		Reason:    reason,
	}
}
