package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"auth-service/backend/internal/platform/clock"
)

var (
	// ErrTokenInvalid is returned for any verification failure other than expiry
	// (bad signature, wrong issuer or audience, wrong type marker, malformed token).
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when an otherwise valid token is past its exp claim.
	ErrTokenExpired = errors.New("token expired")
)

// Token type markers carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the wire shape of both token kinds: sub, roles?, iss, aud, iat, exp, jti, typ?.
// Roles is set only on access tokens; Type is "refresh" only on refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
	Type  string   `json:"typ,omitempty"`
}

// TokenCodec issues and validates self-contained access and refresh JWTs.
// It holds no mutable state beyond the signing key and configured TTLs.
type TokenCodec struct {
	key        SigningKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
	parser     *jwt.Parser
}

// NewTokenCodec returns a TokenCodec signing with key. issuer and audience are set on every token
// and required on decode. clk may be nil, in which case the system clock is used.
func NewTokenCodec(key SigningKey, issuer, audience string, accessTTL, refreshTTL time.Duration, clk clock.Clock) *TokenCodec {
	if clk == nil {
		clk = clock.System{}
	}
	c := &TokenCodec{
		key:        key,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clk,
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{key.method.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(clk.Now),
	)
	return c
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess issues a short-lived access token for subject carrying roles.
// Returns the token and its lifetime in whole seconds.
func (c *TokenCodec) IssueAccess(subject string, roles []string) (string, int64, error) {
	now := c.clock.Now()
	expiresAt := now.Add(c.accessTTL)
	if roles == nil {
		roles = []string{}
	}
	claims := Claims{
		RegisteredClaims: c.registered(subject, now, expiresAt),
		Roles:            roles,
	}
	token, err := c.sign(claims)
	if err != nil {
		return "", 0, err
	}
	return token, int64(c.accessTTL / time.Second), nil
}

// IssueRefresh issues a long-lived refresh token for subject with typ=refresh.
// Returns the token and its expiry; callers persist only the token's hash.
func (c *TokenCodec) IssueRefresh(subject string) (string, time.Time, error) {
	now := c.clock.Now()
	expiresAt := now.Add(c.refreshTTL)
	claims := Claims{
		RegisteredClaims: c.registered(subject, now, expiresAt),
		Type:             TokenTypeRefresh,
	}
	token, err := c.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	// exp is encoded at second precision; report what the token actually says.
	return token, claims.ExpiresAt.Time, nil
}

// DecodeRefresh verifies signature, issuer, audience, expiry and the refresh type marker.
// Returns ErrTokenExpired past expiry and ErrTokenInvalid for any other failure.
func (c *TokenCodec) DecodeRefresh(token string) (*Claims, error) {
	claims, err := c.decode(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// DecodeAccess verifies signature, issuer, audience and expiry. It does not check the type marker.
func (c *TokenCodec) DecodeAccess(token string) (*Claims, error) {
	return c.decode(token)
}

func (c *TokenCodec) decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}
	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return c.key.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (c *TokenCodec) registered(subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    c.issuer,
		Audience:  jwt.ClaimStrings{c.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (c *TokenCodec) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(c.key.method, claims).SignedString(c.key.signKey)
}
