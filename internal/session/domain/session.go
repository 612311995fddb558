package domain

import "time"

// Session is the durable record binding a refresh-token hash to a user and its revocation state.
// The plaintext refresh token is never stored.
type Session struct {
	ID        string
	UserID    string
	TokenHash string // hex SHA-256 of the refresh token; unique among non-expired rows
	Device    string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	Revoked   bool // monotonic: once true, never reset
	// Version increments on every mutation; used for compare-and-revoke where row locks are unavailable.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Metadata is the optional origin information recorded on a session row.
type Metadata struct {
	Device    string
	IPAddress string
	UserAgent string
}

// Active reports whether the session is unrevoked and unexpired at now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && !s.Revoked && now.Before(s.ExpiresAt)
}
