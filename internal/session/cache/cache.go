// Package cache mirrors refresh-session revocation state for the rotation hot path.
// It is never authoritative: a missing entry means "ask the store", and only a revoked
// entry may be trusted on its own.
package cache

import (
	"context"
	"time"
)

// Entry is the cached view of one session, keyed by refresh-token hash.
type Entry struct {
	UserID  string `json:"user_id"`
	Revoked bool   `json:"revoked"`
}

// Cache is implemented by RedisCache and MemoryCache.
type Cache interface {
	// Get returns nil with no error when the hash is not cached.
	Get(ctx context.Context, tokenHash string) (*Entry, error)
	// Put stores the entry until expiresAt. Entries already expired are not stored.
	Put(ctx context.Context, tokenHash, userID string, expiresAt time.Time, revoked bool) error
	Delete(ctx context.Context, tokenHashes ...string) error
}

// ttl returns the remaining lifetime of an entry expiring at expiresAt.
func ttl(now, expiresAt time.Time) time.Duration {
	d := expiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
