// Package ratelimit throttles failed login attempts with fixed-window counters keyed by
// identity and by origin.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLimited is returned by Check when either counter has reached the threshold.
	ErrLimited = errors.New("ratelimit: too many attempts")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("ratelimit: backend unavailable")
)

// KeyKind is the dimension a counter is scoped to.
type KeyKind int

const (
	KeyIdentity KeyKind = iota + 1
	KeyOrigin
)

func (k KeyKind) String() string {
	switch k {
	case KeyIdentity:
		return "login"
	case KeyOrigin:
		return "ip"
	default:
		return "unknown"
	}
}

// Key names one counter. A key with an empty Value is ignored by every operation.
type Key struct {
	Kind  KeyKind
	Value string
}

// Identity returns the counter key for a login name.
func Identity(login string) Key { return Key{Kind: KeyIdentity, Value: login} }

// Origin returns the counter key for a client address.
func Origin(ip string) Key { return Key{Kind: KeyOrigin, Value: ip} }

// Config holds the window parameters shared by all limiters.
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter is implemented by RedisLimiter and MemoryLimiter.
type Limiter interface {
	// Check returns ErrLimited if the identity or origin counter is at MaxAttempts.
	Check(ctx context.Context, identity, origin Key) error
	// BumpFailure increments both counters. A counter's window starts at its first failure.
	BumpFailure(ctx context.Context, identity, origin Key) error
	// Reset deletes both counters.
	Reset(ctx context.Context, identity, origin Key) error
}

func activeKeys(keys ...Key) []Key {
	out := make([]Key, 0, len(keys))
	for _, k := range keys {
		if k.Value != "" {
			out = append(out, k)
		}
	}
	return out
}
