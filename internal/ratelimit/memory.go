package ratelimit

import (
	"context"
	"sync"
	"time"

	"auth-service/backend/internal/platform/clock"
)

type counter struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter keeps counters in process. Use it only with a single service instance.
type MemoryLimiter struct {
	mu    sync.Mutex
	m     map[Key]counter
	cfg   Config
	clock clock.Clock
}

// NewMemoryLimiter returns an in-process limiter.
func NewMemoryLimiter(cfg Config, clk clock.Clock) *MemoryLimiter {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryLimiter{m: make(map[Key]counter), cfg: cfg, clock: clk}
}

// live returns k's counter, dropping it if its window has ended. Caller holds mu.
func (l *MemoryLimiter) live(k Key, now time.Time) (counter, bool) {
	c, ok := l.m[k]
	if ok && !now.Before(c.expiresAt) {
		delete(l.m, k)
		return counter{}, false
	}
	return c, ok
}

func (l *MemoryLimiter) Check(ctx context.Context, identity, origin Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	for _, k := range activeKeys(identity, origin) {
		if c, ok := l.live(k, now); ok && c.count >= l.cfg.MaxAttempts {
			return ErrLimited
		}
	}
	return nil
}

func (l *MemoryLimiter) BumpFailure(ctx context.Context, identity, origin Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	for _, k := range activeKeys(identity, origin) {
		c, ok := l.live(k, now)
		if !ok {
			c = counter{expiresAt: now.Add(l.cfg.Window)}
		}
		c.count++
		l.m[k] = c
	}
	return nil
}

func (l *MemoryLimiter) Reset(ctx context.Context, identity, origin Key) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range activeKeys(identity, origin) {
		delete(l.m, k)
	}
	return nil
}
