package cache

import (
	"context"
	"sync"
	"time"

	"auth-service/backend/internal/platform/clock"
)

type memEntry struct {
	Entry
	expiresAt time.Time
}

// MemoryCache is an in-process Cache for single-node deployments and tests.
// Expired entries are dropped lazily on read.
type MemoryCache struct {
	mu    sync.RWMutex
	m     map[string]memEntry
	clock clock.Clock
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache(clk clock.Clock) *MemoryCache {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryCache{m: make(map[string]memEntry), clock: clk}
}

func (c *MemoryCache) Get(ctx context.Context, tokenHash string) (*Entry, error) {
	c.mu.RLock()
	e, ok := c.m[tokenHash]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	now := c.clock.Now()
	if e.expiresAt.After(now) {
		out := e.Entry
		return &out, nil
	}

	// A Put may have replaced the entry since the read lock was released.
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok = c.m[tokenHash]
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.After(now) {
		delete(c.m, tokenHash)
		return nil, nil
	}
	out := e.Entry
	return &out, nil
}

func (c *MemoryCache) Put(ctx context.Context, tokenHash, userID string, expiresAt time.Time, revoked bool) error {
	if ttl(c.clock.Now(), expiresAt) <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[tokenHash] = memEntry{Entry: Entry{UserID: userID, Revoked: revoked}, expiresAt: expiresAt}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, tokenHashes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range tokenHashes {
		delete(c.m, h)
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet read.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
