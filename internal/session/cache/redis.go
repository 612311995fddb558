package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"auth-service/backend/internal/platform/clock"
)

// DefaultKeyPrefix namespaces cache keys in a shared Redis.
const DefaultKeyPrefix = "rsess:"

// RedisCache stores entries as JSON strings with a TTL bounded by the session's expiry.
type RedisCache struct {
	rdb    redis.UniversalClient
	prefix string
	clock  clock.Clock
}

// NewRedisCache returns a cache over rdb. An empty prefix uses DefaultKeyPrefix.
func NewRedisCache(rdb redis.UniversalClient, prefix string, clk clock.Clock) *RedisCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &RedisCache{rdb: rdb, prefix: prefix, clock: clk}
}

func (c *RedisCache) key(tokenHash string) string {
	return c.prefix + tokenHash
}

func (c *RedisCache) Get(ctx context.Context, tokenHash string) (*Entry, error) {
	raw, err := c.rdb.Get(ctx, c.key(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var e Entry
	if err := sonic.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &e, nil
}

func (c *RedisCache) Put(ctx context.Context, tokenHash, userID string, expiresAt time.Time, revoked bool) error {
	d := ttl(c.clock.Now(), expiresAt)
	if d <= 0 {
		return nil
	}
	raw, err := sonic.Marshal(Entry{UserID: userID, Revoked: revoked})
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(tokenHash), raw, d).Err()
}

func (c *RedisCache) Delete(ctx context.Context, tokenHashes ...string) error {
	if len(tokenHashes) == 0 {
		return nil
	}
	keys := make([]string, len(tokenHashes))
	for i, h := range tokenHashes {
		keys[i] = c.key(h)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
