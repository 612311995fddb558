package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces login counters.
const DefaultKeyPrefix = "rl:login:"

// RedisLimiter keeps counters in Redis so every instance of the service shares them.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	prefix string
	cfg    Config
}

// NewRedisLimiter returns a limiter over rdb. An empty prefix uses DefaultKeyPrefix.
func NewRedisLimiter(rdb redis.UniversalClient, prefix string, cfg Config) *RedisLimiter {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisLimiter{rdb: rdb, prefix: prefix, cfg: cfg}
}

func (l *RedisLimiter) redisKey(k Key) string {
	return l.prefix + k.Kind.String() + ":" + k.Value
}

func (l *RedisLimiter) redisKeys(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = l.redisKey(k)
	}
	return out
}

func (l *RedisLimiter) Check(ctx context.Context, identity, origin Key) error {
	keys := activeKeys(identity, origin)
	if len(keys) == 0 {
		return nil
	}
	vals, err := l.rdb.MGet(ctx, l.redisKeys(keys)...).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			continue
		}
		if n >= l.cfg.MaxAttempts {
			return ErrLimited
		}
	}
	return nil
}

// BumpFailure pipelines INCR and TTL per key, then sets the window expiry on counters that
// were just created or somehow lost their TTL. Existing windows are never extended.
func (l *RedisLimiter) BumpFailure(ctx context.Context, identity, origin Key) error {
	keys := l.redisKeys(activeKeys(identity, origin))
	if len(keys) == 0 {
		return nil
	}
	incrs := make([]*redis.IntCmd, len(keys))
	ttls := make([]*redis.DurationCmd, len(keys))
	_, err := l.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			incrs[i] = p.Incr(ctx, k)
			ttls[i] = p.TTL(ctx, k)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var expire []string
	for i, k := range keys {
		if incrs[i].Val() == 1 || ttls[i].Val() < 0 {
			expire = append(expire, k)
		}
	}
	if len(expire) == 0 {
		return nil
	}
	_, err = l.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range expire {
			p.Expire(ctx, k, l.cfg.Window)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, identity, origin Key) error {
	keys := l.redisKeys(activeKeys(identity, origin))
	if len(keys) == 0 {
		return nil
	}
	if err := l.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
