package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, max int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLimiter(rdb, "", Config{MaxAttempts: max, Window: window}), mr
}

func TestRedisLimiter_KeyFormat(t *testing.T) {
	l, mr := newRedisLimiter(t, 5, time.Minute)
	require.NoError(t, l.BumpFailure(context.Background(), Identity("u1"), Origin("10.0.0.1")))
	got, err := mr.Get("rl:login:login:u1")
	require.NoError(t, err)
	require.Equal(t, "1", got)
	got, err = mr.Get("rl:login:ip:10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, "1", got)
}

func TestRedisLimiter_LimitsAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	l, _ := newRedisLimiter(t, 5, 5*time.Minute)
	id, origin := Identity("u1"), Origin("10.0.0.1")

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Check(ctx, id, origin), "attempt %d", i+1)
		require.NoError(t, l.BumpFailure(ctx, id, origin))
	}
	require.ErrorIs(t, l.Check(ctx, id, origin), ErrLimited)
	require.ErrorIs(t, l.Check(ctx, id, Origin("10.9.9.9")), ErrLimited, "identity counter alone limits")
	require.ErrorIs(t, l.Check(ctx, Identity("other"), origin), ErrLimited, "origin counter alone limits")
	require.NoError(t, l.Check(ctx, Identity("other"), Origin("10.9.9.9")))
}

func TestRedisLimiter_WindowIsFixed(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t, 3, time.Minute)
	id := Identity("u1")

	require.NoError(t, l.BumpFailure(ctx, id, Key{}))
	require.Equal(t, time.Minute, mr.TTL("rl:login:login:u1"))

	mr.FastForward(40 * time.Second)
	require.NoError(t, l.BumpFailure(ctx, id, Key{}))
	require.Equal(t, 20*time.Second, mr.TTL("rl:login:login:u1"), "later failures must not extend the window")

	mr.FastForward(21 * time.Second)
	require.False(t, mr.Exists("rl:login:login:u1"))
}

func TestRedisLimiter_WindowElapses(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t, 2, time.Minute)
	id := Identity("u1")
	require.NoError(t, l.BumpFailure(ctx, id, Key{}))
	require.NoError(t, l.BumpFailure(ctx, id, Key{}))
	require.ErrorIs(t, l.Check(ctx, id, Key{}), ErrLimited)

	mr.FastForward(time.Minute)
	require.NoError(t, l.Check(ctx, id, Key{}))
}

func TestRedisLimiter_RestoresMissingTTL(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t, 5, time.Minute)
	require.NoError(t, mr.Set("rl:login:login:u1", "2"))
	require.NoError(t, l.BumpFailure(ctx, Identity("u1"), Key{}))
	require.Equal(t, time.Minute, mr.TTL("rl:login:login:u1"))
}

func TestRedisLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t, 1, time.Minute)
	id, origin := Identity("u1"), Origin("10.0.0.1")
	require.NoError(t, l.BumpFailure(ctx, id, origin))
	require.ErrorIs(t, l.Check(ctx, id, origin), ErrLimited)

	require.NoError(t, l.Reset(ctx, id, origin))
	require.NoError(t, l.Check(ctx, id, origin))
	require.False(t, mr.Exists("rl:login:login:u1"))
	require.False(t, mr.Exists("rl:login:ip:10.0.0.1"))
}

func TestRedisLimiter_EmptyOriginSkipped(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t, 5, time.Minute)
	require.NoError(t, l.BumpFailure(ctx, Identity("u1"), Origin("")))
	require.Equal(t, []string{"rl:login:login:u1"}, mr.Keys())
	require.NoError(t, l.Check(ctx, Key{}, Key{}))
	require.NoError(t, l.Reset(ctx, Key{}, Key{}))
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	ctx := context.Background()
	l, mr := newRedisLimiter(t, 5, time.Minute)
	mr.Close()
	require.ErrorIs(t, l.Check(ctx, Identity("u1"), Key{}), ErrUnavailable)
	require.ErrorIs(t, l.BumpFailure(ctx, Identity("u1"), Key{}), ErrUnavailable)
	require.ErrorIs(t, l.Reset(ctx, Identity("u1"), Key{}), ErrUnavailable)
}
