package service

import (
	"context"
	"errors"

	"auth-service/backend/internal/ratelimit"
	"auth-service/backend/internal/security"
	"auth-service/backend/internal/session/cache"
	sessiondomain "auth-service/backend/internal/session/domain"
)

// Cache and limiter calls below never fail the request. Cache errors and timeouts read as
// misses. Limiter backend errors fail open: login stays available when Redis is down.

func (s *AuthService) cacheCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cacheTimeout)
}

func (s *AuthService) cacheGet(ctx context.Context, hash string) *cache.Entry {
	if s.cache == nil {
		return nil
	}
	ctx, cancel := s.cacheCtx(ctx)
	defer cancel()
	e, err := s.cache.Get(ctx, hash)
	if err != nil {
		s.log.Warn().Err(err).Str("op", "cache.get").Str("token_hash", security.ShortHash(hash)).Msg("cache unavailable, treating as miss")
		return nil
	}
	return e
}

func (s *AuthService) cachePut(ctx context.Context, sess *sessiondomain.Session) {
	if s.cache == nil || sess == nil {
		return
	}
	ctx, cancel := s.cacheCtx(ctx)
	defer cancel()
	if err := s.cache.Put(ctx, sess.TokenHash, sess.UserID, sess.ExpiresAt, sess.Revoked); err != nil {
		s.log.Warn().Err(err).Str("op", "cache.put").Str("token_hash", security.ShortHash(sess.TokenHash)).Msg("cache write failed")
	}
}

func (s *AuthService) cacheDelete(ctx context.Context, hashes ...string) {
	if s.cache == nil || len(hashes) == 0 {
		return
	}
	ctx, cancel := s.cacheCtx(ctx)
	defer cancel()
	if err := s.cache.Delete(ctx, hashes...); err != nil {
		s.log.Warn().Err(err).Str("op", "cache.delete").Int("keys", len(hashes)).Msg("cache eviction failed")
	}
}

func (s *AuthService) limitCheck(ctx context.Context, id, origin ratelimit.Key) error {
	if s.limiter == nil {
		return nil
	}
	ctx, cancel := s.cacheCtx(ctx)
	defer cancel()
	err := s.limiter.Check(ctx, id, origin)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrLimited):
		if s.inst.rateLimited != nil {
			s.inst.rateLimited.Add(ctx, 1)
		}
		return newError(KindRateLimited, err)
	default:
		s.log.Warn().Err(err).Str("op", "ratelimit.check").Msg("rate limiter unavailable, allowing attempt")
		return nil
	}
}

func (s *AuthService) limitBump(ctx context.Context, id, origin ratelimit.Key) {
	if s.limiter == nil {
		return
	}
	ctx, cancel := s.cacheCtx(ctx)
	defer cancel()
	if err := s.limiter.BumpFailure(ctx, id, origin); err != nil {
		s.log.Warn().Err(err).Str("op", "ratelimit.bump").Msg("failed to count login failure")
	}
}

func (s *AuthService) limitReset(ctx context.Context, id, origin ratelimit.Key) {
	if s.limiter == nil {
		return
	}
	ctx, cancel := s.cacheCtx(ctx)
	defer cancel()
	if err := s.limiter.Reset(ctx, id, origin); err != nil {
		s.log.Warn().Err(err).Str("op", "ratelimit.reset").Msg("failed to reset login counters")
	}
}
