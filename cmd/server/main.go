package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"auth-service/backend/internal/audit"
	"auth-service/backend/internal/audit/producer"
	"auth-service/backend/internal/config"
	healthhandler "auth-service/backend/internal/health/handler"
	"auth-service/backend/internal/identity/service"
	"auth-service/backend/internal/logger"
	"auth-service/backend/internal/platform/clock"
	"auth-service/backend/internal/ratelimit"
	"auth-service/backend/internal/security"
	"auth-service/backend/internal/server"
	"auth-service/backend/internal/session/cache"
	"auth-service/backend/internal/store"
	"auth-service/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.OTelServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	providers, err := otel.NewProviders(ctx, otel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	key, err := security.LoadSigningKey(cfg.JWTSecret, cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	clk := clock.System{}
	tokens := security.NewTokenCodec(key, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL(), clk)

	st, err := store.Open(cfg, store.WithClock(clk))
	if err != nil {
		return err
	}
	defer st.Close()

	healthDeps := map[string]healthhandler.Pinger{"store": st}
	optionalHealth := map[string]healthhandler.Pinger{}
	limiterCfg := ratelimit.Config{MaxAttempts: cfg.LoginMaxAttempts, Window: cfg.LoginWindowDuration()}
	var (
		sessions cache.Cache
		limiter  ratelimit.Limiter
	)
	switch cfg.CacheDriver {
	case config.CacheDriverRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		// Redis is optional at runtime; an unreachable instance degrades to store reads, so it
		// is reported as its own health service and never fails readiness.
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable at startup")
		}
		cancel()
		sessions = cache.NewRedisCache(rdb, cfg.CacheKeyPrefix, clk)
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateKeyPrefix, limiterCfg)
		optionalHealth["cache"] = healthhandler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	default:
		sessions = cache.NewMemoryCache(clk)
		limiter = ratelimit.NewMemoryLimiter(limiterCfg, clk)
	}

	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuditKafkaTopic)
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			log.Warn().Err(err).Msg("kafka producer close")
		}
	}()

	auth := service.NewAuthService(service.Deps{
		Store:        st,
		Cache:        sessions,
		Limiter:      limiter,
		Tokens:       tokens,
		Hasher:       security.NewHasher(cfg.BcryptCost),
		Publisher:    audit.Fanout{kafkaProducer, otel.NewLoginEventEmitter(providers.LoggerProvider)},
		Clock:        clk,
		Logger:       log,
		StoreTimeout: cfg.StoreTimeout(),
		CacheTimeout: cfg.CacheTimeout(),
	})

	srv := server.NewServer(server.Deps{
		Auth:               auth,
		Tokens:             tokens,
		HealthDeps:         healthDeps,
		OptionalHealthDeps: optionalHealth,
		Logger:             log,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.GRPCAddr).Str("store", cfg.StoreDriver).Str("cache", cfg.CacheDriver).Msg("gRPC server listening")
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down gRPC server")
		srv.GracefulStop()
		return nil
	})
	err = g.Wait()

	// Events published after the last response still need time to reach their sinks.
	time.Sleep(audit.ShutdownDrainDuration)
	log.Info().Msg("gRPC server stopped")
	return err
}
