// Worker runs periodic store maintenance: it deletes expired sessions and login events older
// than AUDIT_RETENTION_MONTHS, and on Postgres keeps the monthly login_audit partitions ahead
// of the clock. Set WORKER_INTERVAL to change the sweep period (default 1h).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"auth-service/backend/internal/config"
	"auth-service/backend/internal/logger"
	"auth-service/backend/internal/store"
)

const sweepTimeout = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.OTelServiceName+"-worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := store.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("worker: open store")
	}
	defer b.Close()

	interval := cfg.WorkerIntervalDuration()
	log.Info().Str("store", b.Driver).Dur("interval", interval).Int("retention_months", cfg.AuditRetentionMonths).Msg("worker: started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			sweep(gctx, b, cfg.AuditRetentionMonths, log)
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker: stopped with error")
		return
	}
	log.Info().Msg("worker: stopped")
}

// sweep runs one maintenance pass. Failures are logged and retried on the next tick.
func sweep(ctx context.Context, b *store.Backend, retentionMonths int, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	start := time.Now()
	res, err := b.Sweep(ctx, start.UTC(), retentionMonths)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("worker: sweep failed")
		}
		return
	}
	log.Info().
		Int64("expired_sessions", res.ExpiredSessions).
		Int64("audit_rows", res.AuditRows).
		Strs("dropped_partitions", res.DroppedPartitions).
		Dur("took", time.Since(start)).
		Msg("worker: sweep done")
}
