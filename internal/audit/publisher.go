// Package audit streams committed login events to downstream sinks (Kafka, OTel logs).
// The durable trail itself lives in audit/repository and is written inside the caller's
// transaction; publishing happens only after commit and is best-effort.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"auth-service/backend/internal/audit/domain"
)

// publishTimeout bounds one async publish.
const publishTimeout = 5 * time.Second

// ShutdownDrainDuration is how long the server waits after GracefulStop so in-flight
// publishes can finish before sinks are closed.
const ShutdownDrainDuration = publishTimeout

// Publisher sends a committed login event to one sink.
type Publisher interface {
	Publish(ctx context.Context, e *domain.LoginEvent) error
}

// Fanout publishes to every non-nil sink and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e *domain.LoginEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishAsync publishes e in a goroutine detached from the request context. Errors are logged.
// p and e may be nil; then nothing happens.
func PublishAsync(p Publisher, e *domain.LoginEvent) {
	if p == nil || e == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, e); err != nil {
			log.Warn().Err(err).Str("event_id", e.ID).Msg("audit: publish failed")
		}
	}()
}
