package otel

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"auth-service/backend/internal/audit/domain"
)

const instrumentationName = "auth-service/audit"

// RecordEmitter is the subset of otellog.Logger used by LoginEventEmitter.
type RecordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// LoginEventEmitter publishes committed login events as OTel log records. Failed attempts
// are emitted at WARN so collectors can alert on brute force without parsing bodies.
type LoginEventEmitter struct {
	logger RecordEmitter
}

// NewLoginEventEmitter returns an emitter over provider, or nil when provider is nil.
// A nil emitter is a no-op audit.Publisher.
func NewLoginEventEmitter(provider *sdklog.LoggerProvider) *LoginEventEmitter {
	if provider == nil {
		return nil
	}
	return NewLoginEventEmitterWithLogger(provider.Logger(instrumentationName))
}

// NewLoginEventEmitterWithLogger wraps any record sink. Used by tests.
func NewLoginEventEmitterWithLogger(l RecordEmitter) *LoginEventEmitter {
	return &LoginEventEmitter{logger: l}
}

func (e *LoginEventEmitter) Publish(ctx context.Context, ev *domain.LoginEvent) error {
	if e == nil || e.logger == nil || ev == nil {
		return nil
	}
	var rec otellog.Record
	rec.SetTimestamp(ev.Timestamp)
	rec.SetEventName("auth.login")
	rec.SetBody(otellog.StringValue("login " + string(ev.Result)))
	if ev.Result == domain.ResultSuccess {
		rec.SetSeverity(otellog.SeverityInfo)
		rec.SetSeverityText("INFO")
	} else {
		rec.SetSeverity(otellog.SeverityWarn)
		rec.SetSeverityText("WARN")
	}
	rec.AddAttributes(
		otellog.String("event.id", ev.ID),
		otellog.String("login.result", string(ev.Result)),
	)
	if ev.UserID != "" {
		rec.AddAttributes(otellog.String("user.id", ev.UserID))
	}
	if ev.IPAddress != "" {
		rec.AddAttributes(otellog.String("client.address", ev.IPAddress))
	}
	if ev.UserAgent != "" {
		rec.AddAttributes(otellog.String("user_agent.original", ev.UserAgent))
	}
	if ev.Reason != "" {
		rec.AddAttributes(otellog.String("login.reason", ev.Reason))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
