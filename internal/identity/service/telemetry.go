package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "auth-service/identity"

type instruments struct {
	tracer      trace.Tracer
	logins      metric.Int64Counter
	refreshes   metric.Int64Counter
	rateLimited metric.Int64Counter
}

// newInstruments uses the global providers; with none installed they are no-ops.
func newInstruments() *instruments {
	meter := otel.Meter(instrumentationName)
	in := &instruments{tracer: otel.Tracer(instrumentationName)}
	// Counter creation only fails on invalid names; a nil counter from the no-op meter is safe.
	in.logins, _ = meter.Int64Counter("auth.logins", metric.WithDescription("Login attempts by result"))
	in.refreshes, _ = meter.Int64Counter("auth.refreshes", metric.WithDescription("Refresh rotations by result"))
	in.rateLimited, _ = meter.Int64Counter("auth.rate_limited", metric.WithDescription("Logins rejected by the rate limiter"))
	return in
}

func (in *instruments) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, name)
}

// end records err's kind on the span and closes it.
func end(span trace.Span, err error) {
	if err != nil {
		kind := KindOf(err)
		span.SetAttributes(attribute.String("auth.error", kind.Code()))
		span.SetStatus(codes.Error, kind.Code())
		if kind == KindServiceUnavailable || kind == KindUnknown {
			span.RecordError(err)
		}
	}
	span.End()
}

func count(ctx context.Context, c metric.Int64Counter, err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = KindOf(err).Code()
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
