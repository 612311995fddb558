package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"auth-service/backend/internal/audit/domain"
)

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec   otellog.Record
	count int
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
	r.count++
}

func attrsOf(rec otellog.Record) map[string]string {
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	return attrs
}

func TestNewLoginEventEmitter_NilProvider(t *testing.T) {
	em := NewLoginEventEmitter(nil)
	if em != nil {
		t.Fatal("nil provider should give a nil emitter")
	}
	if err := em.Publish(context.Background(), &domain.LoginEvent{ID: "e1"}); err != nil {
		t.Errorf("nil emitter Publish: %v", err)
	}
}

func TestNewLoginEventEmitter_Provider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewLoginEventEmitter(provider)
	if err := em.Publish(context.Background(), &domain.LoginEvent{ID: "e1", Result: domain.ResultSuccess}); err != nil {
		t.Errorf("Publish: %v", err)
	}
}

func TestPublish_Success(t *testing.T) {
	cap := &recordCapture{}
	em := NewLoginEventEmitterWithLogger(cap)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := em.Publish(context.Background(), &domain.LoginEvent{
		ID: "e1", UserID: "u1", Timestamp: ts, IPAddress: "10.0.0.1", UserAgent: "curl/8", Result: domain.ResultSuccess,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !cap.rec.Timestamp().Equal(ts) {
		t.Errorf("timestamp = %v", cap.rec.Timestamp())
	}
	if cap.rec.Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v", cap.rec.Severity())
	}
	want := map[string]string{
		"event.id": "e1", "login.result": "success", "user.id": "u1",
		"client.address": "10.0.0.1", "user_agent.original": "curl/8",
	}
	got := attrsOf(cap.rec)
	for k, v := range want {
		if got[k] != v {
			t.Errorf("attr %q = %q, want %q", k, got[k], v)
		}
	}
	if _, ok := got["login.reason"]; ok {
		t.Error("reason should be absent on success")
	}
}

func TestPublish_FailureUnknownUser(t *testing.T) {
	cap := &recordCapture{}
	em := NewLoginEventEmitterWithLogger(cap)
	_ = em.Publish(context.Background(), &domain.LoginEvent{
		ID: "e2", Result: domain.ResultFail, Reason: domain.ReasonBadCredentials,
	})
	if cap.rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want WARN", cap.rec.Severity())
	}
	got := attrsOf(cap.rec)
	if _, ok := got["user.id"]; ok {
		t.Error("user.id should be absent when the user is unknown")
	}
	if got["login.reason"] != domain.ReasonBadCredentials {
		t.Errorf("reason = %q", got["login.reason"])
	}
}

func TestPublish_NilEvent(t *testing.T) {
	cap := &recordCapture{}
	if err := NewLoginEventEmitterWithLogger(cap).Publish(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if cap.count != 0 {
		t.Error("nil event should not be emitted")
	}
}
