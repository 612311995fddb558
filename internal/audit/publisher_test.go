package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"auth-service/backend/internal/audit/domain"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.LoginEvent
	err    error
	done   chan struct{}
}

func newRecordingPublisher(err error) *recordingPublisher {
	return &recordingPublisher{err: err, done: make(chan struct{}, 8)}
}

func (p *recordingPublisher) Publish(ctx context.Context, e *domain.LoginEvent) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	p.done <- struct{}{}
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestFanout_PublishesToAll(t *testing.T) {
	a, b := newRecordingPublisher(nil), newRecordingPublisher(errors.New("kafka down"))
	f := Fanout{a, nil, b}
	err := f.Publish(context.Background(), &domain.LoginEvent{ID: "e1"})
	if err == nil || err.Error() != "kafka down" {
		t.Errorf("Fanout err = %v", err)
	}
	if a.count() != 1 || b.count() != 1 {
		t.Errorf("counts = %d, %d; want 1, 1", a.count(), b.count())
	}
}

func TestFanout_Empty(t *testing.T) {
	if err := (Fanout{}).Publish(context.Background(), &domain.LoginEvent{}); err != nil {
		t.Errorf("empty fanout: %v", err)
	}
}

func TestPublishAsync(t *testing.T) {
	p := newRecordingPublisher(errors.New("ignored"))
	PublishAsync(p, &domain.LoginEvent{ID: "e1"})
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("PublishAsync did not publish")
	}
	if p.count() != 1 {
		t.Errorf("count = %d", p.count())
	}
}

func TestPublishAsync_NilArgs(t *testing.T) {
	PublishAsync(nil, &domain.LoginEvent{})
	p := newRecordingPublisher(nil)
	PublishAsync(p, nil)
	time.Sleep(10 * time.Millisecond)
	if p.count() != 0 {
		t.Error("nil event should not be published")
	}
}
