// Package producer publishes committed login events to Kafka.
package producer

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"

	"auth-service/backend/internal/audit/domain"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaProducer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer writes login events as JSON, keyed by user id so one user's events stay
// ordered within a partition.
type KafkaProducer struct {
	writer MessageWriter
}

// NewKafkaProducer returns a producer for topic, or nil when brokers or topic is empty.
// A nil *KafkaProducer is a valid no-op Publisher.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return NewKafkaProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	})
}

// NewKafkaProducerWithWriter wraps an existing writer. Used by tests.
func NewKafkaProducerWithWriter(w MessageWriter) *KafkaProducer {
	return &KafkaProducer{writer: w}
}

func (p *KafkaProducer) Publish(ctx context.Context, e *domain.LoginEvent) error {
	if p == nil || p.writer == nil || e == nil {
		return nil
	}
	payload, err := sonic.Marshal(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{Value: payload, Time: e.Timestamp}
	if e.UserID != "" {
		msg.Key = []byte(e.UserID)
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the writer. Safe on a nil producer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
