package repository

import (
	"context"
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

// kafkaProducer is the subset of pkg/kafka.Producer used for signal delivery.
type kafkaProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaSignalPublisher writes signals as JSON to a topic, keyed by symbol so that
// every signal of one instrument lands on the same partition in order.
type KafkaSignalPublisher struct {
	producer kafkaProducer
	topic    string
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

func NewKafkaSignalPublisher(p kafkaProducer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: p, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, sig models.Signal) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(sig.Symbol), sig); err != nil {
		return fmt.Errorf("kafka publish %s/%s: %w", sig.Symbol, sig.StrategyID, err)
	}
	return nil
}

// Close is a no-op; the producer is shared and closed by its owner.
func (p *KafkaSignalPublisher) Close() error { return nil }
