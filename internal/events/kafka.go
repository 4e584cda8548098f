package events

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var errPublisherClosed = fmt.Errorf("kafka publisher is closed")

const DefaultPublishTimeout = 3 * time.Second

// KafkaPublisher writes order events keyed by session id so every event of
// one order lands on the same partition. A publish never outlives timeout.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
	closed  atomic.Bool
}

func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration, logger zerolog.Logger) *KafkaPublisher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error().Msgf("kafka producer: "+msg, args...)
		}),
	}
	return &KafkaPublisher{writer: writer, timeout: timeout}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	if p.closed.Load() {
		return errPublisherClosed
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	value, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s for %s: %w", event.Type, event.SessionID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
