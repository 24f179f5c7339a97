package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yourorg/learning-platform/internal/model"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes broadcast events to Kafka for downstream consumers
// (audit, analytics). Publishing is best effort and sits off the request
// path; a broker outage never fails a broadcast.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer creates a new Kafka producer for the given topic
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		writer: writer,
		logger: logger,
	}
}

// PublishBroadcast sends one broadcast event, keyed by event id so retries
// of the same logical event land in the same partition.
func (p *Producer) PublishBroadcast(ctx context.Context, event *model.BroadcastEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal broadcast event", zap.Error(err), zap.String("eventID", event.ID.String()))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.ID.String()),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish broadcast event",
			zap.String("topic", p.writer.Topic),
			zap.Error(err))
		return err
	}

	return nil
}

// Close flushes and closes the underlying writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
