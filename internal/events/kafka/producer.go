package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/toolsascode/restorm/internal/events"
	"github.com/toolsascode/restorm/internal/logger"

	"github.com/segmentio/kafka-go"
)

// BatchTimeout bounds how long a synchronous Publish waits for a batch to fill
const BatchTimeout = 10 * time.Millisecond

// Producer implements events.Publisher using Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           BatchTimeout,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// Publish publishes an event to Kafka, keyed by resource id
func (p *Producer) Publish(ctx context.Context, event *events.Event) error {
	value, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ResourceID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to Kafka: %w", err)
	}

	logger.Debugf("Published %s event %s to Kafka topic %s", event.Type, event.ID, p.topic)
	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
