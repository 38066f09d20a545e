package pulsar

import (
	"context"
	"fmt"

	"github.com/toolsascode/restorm/internal/events"
	"github.com/toolsascode/restorm/internal/logger"

	"github.com/apache/pulsar-client-go/pulsar"
)

// Producer implements events.Publisher using Pulsar
type Producer struct {
	client   pulsar.Client
	producer pulsar.Producer
	topic    string
}

// NewProducer creates a new Pulsar producer
func NewProducer(url, topic string) (*Producer, error) {
	client, err := pulsar.NewClient(pulsar.ClientOptions{
		URL: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pulsar client: %w", err)
	}

	producer, err := client.CreateProducer(pulsar.ProducerOptions{
		Topic: topic,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create Pulsar producer: %w", err)
	}

	return &Producer{
		client:   client,
		producer: producer,
		topic:    topic,
	}, nil
}

// Publish publishes an event to Pulsar, keyed by resource id
func (p *Producer) Publish(ctx context.Context, event *events.Event) error {
	payload, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msgID, err := p.producer.Send(ctx, &pulsar.ProducerMessage{
		Key:     event.ResourceID,
		Payload: payload,
		Properties: map[string]string{
			"event-id":   event.ID,
			"event-type": event.Type,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send event to Pulsar: %w", err)
	}

	logger.Debugf("Published %s event %s to Pulsar topic %s (message %v)", event.Type, event.ID, p.topic, msgID)
	return nil
}

// Close closes the Pulsar producer and client
func (p *Producer) Close() error {
	p.producer.Close()
	p.client.Close()
	return nil
}
