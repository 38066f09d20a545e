package eventsfactory

import (
	"fmt"
	"strings"

	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/events"
	"github.com/toolsascode/restorm/internal/events/kafka"
	"github.com/toolsascode/restorm/internal/events/pulsar"
)

// NewPublisher creates the event publisher selected by cfg, a no-op one when events are disabled
func NewPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.Noop{}, nil
	}

	eventsType := strings.ToLower(cfg.Type)
	if eventsType == "" {
		eventsType = "kafka" // Default to Kafka
	}

	switch eventsType {
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required")
		}
		if cfg.KafkaTopic == "" {
			return nil, fmt.Errorf("kafka topic is required")
		}
		return kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic), nil

	case "pulsar":
		if cfg.PulsarURL == "" {
			return nil, fmt.Errorf("pulsar URL is required")
		}
		if cfg.PulsarTopic == "" {
			return nil, fmt.Errorf("pulsar topic is required")
		}
		return pulsar.NewProducer(cfg.PulsarURL, cfg.PulsarTopic)

	default:
		return nil, fmt.Errorf("unsupported events type: %s (supported: kafka, pulsar)", cfg.Type)
	}
}
