package eventsfactory

import (
	"testing"

	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/events"
	"github.com/toolsascode/restorm/internal/events/kafka"
)

func TestNewPublisher(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EventsConfig
		wantErr bool
		check   func(t *testing.T, p events.Publisher)
	}{
		{
			name: "disabled returns noop",
			cfg:  config.EventsConfig{Enabled: false, Type: "kafka"},
			check: func(t *testing.T, p events.Publisher) {
				if _, ok := p.(events.Noop); !ok {
					t.Errorf("expected events.Noop, got %T", p)
				}
			},
		},
		{
			name: "kafka",
			cfg:  config.EventsConfig{Enabled: true, Type: "kafka", KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"},
			check: func(t *testing.T, p events.Publisher) {
				if _, ok := p.(*kafka.Producer); !ok {
					t.Errorf("expected *kafka.Producer, got %T", p)
				}
			},
		},
		{
			name:    "kafka without brokers",
			cfg:     config.EventsConfig{Enabled: true, Type: "kafka", KafkaTopic: "t"},
			wantErr: true,
		},
		{
			name:    "pulsar without url",
			cfg:     config.EventsConfig{Enabled: true, Type: "pulsar", PulsarTopic: "t"},
			wantErr: true,
		},
		{
			name:    "unsupported type",
			cfg:     config.EventsConfig{Enabled: true, Type: "nats"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPublisher(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPublisher() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer p.Close()
			if tt.check != nil {
				tt.check(t, p)
			}
		})
	}
}
