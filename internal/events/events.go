package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published for resource changes
const (
	TypeCreated = "created"
	TypeUpdated = "updated"
	TypeDeleted = "deleted"
)

// Event describes a committed change of a resource
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"` // e.g. "task.created"
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// New creates an event for resource with a fresh id
func New(resource, action, resourceID, requestID string, data any) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       resource + "." + action,
		Resource:   resource,
		ResourceID: resourceID,
		RequestID:  requestID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Marshal encodes the event as JSON
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher publishes resource change events
type Publisher interface {
	// Publish sends an event, the resource id is used as the message key
	Publish(ctx context.Context, event *Event) error

	// Close closes the publisher connection
	Close() error
}

// Noop discards every event
type Noop struct{}

// Publish implements Publisher
func (Noop) Publish(context.Context, *Event) error { return nil }

// Close implements Publisher
func (Noop) Close() error { return nil }
