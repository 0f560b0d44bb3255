package providers

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to domain events.
// Channels are event types; subscribers only see events published after they subscribe.
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.DomainEvent) error

	// Subscribe subscribes to events on a channel until ctx is cancelled
	Subscribe(ctx context.Context, channel string) (<-chan *entities.DomainEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// Channel returns the notifier channel for an event type
func Channel(eventType entities.EventType) string {
	return string(eventType)
}
