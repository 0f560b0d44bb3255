package services

import (
	"context"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/providers"
	"github.com/zatekoja/clinicflow/internal/infrastructure/observability"
)

// notifier publishes domain events after a commit. Delivery failures are
// logged and never surface to the caller; a nil bus disables publishing.
type notifier struct {
	bus providers.EventBus
}

func (n notifier) publish(ctx context.Context, eventType entities.EventType, entityID string, data map[string]interface{}) {
	if n.bus == nil {
		return
	}

	event := entities.NewDomainEvent(eventType, entityID, data)
	if err := n.bus.Publish(ctx, providers.Channel(eventType), event); err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("event_type", string(eventType)).
			Str("entity_id", entityID).
			Msg("failed to publish domain event")
	}
}
