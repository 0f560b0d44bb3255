package events

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/providers"
)

// ErrBusClosed is returned when publishing or subscribing on a closed bus
var ErrBusClosed = errors.New("event bus closed")

// MemoryEventBus is an in-process EventBus for single-instance deployments and tests
type MemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.DomainEvent]struct{}
	closed      bool
}

var _ providers.EventBus = (*MemoryEventBus)(nil)

// NewMemoryEventBus creates a new in-process event bus
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{
		subscribers: make(map[string]map[chan *entities.DomainEvent]struct{}),
	}
}

// Publish delivers the event to every current subscriber without blocking
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	for subscriber := range b.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
		}
	}
	return nil
}

// Subscribe subscribes to events on a channel until ctx is cancelled
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.DomainEvent, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[chan *entities.DomainEvent]struct{})
	}
	eventChan := make(chan *entities.DomainEvent, subscriberBuffer)
	b.subscribers[channel][eventChan] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.removeSubscriber(channel, eventChan)
	}()

	return eventChan, nil
}

func (b *MemoryEventBus) removeSubscriber(channel string, eventChan chan *entities.DomainEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, ok := b.subscribers[channel]
	if !ok {
		return
	}
	if _, ok := subscribers[eventChan]; !ok {
		return
	}
	delete(subscribers, eventChan)
	close(eventChan)
	if len(subscribers) == 0 {
		delete(b.subscribers, channel)
	}
}

// Unsubscribe drops every subscriber of a channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriber := range b.subscribers[channel] {
		close(subscriber)
	}
	delete(b.subscribers, channel)
	return nil
}

// Close closes the event bus and all subscriptions
func (b *MemoryEventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for channel, subscribers := range b.subscribers {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, channel)
	}
	return nil
}
