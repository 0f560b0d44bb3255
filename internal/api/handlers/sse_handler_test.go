package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicflow/internal/api/handlers"
	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/providers"
)

// MockEventBus for testing
type MockEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan *entities.DomainEvent
	published   []*entities.DomainEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.DomainEvent),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.DomainEvent) error {
	m.mu.Lock()
	m.published = append(m.published, event)
	channels := append([]chan *entities.DomainEvent(nil), m.subscribers[channel]...)
	m.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.DomainEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.DomainEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	return nil
}

func (m *MockEventBus) SubscribedChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channels := make([]string, 0, len(m.subscribers))
	for ch := range m.subscribers {
		channels = append(channels, ch)
	}
	return channels
}

// startStream runs StreamEvents until the returned cancel func is called
func startStream(t *testing.T, handler *handlers.SSEHandler, target string) (*httptest.ResponseRecorder, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.StreamEvents(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return handler.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	return w, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("handler did not exit after cancel")
		}
	}
}

func TestSSEHandler_StreamEvents(t *testing.T) {
	t.Run("streams filtered events", func(t *testing.T) {
		bus := NewMockEventBus()
		handler := handlers.NewSSEHandler(bus)

		w, stop := startStream(t, handler, "/api/stream/events?type=bed.admitted")
		assert.Equal(t, []string{"bed.admitted"}, bus.SubscribedChannels())

		event := entities.NewDomainEvent(entities.EventBedAdmitted, "bed-1", map[string]interface{}{"patient_id": "p-1"})
		require.NoError(t, bus.Publish(context.Background(), providers.Channel(entities.EventBedAdmitted), event))

		time.Sleep(100 * time.Millisecond)
		stop()

		assert.Equal(t, "text/event-stream", w.Result().Header.Get("Content-Type"))
		assert.Equal(t, "no-cache", w.Result().Header.Get("Cache-Control"))

		body := w.Body.String()
		assert.True(t, strings.HasPrefix(body, "event: connected\n"))
		assert.Contains(t, body, "event: bed.admitted\n")
		assert.Contains(t, body, `"entity_id":"bed-1"`)
		assert.Equal(t, 0, handler.ClientCount())
	})

	t.Run("subscribes to every event type by default", func(t *testing.T) {
		bus := NewMockEventBus()
		handler := handlers.NewSSEHandler(bus)

		_, stop := startStream(t, handler, "/api/stream/events")
		defer stop()

		assert.Len(t, bus.SubscribedChannels(), len(entities.EventTypes))
	})

	t.Run("rejects unknown event types", func(t *testing.T) {
		handler := handlers.NewSSEHandler(NewMockEventBus())

		req := httptest.NewRequest(http.MethodGet, "/api/stream/events?type=facility.updated", nil)
		w := httptest.NewRecorder()
		handler.StreamEvents(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, 0, handler.ClientCount())
	})
}
