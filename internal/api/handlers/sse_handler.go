package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/clinicflow/internal/domain/entities"
	"github.com/zatekoja/clinicflow/internal/domain/providers"
	"github.com/zatekoja/clinicflow/internal/infrastructure/observability"
)

const (
	sseClientBuffer   = 50
	heartbeatInterval = 30 * time.Second
)

// SSEHandler streams workflow events to dashboards over Server-Sent Events
type SSEHandler struct {
	eventBus  providers.EventBus
	clients   map[chan *entities.DomainEvent]bool
	mu        sync.RWMutex
	heartbeat time.Duration
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		clients:   make(map[chan *entities.DomainEvent]bool),
		heartbeat: heartbeatInterval,
	}
}

// StreamEvents handles GET /api/stream/events?type=bed.admitted&type=...
// Without a type filter every workflow event is streamed.
func (h *SSEHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	types := entities.EventTypes
	if requested := r.URL.Query()["type"]; len(requested) > 0 {
		types = make([]entities.EventType, 0, len(requested))
		for _, name := range requested {
			t, ok := entities.ParseEventType(name)
			if !ok {
				respondWithError(w, http.StatusBadRequest, fmt.Sprintf("unknown event type %q", name))
				return
			}
			types = append(types, t)
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	clientChan := make(chan *entities.DomainEvent, sseClientBuffer)
	for _, t := range types {
		eventChan, err := h.eventBus.Subscribe(ctx, providers.Channel(t))
		if err != nil {
			logger.Error().Err(err).Str("event_type", string(t)).Msg("failed to subscribe to event channel")
			respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
			return
		}
		go h.forwardEvents(ctx, eventChan, clientChan)
	}

	h.registerClient(clientChan)
	defer h.unregisterClient(clientChan)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.sendEvent(w, "connected", map[string]interface{}{
		"types":     types,
		"timestamp": time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("event stream client disconnected")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			h.sendEvent(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// forwardEvents forwards events from the event bus to a client channel
func (h *SSEHandler) forwardEvents(ctx context.Context, eventChan <-chan *entities.DomainEvent, clientChan chan<- *entities.DomainEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			select {
			case clientChan <- event:
			default:
				// slow client, drop
			}
		}
	}
}

func (h *SSEHandler) registerClient(clientChan chan *entities.DomainEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[clientChan] = true
}

func (h *SSEHandler) unregisterClient(clientChan chan *entities.DomainEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, clientChan)
}

// sendEvent sends an SSE event to the client
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}

// ClientCount returns the number of connected stream clients
func (h *SSEHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
