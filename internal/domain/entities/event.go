package entities

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event; it is also the notifier channel
type EventType string

const (
	EventVisitRegistered      EventType = "visit.registered"
	EventPrescriptionRecorded EventType = "prescription.recorded"
	EventInventoryRestocked   EventType = "inventory.restocked"
	EventInventoryDispensed   EventType = "inventory.dispensed"
	EventBillFinalized        EventType = "bill.finalized"
	EventBedAdmitted          EventType = "bed.admitted"
	EventBedDischarged        EventType = "bed.discharged"
	EventBedCleaned           EventType = "bed.cleaned"
)

// EventTypes lists every event the workflow publishes
var EventTypes = []EventType{
	EventVisitRegistered,
	EventPrescriptionRecorded,
	EventInventoryRestocked,
	EventInventoryDispensed,
	EventBillFinalized,
	EventBedAdmitted,
	EventBedDischarged,
	EventBedCleaned,
}

// ParseEventType validates an event type name
func ParseEventType(name string) (EventType, bool) {
	for _, t := range EventTypes {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

// DomainEvent is published after a successful commit
type DomainEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"event_type"`
	EntityID  string                 `json:"entity_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewDomainEvent creates a new domain event
func NewDomainEvent(eventType EventType, entityID string, data map[string]interface{}) *DomainEvent {
	return &DomainEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
