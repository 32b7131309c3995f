// Package event defines the domain events emitted after committed
// timesheet transitions. Events are informational: the transition has
// already been persisted when an event is published, so handlers cannot
// veto it.
package event

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	TimesheetID   int64                  `json:"timesheet_id"`
	ActorID       int64                  `json:"actor_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, timesheetID, actorID int64, payload map[string]interface{}) *Event {
	return &Event{
		ID:            generateID(),
		Type:          eventType,
		TimesheetID:   timesheetID,
		ActorID:       actorID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: generateID(),
	}
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, timesheetID, actorID int64, payload map[string]interface{}, correlationID string) *Event {
	evt := NewEvent(eventType, timesheetID, actorID, payload)
	evt.CorrelationID = correlationID
	return evt
}

// WithPayload returns a new Event with an added payload key-value pair
// (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	copied := *e
	copied.Payload = newPayload
	return &copied
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// generateID creates a random hex identifier
func generateID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Extremely unlikely; fall back to a timestamp-based ID
		return fmt.Sprintf("evt-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
