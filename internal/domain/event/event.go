package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by producers and consumers
const (
	PayloadRequesterID = "requester_id"
	PayloadRequestType = "request_type"
	PayloadStage       = "stage"
	PayloadDecision    = "decision"
	PayloadActingRole  = "acting_role"
	PayloadRemark      = "remark"
	PayloadOutcome     = "outcome"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequestID     int64                  `json:"request_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with a generated ID and timestamp
func NewEvent(eventType Type, requestID int64, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, requestID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain.
// An empty correlationID starts a new chain.
func NewEventWithCorrelation(eventType Type, requestID int64, payload map[string]interface{}, correlationID string) *Event {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		RequestID:     requestID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	out := *e
	out.Payload = newPayload
	return &out
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

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
