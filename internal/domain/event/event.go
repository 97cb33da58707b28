package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by publishers and subscribers
const (
	KeyStatus      = "status"
	KeyHolder      = "holder"
	KeyActor       = "actor"
	KeyComment     = "comment"
	KeyDirectedTo  = "directed_to"
	KeyFollowUpID  = "follow_up_id"
	KeyDelegateID  = "delegate_id"
	KeyRequestType = "request_type"
)

// Event is something that happened to a request after it was committed
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequestID     int64                  `json:"request_id"`
	RequestNumber string                 `json:"request_number"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates an event that starts its own correlation chain
func NewEvent(eventType Type, requestID int64, requestNumber string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, requestID, requestNumber, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain,
// e.g. the events raised by a single action
func NewEventWithCorrelation(eventType Type, requestID int64, requestNumber string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		RequestID:     requestID,
		RequestNumber: requestNumber,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a copy of the event with key set
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	c := *e
	c.Payload = payload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case interface{ String() string }:
			return v.String()
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
