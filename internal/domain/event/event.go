package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a fact about attendance data that other components may react to
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	VendorID      string                 `json:"vendor_id,omitempty"`
	RecordID      int64                  `json:"record_id,omitempty"`
	Actor         string                 `json:"actor"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// New creates an event starting its own correlation chain
func New(eventType Type, actor, vendorID string, recordID int64, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return &Event{
		ID:            id,
		Type:          eventType,
		VendorID:      vendorID,
		RecordID:      recordID,
		Actor:         actor,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: id,
	}
}

// PayloadString retrieves a string value from the payload
func (e *Event) PayloadString(key string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return ""
}

// PayloadInt retrieves an integer value from the payload
func (e *Event) PayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// PayloadDates retrieves a list of YYYY-MM-DD strings from the payload
func (e *Event) PayloadDates(key string) []string {
	switch v := e.Payload[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
