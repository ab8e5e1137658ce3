package events

import "time"

// Event types emitted by the tutor.
const (
	SessionCreated       = "SESSION_CREATED"
	SubchapterSelected   = "SUBCHAPTER_SELECTED"
	SubchapterLoadFailed = "SUBCHAPTER_LOAD_FAILED"
	SessionReset         = "SESSION_RESET"
	MessageSent          = "MESSAGE_SENT"
	MessageFailed        = "MESSAGE_FAILED"
	SessionEnded         = "SESSION_ENDED"
	CatalogRebuilt       = "CATALOG_REBUILT"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the concrete event used everywhere; it is also the wire
// envelope on the internal bus.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
