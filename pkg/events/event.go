package events

import "time"

const (
	TypeTurnCompleted    = "turn_completed"
	TypeDocumentIngested = "document_ingested"
	TypeDocumentDetached = "document_detached"
	TypeSessionReset     = "session_reset"
	TypeFeedbackReceived = "feedback_received"
)

// Event defines the contract for all tutor events.
type Event interface {
	// EventType returns the subject suffix, e.g. "turn_completed".
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
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

func New(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["session_id"] = sessionID
	return BaseEvent{Type: eventType, Data: payload, OccurredAt: time.Now().UTC()}
}
