package payload

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/policlinic/backoffice/internal/domain/events"
)

// WebhookPayload is the body posted to the webhook endpoint
type WebhookPayload struct {
	EventType   string              `json:"event_type"`
	EventID     string              `json:"event_id"`
	AggregateID string              `json:"aggregate_id"`
	Timestamp   time.Time           `json:"timestamp"`
	Data        jsoniter.RawMessage `json:"data"`
}

// Build wraps an event into the webhook body
func Build(event *events.Event) ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(&WebhookPayload{
		EventType:   event.EventName,
		EventID:     event.ID,
		AggregateID: event.AggregateID,
		Timestamp:   event.Timestamp,
		Data:        event.Payload,
	})
}
