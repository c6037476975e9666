package events

import (
	"context"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/policlinic/backoffice/internal/types"
)

// Outbox collects events raised during a unit of work. Nothing leaves the
// outbox until Drain is called, which services do only after commit.
type Outbox struct {
	mu     sync.Mutex
	events []*Event
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

// Add wraps payload in an envelope stamped with the caller's user and request ids
func (o *Outbox) Add(ctx context.Context, name, aggregateID string, payload any) error {
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(payload)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, &Event{
		ID:          types.GenerateEventID(),
		EventName:   name,
		AggregateID: aggregateID,
		UserID:      types.GetUserID(ctx),
		RequestID:   types.GetRequestID(ctx),
		Timestamp:   time.Now().UTC(),
		Payload:     raw,
	})
	return nil
}

// Drain returns the queued events in order and empties the outbox
func (o *Outbox) Drain() []*Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.events
	o.events = nil
	return out
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.events)
}
