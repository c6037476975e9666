package testutil

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"github.com/policlinic/backoffice/internal/domain/events"
	"github.com/policlinic/backoffice/internal/publisher"
)

var _ publisher.EventPublisher = (*InMemoryEventPublisher)(nil)

// InMemoryEventPublisher records published events for assertions
type InMemoryEventPublisher struct {
	mu     sync.RWMutex
	events []*events.Event
	err    error
}

func NewInMemoryEventPublisher() *InMemoryEventPublisher {
	return &InMemoryEventPublisher{
		events: make([]*events.Event, 0),
	}
}

// Publish records the event, or fails with the error set through SetError
func (p *InMemoryEventPublisher) Publish(_ context.Context, event *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// SetError makes every publish fail with err until it is reset with nil
func (p *InMemoryEventPublisher) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Events returns all published events in publish order
func (p *InMemoryEventPublisher) Events() []*events.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*events.Event(nil), p.events...)
}

// EventsByName returns the published events with the given name
func (p *InMemoryEventPublisher) EventsByName(name string) []*events.Event {
	return lo.Filter(p.Events(), func(e *events.Event, _ int) bool {
		return e.EventName == name
	})
}

// Clear removes all published events
func (p *InMemoryEventPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = make([]*events.Event, 0)
	p.err = nil
}
