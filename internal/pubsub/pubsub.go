package pubsub

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Metadata keys stamped on every published event
const (
	MetadataEventName   = "event_name"
	MetadataAggregateID = "aggregate_id"
	MetadataPublishedAt = "published_at"
)

// Publisher publishes messages to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
	Close() error
}

// Subscriber streams messages from a topic until ctx is cancelled
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// PubSub combines both Publisher and Subscriber interfaces
type PubSub interface {
	Publisher
	Subscriber
}
