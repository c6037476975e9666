package config

import (
	"time"

	"github.com/policlinic/backoffice/internal/types"
)

// EventConfig holds configuration for the outbound event stream
type EventConfig struct {
	PubSub types.PubSubType `mapstructure:"pubsub" validate:"required,oneof=memory kafka"`
	// Topic receives every event emitted by the billing core
	Topic string `mapstructure:"topic" validate:"required"`
	// SessionTopic carries session lifecycle events from the scheduling system
	SessionTopic string `mapstructure:"session_topic"`
	// PublishMaxElapsedTime bounds publish retries of a single event
	PublishMaxElapsedTime time.Duration `mapstructure:"publish_max_elapsed_time"`
}
