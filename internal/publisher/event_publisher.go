package publisher

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/domain/events"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/pubsub"
)

// EventPublisher delivers domain events to the event topic
type EventPublisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

type eventPublisher struct {
	pubSub pubsub.Publisher
	logger *logger.Logger
	config *config.EventConfig
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(cfg *config.Configuration, logger *logger.Logger, pubSub pubsub.PubSub) EventPublisher {
	return &eventPublisher{
		pubSub: pubSub,
		logger: logger,
		config: &cfg.Event,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, event *events.Event) error {
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal event").
			Mark(ierr.ErrSystem)
	}

	log := p.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_name", event.EventName),
		zap.String("aggregate_id", event.AggregateID),
		zap.String("topic", p.config.Topic),
	)
	log.Debug("publishing event")

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = p.config.PublishMaxElapsedTime
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 5 * time.Second
	}

	operation := func() error {
		msg := message.NewMessage(event.ID, payload)
		msg.Metadata.Set(pubsub.MetadataEventName, event.EventName)
		msg.Metadata.Set(pubsub.MetadataAggregateID, event.AggregateID)
		msg.Metadata.Set(pubsub.MetadataPublishedAt, time.Now().UTC().Format(time.RFC3339Nano))
		return p.pubSub.Publish(ctx, p.config.Topic, msg)
	}
	notify := func(err error, wait time.Duration) {
		log.Warnw("publish failed, retrying", "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to publish event").
			WithReportableDetails(map[string]any{
				"event_id":   event.ID,
				"event_name": event.EventName,
			}).
			Mark(ierr.ErrSystem)
	}
	return nil
}
