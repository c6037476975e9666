package service

import (
	"github.com/ThreeDotsLabs/watermill/message"
	jsoniter "github.com/json-iterator/go"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/domain/events"
	pubsubRouter "github.com/policlinic/backoffice/internal/pubsub/router"
	"github.com/policlinic/backoffice/internal/types"
)

// SessionEventConsumer bills sessions as the scheduling system reports them completed
type SessionEventConsumer interface {
	RegisterHandler(router *pubsubRouter.Router, subscriber message.Subscriber, cfg *config.Configuration)
	ProcessMessage(msg *message.Message) error
}

type sessionEventConsumer struct {
	ServiceParams
	billingService BillingService
}

func NewSessionEventConsumer(params ServiceParams, billingService BillingService) SessionEventConsumer {
	return &sessionEventConsumer{
		ServiceParams:  params,
		billingService: billingService,
	}
}

func (c *sessionEventConsumer) RegisterHandler(router *pubsubRouter.Router, subscriber message.Subscriber, cfg *config.Configuration) {
	if cfg.Event.SessionTopic == "" {
		c.Logger.Info("no session topic configured, session completion consumer disabled")
		return
	}

	router.AddNoPublishHandler(
		"session_completed_handler",
		cfg.Event.SessionTopic,
		subscriber,
		c.ProcessMessage,
	)

	c.Logger.Infow("registered session completion handler",
		"topic", cfg.Event.SessionTopic,
	)
}

// ProcessMessage never returns an error: billing failures are logged by the
// billing service and malformed messages are dropped.
func (c *sessionEventConsumer) ProcessMessage(msg *message.Message) error {
	var event events.Event
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(msg.Payload, &event); err != nil {
		c.Logger.Errorw("failed to unmarshal session event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil
	}

	if event.EventName != events.EventSessionCompleted {
		return nil
	}

	var payload events.SessionCompleted
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(event.Payload, &payload); err != nil || payload.SessionID == "" {
		c.Logger.Errorw("invalid session completed payload",
			"error", err,
			"event_id", event.ID,
		)
		return nil
	}

	ctx := types.SetRequestID(msg.Context(), event.ID)
	userID := event.UserID
	if userID == "" {
		userID = types.DefaultUserID
	}
	ctx = types.SetUserID(ctx, userID)

	c.billingService.HandleSessionCompleted(ctx, payload.SessionID)
	return nil
}
