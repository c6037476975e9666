package handler

import (
	"context"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/domain/events"
	"github.com/policlinic/backoffice/internal/httpclient"
	"github.com/policlinic/backoffice/internal/idempotency"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/pubsub"
	pubsubRouter "github.com/policlinic/backoffice/internal/pubsub/router"
	"github.com/policlinic/backoffice/internal/types"
	"github.com/policlinic/backoffice/internal/webhook/payload"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// Handler forwards billing events to the configured webhook endpoint
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
	ProcessMessage(msg *message.Message) error
}

type handler struct {
	pubSub    pubsub.PubSub
	config    *config.Webhook
	topic     string
	client    httpclient.Client
	generator *idempotency.Generator
	logger    *logger.Logger
}

func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	client httpclient.Client,
	logger *logger.Logger,
) Handler {
	return &handler{
		pubSub:    pubSub,
		config:    &cfg.Webhook,
		topic:     cfg.Event.Topic,
		client:    client,
		generator: idempotency.NewGenerator(),
		logger:    logger,
	}
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"webhook_handler",
		h.topic,
		h.pubSub,
		h.ProcessMessage,
	)
}

// ProcessMessage delivers a single event. Malformed and excluded events are acked.
func (h *handler) ProcessMessage(msg *message.Message) error {
	var event events.Event
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return nil
	}

	ctx := types.SetRequestID(msg.Context(), event.RequestID)
	ctx = types.SetUserID(ctx, event.UserID)

	if lo.Contains(h.config.ExcludedEvents, event.EventName) {
		h.logger.Debugw("event excluded from webhooks",
			"event_name", event.EventName,
			"event_id", event.ID,
		)
		return nil
	}

	return h.deliver(ctx, &event, msg.UUID)
}

func (h *handler) deliver(ctx context.Context, event *events.Event, messageUUID string) error {
	body, err := payload.Build(event)
	if err != nil {
		h.logger.Errorw("failed to build webhook payload",
			"error", err,
			"event_id", event.ID,
		)
		return nil
	}

	headers := make(map[string]string, len(h.config.Headers)+1)
	for k, v := range h.config.Headers {
		headers[k] = v
	}
	headers[HeaderIdempotencyKey] = h.generator.GenerateKey(idempotency.ScopeWebhookDelivery, map[string]interface{}{
		"event_id": event.ID,
	})

	resp, err := h.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     h.config.Endpoint,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		h.logger.WithContext(ctx).Errorw("failed to send webhook",
			"error", err,
			"message_uuid", messageUUID,
			"event_name", event.EventName,
			"event_id", event.ID,
		)
		return err
	}

	h.logger.WithContext(ctx).Infow("webhook sent successfully",
		"message_uuid", messageUUID,
		"event_name", event.EventName,
		"event_id", event.ID,
		"status_code", resp.StatusCode,
	)
	return nil
}
