package router

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/pubsub"
	"github.com/policlinic/backoffice/internal/sentry"
)

// Router dispatches billing and session events to their consumers
type Router struct {
	router *message.Router
	logger *logger.Logger
	sentry *sentry.Service
}

// NewRouter builds the message router. Failed messages are retried with
// exponential backoff, permanent failures are acked, and messages that
// exhaust their retries land in an in-process dead letter queue.
func NewRouter(cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service) (*Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NopLogger{})
	if err != nil {
		return nil, err
	}

	dlq := gochannel.NewGoChannel(gochannel.Config{Persistent: false}, watermill.NopLogger{})
	poisonQueue, err := middleware.PoisonQueue(dlq, cfg.Event.Topic+"_dlq")
	if err != nil {
		return nil, err
	}

	retry := middleware.Retry{
		MaxRetries:          cfg.Webhook.MaxRetries,
		InitialInterval:     cfg.Webhook.InitialInterval,
		MaxInterval:         cfg.Webhook.MaxInterval,
		Multiplier:          cfg.Webhook.Multiplier,
		MaxElapsedTime:      cfg.Webhook.MaxElapsedTime,
		RandomizationFactor: 0.5,
		OnRetryHook: func(retryNum int, delay time.Duration) {
			logger.Infow("retrying message", "retry_number", retryNum, "delay", delay)
		},
	}

	// the poison queue sees what is left after retries
	router.AddMiddleware(
		poisonQueue,
		middleware.Recoverer,
		middleware.CorrelationID,
		retry.Middleware,
		dropPermanentFailures(logger),
	)

	return &Router{
		router: router,
		logger: logger,
		sentry: sentry,
	}, nil
}

// AddNoPublishHandler subscribes handlerFunc to topic. Each message is traced
// as its own sentry transaction and failures are reported before retrying.
func (r *Router) AddNoPublishHandler(
	handlerName string,
	topic string,
	subscriber message.Subscriber,
	handlerFunc func(msg *message.Message) error,
	middlewares ...message.HandlerMiddleware,
) {
	handler := r.router.AddNoPublisherHandler(
		handlerName,
		topic,
		subscriber,
		func(msg *message.Message) error {
			tx, ctx := r.sentry.StartTransaction(msg.Context(), "consume "+handlerName)
			defer sentry.FinishSpan(tx)

			span, ctx := r.sentry.MonitorEventProcessing(ctx, msg.Metadata.Get(pubsub.MetadataEventName), publishedAt(msg), map[string]interface{}{
				"handler":      handlerName,
				"message_uuid": msg.UUID,
			})
			defer sentry.FinishSpan(span)

			msg.SetContext(ctx)
			if err := handlerFunc(msg); err != nil {
				r.sentry.CaptureExceptionWithContext(ctx, err)
				r.logger.Errorw("handler failed",
					"handler", handlerName,
					"error", err,
					"correlation_id", middleware.MessageCorrelationID(msg),
					"message_uuid", msg.UUID,
				)
				return err
			}
			return nil
		},
	)

	for _, m := range middlewares {
		handler.AddMiddleware(m)
	}
}

// publishedAt falls back to now for messages from producers that do not stamp them
func publishedAt(msg *message.Message) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, msg.Metadata.Get(pubsub.MetadataPublishedAt)); err == nil {
		return t
	}
	return time.Now()
}

// Run starts the router and blocks until ctx is cancelled or Close is called
func (r *Router) Run(ctx context.Context) error {
	r.logger.Info("starting message router")
	return r.router.Run(ctx)
}

// Running is closed once all handlers are subscribed
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Close gracefully shuts down the router
func (r *Router) Close() error {
	r.logger.Info("closing message router")
	return r.router.Close()
}
