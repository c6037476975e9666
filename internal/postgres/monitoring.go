package postgres

import (
	"context"

	"github.com/getsentry/sentry-go"

	"github.com/policlinic/backoffice/internal/logger"
	sentryService "github.com/policlinic/backoffice/internal/sentry"
)

// SentryClient wraps a transaction client with Sentry span tracking
type SentryClient struct {
	client IClient
	sentry *sentryService.Service
	logger *logger.Logger
}

// NewSentryClient creates a new Sentry-instrumented Postgres client
func NewSentryClient(client IClient, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return &SentryClient{
		client: client,
		sentry: sentry,
		logger: logger,
	}
}

// WithTx wraps the given function in a transaction with Sentry span tracking
func (c *SentryClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	span, spanCtx := c.sentry.StartDBSpan(ctx, "postgres.transaction", map[string]interface{}{
		"operation": "transaction",
	})
	if span == nil {
		return c.client.WithTx(ctx, fn)
	}
	defer span.Finish()

	err := c.client.WithTx(spanCtx, fn)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("error", err.Error())
		return err
	}
	span.Status = sentry.SpanStatusOK
	return nil
}
