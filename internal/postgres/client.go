package postgres

import (
	"context"

	"go.uber.org/fx"

	"github.com/policlinic/backoffice/internal/logger"
	sentryService "github.com/policlinic/backoffice/internal/sentry"
)

// IClient runs units of work. Every mutating service operation goes through WithTx.
type IClient interface {
	// WithTx wraps the given function in a transaction. Nested calls reuse
	// the outer transaction through savepoints.
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

// Module provides the sqlx DB and the sentry-instrumented transaction client
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			NewClient,
		),
		fx.Invoke(func(lc fx.Lifecycle, db *DB) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					db.Close()
					return nil
				},
			})
		}),
	)
}

// NewClient returns the transaction client backed by db
func NewClient(db *DB, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return NewSentryClient(db, sentry, logger)
}
