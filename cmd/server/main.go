package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/policlinic/backoffice/internal/api"
	v1 "github.com/policlinic/backoffice/internal/api/v1"
	"github.com/policlinic/backoffice/internal/cache"
	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/postgres"
	"github.com/policlinic/backoffice/internal/publisher"
	"github.com/policlinic/backoffice/internal/pubsub"
	kafkaPubSub "github.com/policlinic/backoffice/internal/pubsub/kafka"
	"github.com/policlinic/backoffice/internal/pubsub/memory"
	pubsubRouter "github.com/policlinic/backoffice/internal/pubsub/router"
	"github.com/policlinic/backoffice/internal/repository"
	"github.com/policlinic/backoffice/internal/sentry"
	"github.com/policlinic/backoffice/internal/service"
	"github.com/policlinic/backoffice/internal/types"
	"github.com/policlinic/backoffice/internal/validator"
	"github.com/policlinic/backoffice/internal/webhook"
)

func init() {
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	opts = append(opts,
		fx.Provide(
			validator.NewValidator,

			config.NewConfig,

			logger.NewLogger,

			sentry.NewSentryService,

			cache.NewInMemoryCache,

			providePubSub,

			publisher.NewEventPublisher,

			repository.NewBillingRepository,
			repository.NewInvoiceRepository,
			repository.NewPaymentRepository,
			repository.NewSessionProvider,
			repository.NewUserDirectory,

			pubsubRouter.NewRouter,
		),
		postgres.Module(),
		webhook.Module,
	)

	opts = append(opts,
		fx.Provide(
			service.NewLocker,
			service.NewServiceParams,

			service.NewBillingService,
			service.NewInvoiceService,
			service.NewPaymentService,
			service.NewSessionEventConsumer,
		),
	)

	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

// providePubSub picks the transport for billing and session events
func providePubSub(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (pubsub.PubSub, error) {
	var (
		ps  pubsub.PubSub
		err error
	)
	switch cfg.Event.PubSub {
	case types.KafkaPubSub:
		ps, err = kafkaPubSub.NewPubSub(cfg, log)
		if err != nil {
			return nil, err
		}
	default:
		ps = memory.NewPubSub(log)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return ps.Close()
		},
	})
	return ps, nil
}

func provideHandlers(
	logger *logger.Logger,
	billingService service.BillingService,
	invoiceService service.InvoiceService,
	paymentService service.PaymentService,
) api.Handlers {
	return api.Handlers{
		Health:  v1.NewHealthHandler(logger),
		Billing: v1.NewBillingHandler(billingService, logger),
		Invoice: v1.NewInvoiceHandler(invoiceService, logger),
		Payment: v1.NewPaymentHandler(paymentService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger, sentry)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	ps pubsub.PubSub,
	router *pubsubRouter.Router,
	webhookService *webhook.WebhookService,
	sessionConsumer service.SessionEventConsumer,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startMessageRouter(lc, router, ps, webhookService, sessionConsumer, cfg, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeConsumer:
		startMessageRouter(lc, router, ps, webhookService, sessionConsumer, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down API server")
			ctx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})
}

func startMessageRouter(
	lc fx.Lifecycle,
	router *pubsubRouter.Router,
	ps pubsub.PubSub,
	webhookService *webhook.WebhookService,
	sessionConsumer service.SessionEventConsumer,
	cfg *config.Configuration,
	logger *logger.Logger,
) {
	// handlers must be registered before the router starts
	webhookService.Register(router)
	sessionConsumer.RegisterHandler(router, ps, cfg)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting message router")
			go func() {
				if err := router.Run(context.Background()); err != nil {
					logger.Errorw("message router failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping message router")
			return router.Close()
		},
	})
}
