package webhook

import (
	"go.uber.org/fx"

	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/httpclient"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/webhook/handler"
)

// Module provides all webhook-related dependencies
var Module = fx.Options(
	fx.Provide(
		provideHTTPClient,
		handler.NewHandler,
		NewWebhookService,
	),
)

func provideHTTPClient(cfg *config.Configuration, logger *logger.Logger) httpclient.Client {
	return httpclient.NewDefaultClient(httpclient.NewClientConfig(cfg), logger)
}
