package webhook

import (
	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/logger"
	pubsubRouter "github.com/policlinic/backoffice/internal/pubsub/router"
	"github.com/policlinic/backoffice/internal/webhook/handler"
)

// WebhookService attaches webhook delivery to the message router when enabled
type WebhookService struct {
	config  *config.Configuration
	handler handler.Handler
	logger  *logger.Logger
}

func NewWebhookService(cfg *config.Configuration, h handler.Handler, l *logger.Logger) *WebhookService {
	return &WebhookService{
		config:  cfg,
		handler: h,
		logger:  l,
	}
}

// Register adds the webhook handler to router. It is a no-op when webhooks are disabled.
func (s *WebhookService) Register(router *pubsubRouter.Router) {
	if !s.config.Webhook.Enabled {
		s.logger.Info("webhook delivery disabled")
		return
	}
	s.handler.RegisterHandler(router)
	s.logger.Infow("webhook delivery registered",
		"endpoint", s.config.Webhook.Endpoint,
		"topic", s.config.Event.Topic,
	)
}
