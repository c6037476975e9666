package api

import (
	"github.com/gin-gonic/gin"

	v1 "github.com/policlinic/backoffice/internal/api/v1"
	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/rest/middleware"
	"github.com/policlinic/backoffice/internal/sentry"
	"github.com/policlinic/backoffice/internal/types"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Billing *v1.BillingHandler
	Invoice *v1.InvoiceHandler
	Payment *v1.PaymentHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.RequestIDMiddleware,
		middleware.UserMiddleware,
		middleware.SentryScopeMiddleware,
		middleware.ErrorHandler(logger, sentry),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	billings := router.Group("/billings")
	{
		billings.POST("", handlers.Billing.CreateSessionBilling)
		billings.GET("/:id", handlers.Billing.GetBilling)
		billings.POST("/:id/discounts", handlers.Billing.ApplyDiscount)
	}

	sessions := router.Group("/sessions")
	{
		sessions.GET("/:id/billing", handlers.Billing.GetBillingForSession)
		sessions.GET("/:id/final-amount", handlers.Billing.GetFinalAmount)
		sessions.POST("/:id/discounts", handlers.Billing.ApplySessionDiscount)
	}

	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.GET("/number/:number", handlers.Invoice.GetInvoiceByNumber)
		invoices.POST("/:id/finalize", handlers.Invoice.ConvertToFinal)
	}

	payments := router.Group("/payments")
	{
		payments.POST("", handlers.Payment.ProcessPayment)
		payments.GET("", handlers.Payment.ListPayments)
		payments.GET("/:id", handlers.Payment.GetPayment)
	}
}
