package service

import (
	"github.com/policlinic/backoffice/internal/config"
	"github.com/policlinic/backoffice/internal/domain/billing"
	"github.com/policlinic/backoffice/internal/domain/invoice"
	"github.com/policlinic/backoffice/internal/domain/payment"
	"github.com/policlinic/backoffice/internal/domain/session"
	"github.com/policlinic/backoffice/internal/domain/user"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/postgres"
	"github.com/policlinic/backoffice/internal/publisher"
	"github.com/policlinic/backoffice/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Sentry *sentry.Service

	// Repositories
	BillingRepo billing.Repository
	InvoiceRepo invoice.Repository
	PaymentRepo payment.Repository

	// Providers owned by other systems
	SessionProvider session.Provider
	UserDirectory   user.Directory

	// Publishers
	EventPublisher publisher.EventPublisher

	// Locker serializes units of work per aggregate within this process
	Locker *Locker
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	sentry *sentry.Service,
	billingRepo billing.Repository,
	invoiceRepo invoice.Repository,
	paymentRepo payment.Repository,
	sessionProvider session.Provider,
	userDirectory user.Directory,
	eventPublisher publisher.EventPublisher,
	locker *Locker,
) ServiceParams {
	return ServiceParams{
		Logger:          logger,
		Config:          config,
		DB:              db,
		Sentry:          sentry,
		BillingRepo:     billingRepo,
		InvoiceRepo:     invoiceRepo,
		PaymentRepo:     paymentRepo,
		SessionProvider: sessionProvider,
		UserDirectory:   userDirectory,
		EventPublisher:  eventPublisher,
		Locker:          locker,
	}
}
