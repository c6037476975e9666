package repository

import (
	"github.com/policlinic/backoffice/internal/cache"
	"github.com/policlinic/backoffice/internal/domain/billing"
	"github.com/policlinic/backoffice/internal/domain/invoice"
	"github.com/policlinic/backoffice/internal/domain/payment"
	"github.com/policlinic/backoffice/internal/domain/session"
	"github.com/policlinic/backoffice/internal/domain/user"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/postgres"
	postgresRepo "github.com/policlinic/backoffice/internal/repository/postgres"
)

func NewBillingRepository(db *postgres.DB, logger *logger.Logger) billing.Repository {
	return postgresRepo.NewBillingRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewSessionProvider(db *postgres.DB, logger *logger.Logger) session.Provider {
	return postgresRepo.NewSessionProvider(db, logger)
}

func NewUserDirectory(db *postgres.DB, logger *logger.Logger, cache cache.Cache) user.Directory {
	return postgresRepo.NewUserDirectory(db, logger, cache)
}
