package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/testutil"
)

// newTestServiceParams wires the in-memory stores of the base suite
func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		s.GetSentry(),
		stores.BillingRepo,
		stores.InvoiceRepo,
		stores.PaymentRepo,
		stores.SessionProvider,
		stores.UserDirectory,
		s.GetPublisher(),
		NewLocker(),
	)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func invoiceDate() *time.Time {
	d := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	return &d
}
