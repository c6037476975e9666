package payment

import (
	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/types"
)

// DeriveStatus maps an amount owed and the amount paid so far to a payment status.
// Proforma documents are always pending.
func DeriveStatus(totalOwed, paidSoFar decimal.Decimal, isProforma bool) types.PaymentStatus {
	switch {
	case isProforma:
		return types.PaymentStatusPending
	case !paidSoFar.IsPositive():
		return types.PaymentStatusPending
	case paidSoFar.GreaterThanOrEqual(totalOwed):
		return types.PaymentStatusFullyPaid
	default:
		return types.PaymentStatusPartiallyPaid
	}
}

// TotalPaid sums the payments that count towards the paid amount.
// Refunds are neither added nor subtracted.
func TotalPaid(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if !p.Type.CountsTowardsPaid() {
			continue
		}
		total = total.Add(p.Amount)
	}
	return total
}
