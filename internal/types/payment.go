package types

import (
	"github.com/samber/lo"

	ierr "github.com/policlinic/backoffice/internal/errors"
)

// PaymentType is the means by which a payment was made
type PaymentType string

const (
	PaymentTypeCash         PaymentType = "CASH"
	PaymentTypeCard         PaymentType = "CARD"
	PaymentTypeBankTransfer PaymentType = "BANK_TRANSFER"
	PaymentTypeInsurance    PaymentType = "INSURANCE"
	// PaymentTypeRefund payments are recorded but never count towards the paid amount
	PaymentTypeRefund PaymentType = "REFUND"
)

func (t PaymentType) String() string {
	return string(t)
}

func (t PaymentType) Validate() error {
	if t == "" {
		return ierr.NewError("payment type is required").
			WithHint("Payment type is required").
			Mark(ierr.ErrValidation)
	}

	allowed := []PaymentType{
		PaymentTypeCash,
		PaymentTypeCard,
		PaymentTypeBankTransfer,
		PaymentTypeInsurance,
		PaymentTypeRefund,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid payment type").
			WithHintf("Payment type must be one of %v", allowed).
			WithReportableDetails(map[string]any{
				"payment_type": t,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CountsTowardsPaid reports whether payments of this type add to an invoice's paid amount
func (t PaymentType) CountsTowardsPaid() bool {
	return t != PaymentTypeRefund
}

// PaymentStatus is the derived settlement state of an invoice or session billing
type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "PENDING"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusFullyPaid     PaymentStatus = "FULLY_PAID"
)

func (s PaymentStatus) String() string {
	return string(s)
}
