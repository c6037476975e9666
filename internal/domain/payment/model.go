package payment

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
)

// DefaultCurrency is used when a payment is recorded without a currency
const DefaultCurrency = "RON"

// Payment is a single scalar amount recorded against one or more invoices.
// It is immutable once created.
type Payment struct {
	// ID is the unique identifier of the payment
	ID string `db:"id" json:"id"`
	// InvoiceIDs are the invoices this payment was applied to, stored in the payment_invoices join table
	InvoiceIDs []string `db:"-" json:"invoice_ids"`
	// GeneratedBy is the id of the user that recorded the payment
	GeneratedBy string `db:"generated_by" json:"generated_by"`
	// Amount is applied to the set of invoices jointly and is never apportioned per invoice
	Amount   decimal.Decimal   `db:"amount" json:"amount"`
	Currency string            `db:"currency" json:"currency"`
	Date     time.Time         `db:"payment_date" json:"payment_date"`
	Type     types.PaymentType `db:"payment_type" json:"payment_type"`
	Notes    *string           `db:"notes" json:"notes,omitempty"`
	// CreatedAt is set once when the payment is stored
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// New builds a payment dated now. Callers validate before persisting.
func New(invoiceIDs []string, amount decimal.Decimal, paymentType types.PaymentType, generatedBy, currency string, notes *string) *Payment {
	now := time.Now().UTC()
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Payment{
		ID:          types.GenerateUUID(),
		InvoiceIDs:  lo.Uniq(invoiceIDs),
		GeneratedBy: generatedBy,
		Amount:      amount,
		Currency:    currency,
		Date:        now,
		Type:        paymentType,
		Notes:       notes,
		CreatedAt:   now,
	}
}

// Validate validates the payment
func (p *Payment) Validate() error {
	if len(p.InvoiceIDs) == 0 {
		return ierr.NewError("at least one invoice is required").
			WithHint("Please select at least one invoice").
			Mark(ierr.ErrValidation)
	}
	if lo.Contains(p.InvoiceIDs, "") {
		return ierr.NewError("invoice id cannot be empty").
			WithHint("Invoice ids cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			WithReportableDetails(map[string]any{
				"amount": p.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if err := p.Type.Validate(); err != nil {
		return err
	}
	if p.GeneratedBy == "" {
		return ierr.NewError("processed by is required").
			WithHint("The user recording the payment is required").
			Mark(ierr.ErrValidation)
	}
	if len(p.Currency) != 3 {
		return ierr.NewError("invalid currency").
			WithHint("Currency must be a three-letter ISO code").
			WithReportableDetails(map[string]any{
				"currency": p.Currency,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
