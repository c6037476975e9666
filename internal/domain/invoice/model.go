package invoice

import (
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/domain/payment"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
)

// Invoice bundles one or more session billings under a unique number.
// Amounts are derived from the linked billings and payments on read.
type Invoice struct {
	ID            string    `db:"id" json:"id"`
	InvoiceNumber string    `db:"invoice_number" json:"invoice_number"`
	InvoiceDate   time.Time `db:"invoice_date" json:"invoice_date"`
	GeneratedBy   string    `db:"generated_by" json:"generated_by"`
	IsProforma    bool      `db:"is_proforma" json:"is_proforma"`
	// SessionBillingIDs are stored in the invoice_session_billings join table
	SessionBillingIDs []string  `db:"-" json:"session_billing_ids"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
	Version           int       `db:"version" json:"version"`
}

// New builds an invoice. The number is trimmed and the date truncated to the day.
func New(number string, date time.Time, generatedBy string, isProforma bool, billingIDs []string) *Invoice {
	now := time.Now().UTC()
	return &Invoice{
		ID:                types.GenerateUUID(),
		InvoiceNumber:     strings.TrimSpace(number),
		InvoiceDate:       TruncateToDate(date),
		GeneratedBy:       generatedBy,
		IsProforma:        isProforma,
		SessionBillingIDs: billingIDs,
		CreatedAt:         now,
		UpdatedAt:         now,
		Version:           1,
	}
}

// TruncateToDate drops the time of day, keeping the calendar date in UTC
func TruncateToDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate validates the invoice
func (i *Invoice) Validate() error {
	if i.InvoiceNumber == "" {
		return ierr.NewError("invoice number is required").
			WithHint("Invoice number is required").
			Mark(ierr.ErrValidation)
	}
	if i.InvoiceDate.IsZero() {
		return ierr.NewError("invoice date is required").
			WithHint("Invoice date is required").
			Mark(ierr.ErrValidation)
	}
	if i.GeneratedBy == "" {
		return ierr.NewError("generated by is required").
			WithHint("The user issuing the invoice is required").
			Mark(ierr.ErrValidation)
	}
	if len(i.SessionBillingIDs) == 0 {
		return ierr.NewError("at least one session billing is required").
			WithHint("An invoice must reference at least one session billing").
			Mark(ierr.ErrValidation)
	}
	if lo.Contains(i.SessionBillingIDs, "") {
		return ierr.NewError("session billing id cannot be empty").
			WithHint("Session billing ids cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if dups := lo.FindDuplicates(i.SessionBillingIDs); len(dups) > 0 {
		return ierr.NewError("duplicate session billing ids").
			WithHint("Each session billing can only be listed once").
			WithReportableDetails(map[string]any{
				"duplicates": dups,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ConvertToFinal turns a proforma invoice into a final one under a new number.
// The transition is one-way.
func (i *Invoice) ConvertToFinal(newNumber string, payments []*payment.Payment) error {
	newNumber = strings.TrimSpace(newNumber)
	if newNumber == "" {
		return ierr.NewError("new invoice number is required").
			WithHint("A new invoice number is required").
			Mark(ierr.ErrValidation)
	}

	if !i.IsProforma {
		return ierr.NewError("invoice is not proforma").
			WithHint("Only proforma invoices can be converted to final").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
			}).
			Mark(ierr.ErrInvalidState)
	}

	if len(payments) > 0 {
		return ierr.NewError("invoice has existing payments").
			WithHint("Invoices with payments cannot be converted to final").
			WithReportableDetails(map[string]any{
				"invoice_id":    i.ID,
				"payment_count": len(payments),
			}).
			Mark(ierr.ErrInvalidState)
	}

	i.IsProforma = false
	i.InvoiceNumber = newNumber
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Summary holds the derived amounts of an invoice
type Summary struct {
	TotalAmount       decimal.Decimal     `json:"total_amount"`
	TotalPaid         decimal.Decimal     `json:"total_paid"`
	OutstandingAmount decimal.Decimal     `json:"outstanding_amount"`
	PaymentStatus     types.PaymentStatus `json:"payment_status"`
}

// Summarize derives totals from the final amounts of the linked billings
// and the payments linked to the invoice.
func (i *Invoice) Summarize(billingAmounts []decimal.Decimal, payments []*payment.Payment) Summary {
	total := decimal.Zero
	for _, amt := range billingAmounts {
		total = total.Add(amt)
	}
	paid := payment.TotalPaid(payments)
	return Summary{
		TotalAmount:       total,
		TotalPaid:         paid,
		OutstandingAmount: total.Sub(paid),
		PaymentStatus:     payment.DeriveStatus(total, paid, i.IsProforma),
	}
}
