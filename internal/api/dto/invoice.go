package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/domain/invoice"
	"github.com/policlinic/backoffice/internal/types"
	"github.com/policlinic/backoffice/internal/validator"
)

// CreateInvoiceRequest issues a proforma or final invoice over session billings
type CreateInvoiceRequest struct {
	InvoiceNumber string `json:"invoice_number"`
	// AutoNumber generates a number when InvoiceNumber is empty
	AutoNumber        bool       `json:"auto_number"`
	InvoiceDate       *time.Time `json:"invoice_date,omitempty"`
	GeneratedBy       string     `json:"generated_by"`
	IsProforma        bool       `json:"is_proforma"`
	SessionBillingIDs []string   `json:"session_billing_ids" validate:"omitempty,dive,required"`
}

// Validate fills in the generated number, then checks the request shape.
// Business checks happen on the invoice itself.
func (r *CreateInvoiceRequest) Validate() error {
	r.InvoiceNumber = strings.TrimSpace(r.InvoiceNumber)
	if r.InvoiceNumber == "" && r.AutoNumber {
		r.InvoiceNumber = types.GenerateInvoiceNumber(invoiceNumberPrefix(r.IsProforma))
	}
	return validator.ValidateRequest(r)
}

func (r *CreateInvoiceRequest) ToInvoice() *invoice.Invoice {
	var date time.Time
	if r.InvoiceDate != nil {
		date = *r.InvoiceDate
	}
	return invoice.New(r.InvoiceNumber, date, r.GeneratedBy, r.IsProforma, r.SessionBillingIDs)
}

// ConvertToFinalRequest carries the number of the final invoice
type ConvertToFinalRequest struct {
	InvoiceNumber string `json:"invoice_number"`
	AutoNumber    bool   `json:"auto_number"`
}

func (r *ConvertToFinalRequest) Validate() error {
	r.InvoiceNumber = strings.TrimSpace(r.InvoiceNumber)
	if r.InvoiceNumber == "" && r.AutoNumber {
		r.InvoiceNumber = types.GenerateInvoiceNumber(types.INVOICE_NUMBER_PREFIX_FINAL)
	}
	return validator.ValidateRequest(r)
}

// InvoiceResponse carries the invoice with its live amounts
type InvoiceResponse struct {
	ID                string              `json:"id"`
	InvoiceNumber     string              `json:"invoice_number"`
	InvoiceDate       time.Time           `json:"invoice_date"`
	GeneratedBy       string              `json:"generated_by"`
	IsProforma        bool                `json:"is_proforma"`
	SessionBillingIDs []string            `json:"session_billing_ids"`
	PaymentIDs        []string            `json:"payment_ids"`
	TotalAmount       decimal.Decimal     `json:"total_amount"`
	TotalPaid         decimal.Decimal     `json:"total_paid"`
	OutstandingAmount decimal.Decimal     `json:"outstanding_amount"`
	PaymentStatus     types.PaymentStatus `json:"payment_status"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func NewInvoiceResponse(inv *invoice.Invoice, summary invoice.Summary, paymentIDs []string) *InvoiceResponse {
	if paymentIDs == nil {
		paymentIDs = []string{}
	}
	return &InvoiceResponse{
		ID:                inv.ID,
		InvoiceNumber:     inv.InvoiceNumber,
		InvoiceDate:       inv.InvoiceDate,
		GeneratedBy:       inv.GeneratedBy,
		IsProforma:        inv.IsProforma,
		SessionBillingIDs: inv.SessionBillingIDs,
		PaymentIDs:        paymentIDs,
		TotalAmount:       summary.TotalAmount,
		TotalPaid:         summary.TotalPaid,
		OutstandingAmount: summary.OutstandingAmount,
		PaymentStatus:     summary.PaymentStatus,
		CreatedAt:         inv.CreatedAt,
		UpdatedAt:         inv.UpdatedAt,
	}
}

// ListInvoicesResponse represents the response for listing invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]

func invoiceNumberPrefix(isProforma bool) string {
	if isProforma {
		return types.INVOICE_NUMBER_PREFIX_PROFORMA
	}
	return types.INVOICE_NUMBER_PREFIX_FINAL
}
