package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/domain/payment"
	"github.com/policlinic/backoffice/internal/types"
	"github.com/policlinic/backoffice/internal/validator"
)

// ProcessPaymentRequest records one payment against one or more invoices
type ProcessPaymentRequest struct {
	InvoiceIDs  []string          `json:"invoice_ids" validate:"omitempty,dive,required"`
	Amount      decimal.Decimal   `json:"amount"`
	PaymentType types.PaymentType `json:"payment_type"`
	ProcessedBy string            `json:"processed_by"`
	Notes       *string           `json:"notes,omitempty"`
	Currency    string            `json:"currency,omitempty" validate:"omitempty,len=3"`
}

func (r *ProcessPaymentRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *ProcessPaymentRequest) ToPayment() *payment.Payment {
	return payment.New(r.InvoiceIDs, r.Amount, r.PaymentType, r.ProcessedBy, r.Currency, r.Notes)
}

// PaymentResponse represents a payment together with the sessions and
// patients it settles
type PaymentResponse struct {
	ID          string            `json:"id"`
	InvoiceIDs  []string          `json:"invoice_ids"`
	GeneratedBy string            `json:"generated_by"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	PaymentDate time.Time         `json:"payment_date"`
	PaymentType types.PaymentType `json:"payment_type"`
	Notes       *string           `json:"notes,omitempty"`
	SessionIDs  []string          `json:"session_ids"`
	PatientIDs  []string          `json:"patient_ids"`
	CreatedAt   time.Time         `json:"created_at"`
}

func NewPaymentResponse(p *payment.Payment, sessionIDs, patientIDs []string) *PaymentResponse {
	if sessionIDs == nil {
		sessionIDs = []string{}
	}
	if patientIDs == nil {
		patientIDs = []string{}
	}
	return &PaymentResponse{
		ID:          p.ID,
		InvoiceIDs:  p.InvoiceIDs,
		GeneratedBy: p.GeneratedBy,
		Amount:      p.Amount,
		Currency:    p.Currency,
		PaymentDate: p.Date,
		PaymentType: p.Type,
		Notes:       p.Notes,
		SessionIDs:  sessionIDs,
		PatientIDs:  patientIDs,
		CreatedAt:   p.CreatedAt,
	}
}

// ListPaymentsResponse represents the response for listing payments
type ListPaymentsResponse = types.ListResponse[*PaymentResponse]
