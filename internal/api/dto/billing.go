package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/domain/billing"
	"github.com/policlinic/backoffice/internal/domain/session"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
	"github.com/policlinic/backoffice/internal/validator"
)

// CreateSessionBillingRequest creates the billing of a completed session
type CreateSessionBillingRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

func (r *CreateSessionBillingRequest) Validate() error {
	r.SessionID = strings.TrimSpace(r.SessionID)
	if r.SessionID == "" {
		return ierr.NewError("session id is required").
			WithHint("Please provide a session id").
			Mark(ierr.ErrValidation)
	}
	return validator.ValidateRequest(r)
}

// ApplyDiscountRequest targets a billing either by its id or by its session id
type ApplyDiscountRequest struct {
	BillingID string          `json:"billing_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	AppliedBy string          `json:"applied_by"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func (r *ApplyDiscountRequest) Validate() error {
	if r.BillingID == "" && r.SessionID == "" {
		return ierr.NewError("billing id or session id is required").
			WithHint("Please provide the billing or the session to discount").
			Mark(ierr.ErrValidation)
	}
	if r.BillingID != "" && r.SessionID != "" {
		return ierr.NewError("only one of billing id and session id can be set").
			WithHint("Provide either a billing id or a session id, not both").
			WithReportableDetails(map[string]any{
				"billing_id": r.BillingID,
				"session_id": r.SessionID,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// DiscountResponse is one entry of the discount ledger
type DiscountResponse struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	AppliedBy string          `json:"applied_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// SessionBillingResponse carries the billing with its live amounts
type SessionBillingResponse struct {
	ID                  string                       `json:"id"`
	SessionID           string                       `json:"session_id"`
	PatientID           string                       `json:"patient_id"`
	Consultations       []billing.ConsultationCharge `json:"consultations"`
	Discounts           []*DiscountResponse          `json:"discounts"`
	SubtotalAmount      decimal.Decimal              `json:"subtotal_amount"`
	TotalDiscountAmount decimal.Decimal              `json:"total_discount_amount"`
	FinalAmount         decimal.Decimal              `json:"final_amount"`
	PaymentStatus       types.PaymentStatus          `json:"payment_status"`
	CreatedBy           string                       `json:"created_by"`
	CreatedAt           time.Time                    `json:"created_at"`
	UpdatedAt           time.Time                    `json:"updated_at"`
}

func NewSessionBillingResponse(b *billing.SessionBilling, s *session.Session, status types.PaymentStatus) *SessionBillingResponse {
	discounts := make([]*DiscountResponse, 0, len(b.Discounts))
	for _, d := range b.Discounts {
		discounts = append(discounts, NewDiscountResponse(d))
	}
	return &SessionBillingResponse{
		ID:                  b.ID,
		SessionID:           b.SessionID,
		PatientID:           s.PatientID,
		Consultations:       s.Consultations,
		Discounts:           discounts,
		SubtotalAmount:      b.SubtotalAmount(s.Consultations),
		TotalDiscountAmount: b.TotalDiscountAmount(),
		FinalAmount:         b.FinalAmount(s.Consultations),
		PaymentStatus:       status,
		CreatedBy:           b.CreatedBy,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func NewDiscountResponse(d *billing.Discount) *DiscountResponse {
	return &DiscountResponse{
		ID:        d.ID,
		Amount:    d.Amount,
		Reason:    d.Reason,
		AppliedBy: d.AppliedBy,
		CreatedAt: d.CreatedAt,
	}
}

// FinalAmountResponse answers "how much does this session cost right now"
type FinalAmountResponse struct {
	SessionID string `json:"session_id"`
	// BillingID is empty when the session has not been billed yet
	BillingID   string          `json:"billing_id,omitempty"`
	FinalAmount decimal.Decimal `json:"final_amount"`
}
