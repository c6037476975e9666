package events

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/types"
)

// Event names emitted after successful mutations
const (
	EventSessionBillingCalculated = "session_billing.calculated"
	EventManualDiscountApplied    = "session_billing.discount_applied"
	EventInvoiceCreated           = "invoice.created"
	EventInvoiceConvertedToFinal  = "invoice.converted_to_final"
	EventPaymentProcessed         = "payment.processed"

	// EventSessionCompleted is consumed, never emitted, by this service
	EventSessionCompleted = "session.completed"
)

// Event is the envelope published to the event topic
type Event struct {
	ID          string              `json:"id"`
	EventName   string              `json:"event_name"`
	AggregateID string              `json:"aggregate_id"`
	UserID      string              `json:"user_id,omitempty"`
	RequestID   string              `json:"request_id,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
	Payload     jsoniter.RawMessage `json:"payload"`
}

type SessionBillingCalculated struct {
	BillingID         string          `json:"billing_id"`
	SessionID         string          `json:"session_id"`
	PatientID         string          `json:"patient_id"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Final             decimal.Decimal `json:"final"`
	ConsultationNames []string        `json:"consultation_names"`
}

type ManualDiscountApplied struct {
	BillingID       string          `json:"billing_id"`
	SessionID       string          `json:"session_id"`
	Amount          decimal.Decimal `json:"amount"`
	Reason          string          `json:"reason"`
	AppliedByUserID string          `json:"applied_by_user_id"`
}

type InvoiceCreated struct {
	InvoiceID         string          `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	GeneratedByUserID string          `json:"generated_by_user_id"`
	IsProforma        bool            `json:"is_proforma"`
	SessionBillingIDs []string        `json:"session_billing_ids"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
}

type InvoiceConvertedToFinal struct {
	InvoiceID string `json:"invoice_id"`
	OldNumber string `json:"old_number"`
	NewNumber string `json:"new_number"`
}

type PaymentProcessed struct {
	PaymentID   string            `json:"payment_id"`
	InvoiceIDs  []string          `json:"invoice_ids"`
	Amount      decimal.Decimal   `json:"amount"`
	PaymentType types.PaymentType `json:"payment_type"`
	PatientIDs  []string          `json:"patient_ids"`
}

// SessionCompleted is published by the scheduling system when a session ends
type SessionCompleted struct {
	SessionID string `json:"session_id"`
}
