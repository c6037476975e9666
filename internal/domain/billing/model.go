package billing

import (
	"strings"
	"time"

	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
	"github.com/shopspring/decimal"
)

// ConsultationCharge is a priced consultation attached to a session
type ConsultationCharge struct {
	Name     string           `json:"name"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Currency string           `json:"currency"`
}

// Subtotal sums consultation prices. A missing price counts as zero.
func Subtotal(charges []ConsultationCharge) decimal.Decimal {
	total := decimal.Zero
	for _, c := range charges {
		if c.Price == nil {
			continue
		}
		total = total.Add(*c.Price)
	}
	return total
}

// SessionBilling is the billing record of one completed session.
// Amounts are never stored; they are derived from the session's
// consultations and the discount ledger on every read.
type SessionBilling struct {
	ID        string      `db:"id" json:"id"`
	SessionID string      `db:"session_id" json:"session_id"`
	Discounts []*Discount `db:"-" json:"discounts"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	CreatedBy string      `db:"created_by" json:"created_by"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
	Version   int         `db:"version" json:"version"`
}

// Discount is an immutable entry in a billing's discount ledger
type Discount struct {
	ID        string          `db:"id" json:"id"`
	BillingID string          `db:"billing_id" json:"billing_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Reason    string          `db:"reason" json:"reason"`
	AppliedBy string          `db:"applied_by" json:"applied_by"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// New creates a billing for the given session
func New(sessionID, createdBy string) *SessionBilling {
	now := time.Now().UTC()
	return &SessionBilling{
		ID:        types.GenerateUUID(),
		SessionID: sessionID,
		Discounts: make([]*Discount, 0),
		CreatedAt: now,
		CreatedBy: createdBy,
		UpdatedAt: now,
		Version:   1,
	}
}

// SubtotalAmount returns the live subtotal of the session's consultations
func (b *SessionBilling) SubtotalAmount(charges []ConsultationCharge) decimal.Decimal {
	return Subtotal(charges)
}

func (b *SessionBilling) TotalDiscountAmount() decimal.Decimal {
	total := decimal.Zero
	for _, d := range b.Discounts {
		total = total.Add(d.Amount)
	}
	return total
}

func (b *SessionBilling) FinalAmount(charges []ConsultationCharge) decimal.Decimal {
	return b.SubtotalAmount(charges).Sub(b.TotalDiscountAmount())
}

// ValidateDiscount checks the parts of a discount request that do not depend
// on the billing's current state
func ValidateDiscount(amount decimal.Decimal, reason, appliedBy string) error {
	if !amount.IsPositive() {
		return ierr.NewError("discount amount must be positive").
			WithHint("Discount amount must be greater than zero").
			WithReportableDetails(map[string]any{
				"amount": amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if strings.TrimSpace(reason) == "" {
		return ierr.NewError("discount reason is required").
			WithHint("Please provide a reason for the discount").
			Mark(ierr.ErrValidation)
	}

	if appliedBy == "" {
		return ierr.NewError("applied by is required").
			WithHint("The user applying the discount is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ApplyDiscount appends a discount to the ledger. The ledger is left
// untouched when any check fails.
func (b *SessionBilling) ApplyDiscount(charges []ConsultationCharge, appliedBy string, amount decimal.Decimal, reason string) (*Discount, error) {
	if err := ValidateDiscount(amount, reason, appliedBy); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)

	subtotal := b.SubtotalAmount(charges)
	totalDiscount := b.TotalDiscountAmount()
	if totalDiscount.Add(amount).GreaterThan(subtotal) {
		return nil, ierr.NewErrorf("discount of %s exceeds remaining amount %s", amount, subtotal.Sub(totalDiscount)).
			WithHintf("Total discount cannot exceed the session subtotal of %s", subtotal.StringFixed(2)).
			WithReportableDetails(map[string]any{
				"billing_id":     b.ID,
				"subtotal":       subtotal.String(),
				"total_discount": totalDiscount.String(),
				"amount":         amount.String(),
			}).
			Mark(ierr.ErrConflict)
	}

	d := &Discount{
		ID:        types.GenerateUUID(),
		BillingID: b.ID,
		Amount:    amount,
		Reason:    reason,
		AppliedBy: appliedBy,
		CreatedAt: time.Now().UTC(),
	}
	b.Discounts = append(b.Discounts, d)
	b.UpdatedAt = d.CreatedAt
	return d, nil
}
