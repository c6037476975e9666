package billing

import (
	"testing"

	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func charge(name, price string) ConsultationCharge {
	return ConsultationCharge{Name: name, Price: lo.ToPtr(decimal.RequireFromString(price)), Currency: "RON"}
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name    string
		charges []ConsultationCharge
		want    string
	}{
		{name: "empty", charges: nil, want: "0"},
		{name: "single", charges: []ConsultationCharge{charge("ecg", "80.50")}, want: "80.50"},
		{name: "sums prices", charges: []ConsultationCharge{charge("consult", "100.00"), charge("ecg", "50.00")}, want: "150.00"},
		{name: "nil price counts as zero", charges: []ConsultationCharge{charge("consult", "100.00"), {Name: "free"}}, want: "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subtotal(tt.charges)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestApplyDiscount(t *testing.T) {
	charges := []ConsultationCharge{charge("consult", "100.00"), charge("ecg", "50.00")}

	tests := []struct {
		name      string
		prior     []string
		amount    string
		reason    string
		appliedBy string
		wantErr   error
	}{
		{name: "full discount", amount: "150.00", reason: "courtesy", appliedBy: "u1"},
		{name: "partial discount", amount: "20", reason: "loyalty", appliedBy: "u1"},
		{name: "zero amount", amount: "0", reason: "x", appliedBy: "u1", wantErr: ierr.ErrValidation},
		{name: "negative amount", amount: "-1", reason: "x", appliedBy: "u1", wantErr: ierr.ErrValidation},
		{name: "blank reason", amount: "1", reason: "   ", appliedBy: "u1", wantErr: ierr.ErrValidation},
		{name: "missing user", amount: "1", reason: "x", wantErr: ierr.ErrValidation},
		{name: "exceeds subtotal", amount: "150.01", reason: "x", appliedBy: "u1", wantErr: ierr.ErrConflict},
		{name: "exceeds remaining", prior: []string{"100", "50"}, amount: "0.01", reason: "x", appliedBy: "u1", wantErr: ierr.ErrConflict},
		{name: "fills remaining", prior: []string{"100"}, amount: "50", reason: "x", appliedBy: "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("session-1", "u1")
			for _, p := range tt.prior {
				_, err := b.ApplyDiscount(charges, "u1", decimal.RequireFromString(p), "prior")
				require.NoError(t, err)
			}
			before := len(b.Discounts)

			d, err := b.ApplyDiscount(charges, tt.appliedBy, decimal.RequireFromString(tt.amount), tt.reason)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, d)
				assert.Len(t, b.Discounts, before)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, b.ID, d.BillingID)
			assert.Len(t, b.Discounts, before+1)
			assert.Same(t, d, b.Discounts[before])
			assert.False(t, b.FinalAmount(charges).IsNegative())
			assert.True(t, b.TotalDiscountAmount().LessThanOrEqual(b.SubtotalAmount(charges)))
		})
	}
}

func TestFinalAmount_TracksLiveConsultations(t *testing.T) {
	b := New("session-1", "u1")
	charges := []ConsultationCharge{charge("consult", "100.00"), charge("ecg", "50.00")}

	assert.True(t, decimal.RequireFromString("150").Equal(b.SubtotalAmount(charges)))
	assert.True(t, decimal.RequireFromString("150").Equal(b.FinalAmount(charges)))

	_, err := b.ApplyDiscount(charges, "u1", decimal.RequireFromString("150.00"), "courtesy")
	require.NoError(t, err)
	assert.True(t, b.FinalAmount(charges).IsZero())

	_, err = b.ApplyDiscount(charges, "u1", decimal.RequireFromString("0.01"), "x")
	assert.ErrorIs(t, err, ierr.ErrConflict)

	charges = append(charges, charge("lab", "30"))
	assert.True(t, decimal.RequireFromString("30").Equal(b.FinalAmount(charges)))
}
