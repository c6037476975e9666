package invoice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policlinic/backoffice/internal/domain/payment"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
)

func TestNew_NormalizesFields(t *testing.T) {
	date := time.Date(2025, time.March, 3, 17, 45, 0, 0, time.UTC)
	inv := New("  INV-0001 ", date, "u1", false, []string{"b1"})

	assert.Equal(t, "INV-0001", inv.InvoiceNumber)
	assert.Equal(t, time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC), inv.InvoiceDate)
	assert.NoError(t, inv.Validate())
}

func TestValidate(t *testing.T) {
	date := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		inv  *Invoice
	}{
		{name: "missing number", inv: New(" ", date, "u1", false, []string{"b1"})},
		{name: "missing date", inv: New("INV-1", time.Time{}, "u1", false, []string{"b1"})},
		{name: "missing user", inv: New("INV-1", date, "", false, []string{"b1"})},
		{name: "no billings", inv: New("INV-1", date, "u1", false, nil)},
		{name: "blank billing id", inv: New("INV-1", date, "u1", false, []string{""})},
		{name: "duplicate billing ids", inv: New("INV-1", date, "u1", false, []string{"b1", "b1"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.inv.Validate()
			require.Error(t, err)
			assert.True(t, ierr.IsValidation(err))
		})
	}
}

func TestConvertToFinal(t *testing.T) {
	date := time.Now()
	paid := []*payment.Payment{{Amount: decimal.NewFromInt(1), Type: types.PaymentTypeCash}}

	t.Run("proforma without payments", func(t *testing.T) {
		inv := New("INV-0002", date, "u1", true, []string{"b1"})
		require.NoError(t, inv.ConvertToFinal("INV-F-0002", nil))
		assert.False(t, inv.IsProforma)
		assert.Equal(t, "INV-F-0002", inv.InvoiceNumber)

		err := inv.ConvertToFinal("INV-F-0003", nil)
		require.Error(t, err)
		assert.True(t, ierr.IsInvalidState(err))
		assert.Contains(t, err.Error(), "invoice is not proforma")
		assert.Equal(t, "INV-F-0002", inv.InvoiceNumber)
	})

	t.Run("proforma with payments", func(t *testing.T) {
		inv := New("INV-0003", date, "u1", true, []string{"b1"})
		err := inv.ConvertToFinal("INV-F-0003", paid)
		require.Error(t, err)
		assert.True(t, ierr.IsInvalidState(err))
		assert.Contains(t, err.Error(), "invoice has existing payments")
		assert.True(t, inv.IsProforma)
		assert.Equal(t, "INV-0003", inv.InvoiceNumber)
	})

	t.Run("refund still blocks conversion", func(t *testing.T) {
		inv := New("INV-0004", date, "u1", true, []string{"b1"})
		refund := []*payment.Payment{{Amount: decimal.NewFromInt(1), Type: types.PaymentTypeRefund}}
		assert.ErrorIs(t, inv.ConvertToFinal("INV-F-0004", refund), ierr.ErrInvalidState)
	})

	t.Run("blank new number", func(t *testing.T) {
		inv := New("INV-0005", date, "u1", true, []string{"b1"})
		assert.ErrorIs(t, inv.ConvertToFinal("  ", nil), ierr.ErrValidation)
	})
}

func TestSummarize(t *testing.T) {
	amounts := []decimal.Decimal{decimal.RequireFromString("150.00"), decimal.RequireFromString("50.00")}

	final := New("INV-1", time.Now(), "u1", false, []string{"b1", "b2"})
	s := final.Summarize(amounts, nil)
	assert.True(t, decimal.NewFromInt(200).Equal(s.TotalAmount))
	assert.True(t, s.TotalPaid.IsZero())
	assert.Equal(t, types.PaymentStatusPending, s.PaymentStatus)

	payments := []*payment.Payment{
		{Amount: decimal.NewFromInt(120), Type: types.PaymentTypeCard},
		{Amount: decimal.NewFromInt(500), Type: types.PaymentTypeRefund},
	}
	s = final.Summarize(amounts, payments)
	assert.True(t, decimal.NewFromInt(120).Equal(s.TotalPaid))
	assert.True(t, decimal.NewFromInt(80).Equal(s.OutstandingAmount))
	assert.Equal(t, types.PaymentStatusPartiallyPaid, s.PaymentStatus)

	payments = append(payments, &payment.Payment{Amount: decimal.NewFromInt(80), Type: types.PaymentTypeCash})
	s = final.Summarize(amounts, payments)
	assert.True(t, s.OutstandingAmount.IsZero())
	assert.Equal(t, types.PaymentStatusFullyPaid, s.PaymentStatus)

	proforma := New("PRO-1", time.Now(), "u1", true, []string{"b1"})
	s = proforma.Summarize(amounts, payments)
	assert.Equal(t, types.PaymentStatusPending, s.PaymentStatus)
}
