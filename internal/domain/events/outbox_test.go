package events

import (
	"context"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policlinic/backoffice/internal/types"
)

func TestOutbox_AddAndDrain(t *testing.T) {
	ctx := types.SetUserID(context.Background(), "u1")
	ctx = types.SetRequestID(ctx, "req-1")

	o := NewOutbox()
	require.NoError(t, o.Add(ctx, EventInvoiceConvertedToFinal, "inv-1", InvoiceConvertedToFinal{
		InvoiceID: "inv-1",
		OldNumber: "PRO-1",
		NewNumber: "INV-1",
	}))
	require.NoError(t, o.Add(ctx, EventManualDiscountApplied, "b-1", ManualDiscountApplied{BillingID: "b-1"}))
	assert.Equal(t, 2, o.Len())

	drained := o.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, 0, o.Len())
	assert.Empty(t, o.Drain())

	first := drained[0]
	assert.Equal(t, EventInvoiceConvertedToFinal, first.EventName)
	assert.Equal(t, "inv-1", first.AggregateID)
	assert.Equal(t, "u1", first.UserID)
	assert.Equal(t, "req-1", first.RequestID)
	assert.Contains(t, first.ID, types.UUID_PREFIX_EVENT+"_")
	assert.NotEqual(t, first.ID, drained[1].ID)

	var payload InvoiceConvertedToFinal
	require.NoError(t, jsoniter.Unmarshal(first.Payload, &payload))
	assert.Equal(t, "PRO-1", payload.OldNumber)
	assert.Equal(t, "INV-1", payload.NewNumber)
}
