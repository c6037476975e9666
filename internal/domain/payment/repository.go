package payment

import (
	"context"

	"github.com/policlinic/backoffice/internal/types"
)

// Repository defines the interface for payment persistence
type Repository interface {
	// Create stores the payment together with its invoice links
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
	Count(ctx context.Context, filter *types.PaymentFilter) (int, error)

	// ListByInvoiceIDs returns every payment linked to at least one of the invoices
	ListByInvoiceIDs(ctx context.Context, invoiceIDs []string) ([]*Payment, error)
}
