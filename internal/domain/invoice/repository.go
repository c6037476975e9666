package invoice

import (
	"context"

	"github.com/policlinic/backoffice/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// Create stores a new invoice with its billing links. A duplicate number
	// fails with ErrConflict.
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an invoice by ID
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetForUpdate retrieves an invoice and locks it for the current transaction
	GetForUpdate(ctx context.Context, id string) (*Invoice, error)

	// GetByNumber retrieves an invoice by its number
	GetByNumber(ctx context.Context, number string) (*Invoice, error)

	ExistsByNumber(ctx context.Context, number string) (bool, error)

	// ListByIDs returns the invoices found among ids, in no particular order
	ListByIDs(ctx context.Context, ids []string) ([]*Invoice, error)

	// ListBySessionBillingID returns every invoice linking the billing
	ListBySessionBillingID(ctx context.Context, billingID string) ([]*Invoice, error)

	// Update persists a conversion. invoice.Version must be the version that
	// was read, otherwise ErrVersionConflict is returned.
	Update(ctx context.Context, invoice *Invoice) error

	// List retrieves invoices based on filter criteria
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices based on filter criteria
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)
}
