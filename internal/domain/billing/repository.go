package billing

import (
	"context"
)

// Repository defines the interface for session billing persistence
type Repository interface {
	// Create persists a new billing. It fails with a conflict when a billing
	// already exists for the same session.
	Create(ctx context.Context, b *SessionBilling) error

	// Get retrieves a billing with its discount ledger
	Get(ctx context.Context, id string) (*SessionBilling, error)

	// GetForUpdate retrieves a billing and locks it for the current transaction
	GetForUpdate(ctx context.Context, id string) (*SessionBilling, error)

	GetBySessionID(ctx context.Context, sessionID string) (*SessionBilling, error)
	ExistsBySessionID(ctx context.Context, sessionID string) (bool, error)

	// ListByIDs returns the billings found among ids, in no particular order
	ListByIDs(ctx context.Context, ids []string) ([]*SessionBilling, error)

	// AppendDiscount stores d and bumps the billing version. b.Version must be
	// the version that was read, otherwise ErrVersionConflict is returned.
	AppendDiscount(ctx context.Context, b *SessionBilling, d *Discount) error
}
