package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/policlinic/backoffice/internal/domain/invoice"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

// Helper to copy invoice
func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.SessionBillingIDs = append([]string(nil), inv.SessionBillingIDs...)
	return &c
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.find(func(other *invoice.Invoice) bool { return other.InvoiceNumber == inv.InvoiceNumber }); exists {
		return duplicateNumber(inv.InvoiceNumber)
	}
	if _, exists := s.items[inv.ID]; exists {
		return ierr.NewError("invoice already exists").
			WithHintf("Invoice %s already exists", inv.ID).
			Mark(ierr.ErrConflict)
	}

	s.items[inv.ID] = copyInvoice(inv)
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.items[id]
	if !ok {
		return nil, notFound("Invoice", id)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.Get(ctx, id)
}

func (s *InMemoryInvoiceStore) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.find(func(inv *invoice.Invoice) bool { return inv.InvoiceNumber == number })
	if !ok {
		return nil, notFound("Invoice", number)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.find(func(inv *invoice.Invoice) bool { return inv.InvoiceNumber == number })
	return ok, nil
}

func (s *InMemoryInvoiceStore) ListByIDs(ctx context.Context, ids []string) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*invoice.Invoice, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		if inv, ok := s.items[id]; ok {
			result = append(result, copyInvoice(inv))
		}
	}
	return result, nil
}

func (s *InMemoryInvoiceStore) ListBySessionBillingID(ctx context.Context, billingID string) ([]*invoice.Invoice, error) {
	filter := types.NewNoLimitInvoiceFilter()
	filter.SessionBillingID = &billingID
	return s.List(ctx, filter)
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[inv.ID]
	if !ok {
		return notFound("Invoice", inv.ID)
	}
	if stored.Version != inv.Version {
		return versionConflict("Invoice", inv.ID)
	}
	if _, exists := s.find(func(other *invoice.Invoice) bool {
		return other.ID != inv.ID && other.InvoiceNumber == inv.InvoiceNumber
	}); exists {
		return duplicateNumber(inv.InvoiceNumber)
	}

	updated := copyInvoice(inv)
	updated.Version++
	s.items[inv.ID] = updated
	inv.Version++
	return nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice { return copyInvoice(inv) }), nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return true
	}
	if len(f.InvoiceIDs) > 0 && !lo.Contains(f.InvoiceIDs, inv.ID) {
		return false
	}
	if f.IsProforma != nil && inv.IsProforma != *f.IsProforma {
		return false
	}
	if f.GeneratedByID != nil && inv.GeneratedBy != *f.GeneratedByID {
		return false
	}
	if f.SessionBillingID != nil && !lo.Contains(inv.SessionBillingIDs, *f.SessionBillingID) {
		return false
	}
	if f.TimeRangeFilter != nil {
		if f.StartTime != nil && inv.InvoiceDate.Before(*f.StartTime) {
			return false
		}
		if f.EndTime != nil && inv.InvoiceDate.After(*f.EndTime) {
			return false
		}
	}
	return true
}

func invoiceSortFn(a, b *invoice.Invoice) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func duplicateNumber(number string) error {
	return ierr.NewError("invoice number already exists").
		WithHintf("Invoice number %s already exists", number).
		Mark(ierr.ErrConflict)
}
