package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/policlinic/backoffice/internal/domain/payment"
	"github.com/policlinic/backoffice/internal/types"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func copyPayment(p *payment.Payment) *payment.Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.InvoiceIDs = append([]string(nil), p.InvoiceIDs...)
	if p.Notes != nil {
		c.Notes = lo.ToPtr(*p.Notes)
	}
	return &c
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	return s.InMemoryStore.Create(ctx, p.ID, copyPayment(p))
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, notFound("Payment", id)
	}
	return copyPayment(p), nil
}

func (s *InMemoryPaymentStore) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewNoLimitPaymentFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter, paymentFilterFn, paymentSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *payment.Payment, _ int) *payment.Payment { return copyPayment(p) }), nil
}

func (s *InMemoryPaymentStore) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitPaymentFilter()
	}
	return s.InMemoryStore.Count(ctx, filter, paymentFilterFn)
}

func (s *InMemoryPaymentStore) ListByInvoiceIDs(ctx context.Context, invoiceIDs []string) ([]*payment.Payment, error) {
	if len(invoiceIDs) == 0 {
		return []*payment.Payment{}, nil
	}
	items, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, p *payment.Payment, _ interface{}) bool {
		return len(lo.Intersect(p.InvoiceIDs, invoiceIDs)) > 0
	}, func(a, b *payment.Payment) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *payment.Payment, _ int) *payment.Payment { return copyPayment(p) }), nil
}

func paymentFilterFn(ctx context.Context, p *payment.Payment, filter interface{}) bool {
	f, ok := filter.(*types.PaymentFilter)
	if !ok || f == nil {
		return true
	}
	if len(f.PaymentIDs) > 0 && !lo.Contains(f.PaymentIDs, p.ID) {
		return false
	}
	if f.InvoiceID != nil && !lo.Contains(p.InvoiceIDs, *f.InvoiceID) {
		return false
	}
	if f.PaymentType != nil && p.Type != *f.PaymentType {
		return false
	}
	if f.Currency != nil && p.Currency != *f.Currency {
		return false
	}
	if f.TimeRangeFilter != nil {
		if f.StartTime != nil && p.Date.Before(*f.StartTime) {
			return false
		}
		if f.EndTime != nil && p.Date.After(*f.EndTime) {
			return false
		}
	}
	return true
}

func paymentSortFn(a, b *payment.Payment) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
