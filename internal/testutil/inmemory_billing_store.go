package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/policlinic/backoffice/internal/domain/billing"
	ierr "github.com/policlinic/backoffice/internal/errors"
)

// InMemoryBillingStore implements billing.Repository
type InMemoryBillingStore struct {
	*InMemoryStore[*billing.SessionBilling]
}

func NewInMemoryBillingStore() *InMemoryBillingStore {
	return &InMemoryBillingStore{
		InMemoryStore: NewInMemoryStore[*billing.SessionBilling](),
	}
}

func copyBilling(b *billing.SessionBilling) *billing.SessionBilling {
	if b == nil {
		return nil
	}
	c := *b
	c.Discounts = make([]*billing.Discount, 0, len(b.Discounts))
	for _, d := range b.Discounts {
		dc := *d
		c.Discounts = append(c.Discounts, &dc)
	}
	return &c
}

func (s *InMemoryBillingStore) Create(ctx context.Context, b *billing.SessionBilling) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.find(func(other *billing.SessionBilling) bool { return other.SessionID == b.SessionID }); exists {
		return ierr.NewError("session billing already exists").
			WithHintf("Session %s has already been billed", b.SessionID).
			Mark(ierr.ErrConflict)
	}
	if _, exists := s.items[b.ID]; exists {
		return ierr.NewError("session billing already exists").
			WithHintf("Session billing %s already exists", b.ID).
			Mark(ierr.ErrConflict)
	}

	s.items[b.ID] = copyBilling(b)
	return nil
}

func (s *InMemoryBillingStore) Get(ctx context.Context, id string) (*billing.SessionBilling, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.items[id]
	if !ok {
		return nil, notFound("Session billing", id)
	}
	return copyBilling(b), nil
}

func (s *InMemoryBillingStore) GetForUpdate(ctx context.Context, id string) (*billing.SessionBilling, error) {
	return s.Get(ctx, id)
}

func (s *InMemoryBillingStore) GetBySessionID(ctx context.Context, sessionID string) (*billing.SessionBilling, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.find(func(b *billing.SessionBilling) bool { return b.SessionID == sessionID })
	if !ok {
		return nil, notFound("Session billing for session", sessionID)
	}
	return copyBilling(b), nil
}

func (s *InMemoryBillingStore) ExistsBySessionID(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.find(func(b *billing.SessionBilling) bool { return b.SessionID == sessionID })
	return ok, nil
}

func (s *InMemoryBillingStore) ListByIDs(ctx context.Context, ids []string) ([]*billing.SessionBilling, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*billing.SessionBilling, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		if b, ok := s.items[id]; ok {
			result = append(result, copyBilling(b))
		}
	}
	return result, nil
}

func (s *InMemoryBillingStore) AppendDiscount(ctx context.Context, b *billing.SessionBilling, d *billing.Discount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[b.ID]
	if !ok {
		return notFound("Session billing", b.ID)
	}
	if stored.Version != b.Version {
		return versionConflict("Session billing", b.ID)
	}

	updated := copyBilling(b)
	if !lo.ContainsBy(updated.Discounts, func(x *billing.Discount) bool { return x.ID == d.ID }) {
		dc := *d
		updated.Discounts = append(updated.Discounts, &dc)
	}
	updated.Version++
	s.items[b.ID] = updated
	b.Version++
	return nil
}
