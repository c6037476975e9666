package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/domain/billing"
	"github.com/policlinic/backoffice/internal/domain/invoice"
	"github.com/policlinic/backoffice/internal/domain/payment"
	"github.com/policlinic/backoffice/internal/domain/session"
	"github.com/policlinic/backoffice/internal/domain/user"
	ierr "github.com/policlinic/backoffice/internal/errors"
)

// billedSession pairs a billing with the live session it prices
type billedSession struct {
	billing *billing.SessionBilling
	session *session.Session
}

func (b billedSession) finalAmount() decimal.Decimal {
	return b.billing.FinalAmount(b.session.Consultations)
}

// loadBilledSessions resolves billings in the order of ids together with
// their sessions. Any unknown billing fails the whole lookup.
func (p ServiceParams) loadBilledSessions(ctx context.Context, ids []string) ([]billedSession, error) {
	ids = lo.Uniq(ids)
	billings, err := p.BillingRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := lo.KeyBy(billings, func(b *billing.SessionBilling) string { return b.ID })
	if missing := lo.Filter(ids, func(id string, _ int) bool { _, ok := byID[id]; return !ok }); len(missing) > 0 {
		return nil, ierr.NewError("session billing not found").
			WithHintf("Session billings not found: %v", missing).
			WithReportableDetails(map[string]any{
				"missing_billing_ids": missing,
			}).
			Mark(ierr.ErrNotFound)
	}

	sessionIDs := lo.Map(billings, func(b *billing.SessionBilling, _ int) string { return b.SessionID })
	sessions, err := p.SessionProvider.ListByIDs(ctx, lo.Uniq(sessionIDs))
	if err != nil {
		return nil, collaboratorError(err, "Failed to load sessions")
	}
	sessionsByID := lo.KeyBy(sessions, func(s *session.Session) string { return s.ID })

	result := make([]billedSession, 0, len(ids))
	for _, id := range ids {
		b := byID[id]
		s, ok := sessionsByID[b.SessionID]
		if !ok {
			return nil, ierr.NewError("session not found").
				WithHintf("Session %s of billing %s not found", b.SessionID, b.ID).
				Mark(ierr.ErrNotFound)
		}
		result = append(result, billedSession{billing: b, session: s})
	}
	return result, nil
}

// invoiceTotal sums the live final amounts of the invoice's billings
func (p ServiceParams) invoiceTotal(ctx context.Context, inv *invoice.Invoice) (decimal.Decimal, []billedSession, error) {
	billed, err := p.loadBilledSessions(ctx, inv.SessionBillingIDs)
	if err != nil {
		return decimal.Zero, nil, err
	}
	total := decimal.Zero
	for _, b := range billed {
		total = total.Add(b.finalAmount())
	}
	return total, billed, nil
}

// summarizeInvoice derives the invoice amounts from its billings and payments
func (p ServiceParams) summarizeInvoice(ctx context.Context, inv *invoice.Invoice) (invoice.Summary, []*payment.Payment, error) {
	billed, err := p.loadBilledSessions(ctx, inv.SessionBillingIDs)
	if err != nil {
		return invoice.Summary{}, nil, err
	}
	payments, err := p.PaymentRepo.ListByInvoiceIDs(ctx, []string{inv.ID})
	if err != nil {
		return invoice.Summary{}, nil, err
	}
	amounts := lo.Map(billed, func(b billedSession, _ int) decimal.Decimal { return b.finalAmount() })
	return inv.Summarize(amounts, payments), payments, nil
}

// resolveUser checks the user exists in the directory
func (p ServiceParams) resolveUser(ctx context.Context, id string) (*user.User, error) {
	u, err := p.UserDirectory.Get(ctx, id)
	if err != nil {
		return nil, collaboratorError(err, "Failed to resolve user")
	}
	return u, nil
}

func (p ServiceParams) getSession(ctx context.Context, id string) (*session.Session, error) {
	s, err := p.SessionProvider.Get(ctx, id)
	if err != nil {
		return nil, collaboratorError(err, "Failed to load session")
	}
	return s, nil
}
