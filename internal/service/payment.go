package service

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/api/dto"
	"github.com/policlinic/backoffice/internal/domain/events"
	"github.com/policlinic/backoffice/internal/domain/invoice"
	"github.com/policlinic/backoffice/internal/domain/payment"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
)

// PaymentService records payments against invoices
type PaymentService interface {
	// ProcessPayment applies one amount jointly to a set of invoices
	ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error)
}

type paymentService struct {
	ServiceParams
}

// NewPaymentService creates a new payment service
func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{
		ServiceParams: params,
	}
}

func (s *paymentService) ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToPayment()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	invoiceIDs := append([]string(nil), p.InvoiceIDs...)
	sort.Strings(invoiceIDs)
	lockKeys := lo.Map(invoiceIDs, func(id string, _ int) string { return invoiceLockKey(id) })

	var sessionIDs, patientIDs []string
	err := s.runUnitOfWork(ctx, lockKeys, func(ctx context.Context, outbox *events.Outbox) error {
		// rows are locked in id order so concurrent payments cannot deadlock
		invoices := make([]*invoice.Invoice, 0, len(invoiceIDs))
		for _, id := range invoiceIDs {
			inv, err := s.InvoiceRepo.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			invoices = append(invoices, inv)
		}

		if _, err := s.resolveUser(ctx, p.GeneratedBy); err != nil {
			return err
		}

		byID := lo.KeyBy(invoices, func(inv *invoice.Invoice) string { return inv.ID })
		total := decimal.Zero
		billed := make([]billedSession, 0)
		for _, id := range p.InvoiceIDs {
			invTotal, invBilled, err := s.invoiceTotal(ctx, byID[id])
			if err != nil {
				return err
			}
			total = total.Add(invTotal)
			billed = append(billed, invBilled...)
		}

		// checked against full totals, earlier payments are not subtracted
		if p.Amount.GreaterThan(total) {
			return ierr.NewErrorf("payment of %s exceeds invoice total %s", p.Amount, total).
				WithHintf("Payment amount cannot exceed the invoice total of %s", total.StringFixed(2)).
				WithReportableDetails(map[string]any{
					"amount":      p.Amount.String(),
					"total":       total.String(),
					"invoice_ids": p.InvoiceIDs,
				}).
				Mark(ierr.ErrConflict)
		}

		if err := s.PaymentRepo.Create(ctx, p); err != nil {
			return err
		}

		sessionIDs, patientIDs = parties(billed)
		return recordEvent(ctx, outbox, events.EventPaymentProcessed, p.ID, &events.PaymentProcessed{
			PaymentID:   p.ID,
			InvoiceIDs:  p.InvoiceIDs,
			Amount:      p.Amount,
			PaymentType: p.Type,
			PatientIDs:  patientIDs,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("processed payment",
		"payment_id", p.ID,
		"invoice_ids", p.InvoiceIDs,
		"amount", p.Amount,
		"payment_type", p.Type,
	)
	return dto.NewPaymentResponse(p, sessionIDs, patientIDs), nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	if id == "" {
		return nil, ierr.NewError("payment id is required").
			WithHint("Payment id is required").
			Mark(ierr.ErrValidation)
	}

	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, p)
}

func (s *paymentService) ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.PaymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp, err := s.toResponse(ctx, p)
		if err != nil {
			return nil, err
		}
		items = append(items, resp)
	}

	resp := types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

// toResponse derives the sessions and patients a payment settles through
// its invoices and their billings
func (s *paymentService) toResponse(ctx context.Context, p *payment.Payment) (*dto.PaymentResponse, error) {
	invoices, err := s.InvoiceRepo.ListByIDs(ctx, p.InvoiceIDs)
	if err != nil {
		return nil, err
	}

	byID := lo.KeyBy(invoices, func(inv *invoice.Invoice) string { return inv.ID })
	billingIDs := lo.Uniq(lo.FlatMap(p.InvoiceIDs, func(id string, _ int) []string {
		if inv, ok := byID[id]; ok {
			return inv.SessionBillingIDs
		}
		return nil
	}))
	billed, err := s.loadBilledSessions(ctx, billingIDs)
	if err != nil {
		return nil, err
	}

	sessionIDs, patientIDs := parties(billed)
	return dto.NewPaymentResponse(p, sessionIDs, patientIDs), nil
}

// parties returns the distinct session and patient ids, in first-seen order
func parties(billed []billedSession) (sessionIDs, patientIDs []string) {
	sessionIDs = lo.Uniq(lo.Map(billed, func(b billedSession, _ int) string { return b.session.ID }))
	patientIDs = lo.Uniq(lo.Map(billed, func(b billedSession, _ int) string { return b.session.PatientID }))
	return sessionIDs, patientIDs
}
