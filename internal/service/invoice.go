package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/api/dto"
	"github.com/policlinic/backoffice/internal/domain/events"
	"github.com/policlinic/backoffice/internal/domain/invoice"
	"github.com/policlinic/backoffice/internal/domain/payment"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
)

// InvoiceService issues invoices over session billings
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)

	// ConvertToFinal turns a proforma invoice without payments into a final one
	ConvertToFinal(ctx context.Context, id string, req dto.ConvertToFinalRequest) (*dto.InvoiceResponse, error)

	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	GetInvoiceByNumber(ctx context.Context, number string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
}

type invoiceService struct {
	ServiceParams
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv := req.ToInvoice()
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	var summary invoice.Summary
	err := s.runUnitOfWork(ctx, []string{invoiceNumberLockKey(inv.InvoiceNumber)}, func(ctx context.Context, outbox *events.Outbox) error {
		exists, err := s.InvoiceRepo.ExistsByNumber(ctx, inv.InvoiceNumber)
		if err != nil {
			return err
		}
		if exists {
			return duplicateInvoiceNumber(inv.InvoiceNumber)
		}

		if _, err := s.resolveUser(ctx, inv.GeneratedBy); err != nil {
			return err
		}

		total, _, err := s.invoiceTotal(ctx, inv)
		if err != nil {
			return err
		}

		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			return err
		}

		// a new invoice has no payments yet
		summary = inv.Summarize([]decimal.Decimal{total}, nil)

		return recordEvent(ctx, outbox, events.EventInvoiceCreated, inv.ID, &events.InvoiceCreated{
			InvoiceID:         inv.ID,
			InvoiceNumber:     inv.InvoiceNumber,
			InvoiceDate:       inv.InvoiceDate,
			GeneratedByUserID: inv.GeneratedBy,
			IsProforma:        inv.IsProforma,
			SessionBillingIDs: inv.SessionBillingIDs,
			TotalAmount:       total,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"is_proforma", inv.IsProforma,
		"total_amount", summary.TotalAmount,
	)
	return dto.NewInvoiceResponse(inv, summary, nil), nil
}

func (s *invoiceService) ConvertToFinal(ctx context.Context, id string, req dto.ConvertToFinalRequest) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invoice id is required").
			WithHint("Invoice id is required").
			Mark(ierr.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		inv       *invoice.Invoice
		oldNumber string
	)
	lockKeys := []string{invoiceLockKey(id), invoiceNumberLockKey(req.InvoiceNumber)}
	err := s.runUnitOfWork(ctx, lockKeys, func(ctx context.Context, outbox *events.Outbox) error {
		var err error
		inv, err = s.InvoiceRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		oldNumber = inv.InvoiceNumber

		payments, err := s.PaymentRepo.ListByInvoiceIDs(ctx, []string{inv.ID})
		if err != nil {
			return err
		}

		if err := inv.ConvertToFinal(req.InvoiceNumber, payments); err != nil {
			return err
		}

		// the current number counts as taken too
		exists, err := s.InvoiceRepo.ExistsByNumber(ctx, inv.InvoiceNumber)
		if err != nil {
			return err
		}
		if exists {
			return duplicateInvoiceNumber(inv.InvoiceNumber)
		}

		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}

		return recordEvent(ctx, outbox, events.EventInvoiceConvertedToFinal, inv.ID, &events.InvoiceConvertedToFinal{
			InvoiceID: inv.ID,
			OldNumber: oldNumber,
			NewNumber: inv.InvoiceNumber,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("converted invoice to final",
		"invoice_id", inv.ID,
		"old_number", oldNumber,
		"new_number", inv.InvoiceNumber,
	)
	return s.toResponse(ctx, inv)
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, ierr.NewError("invoice id is required").
			WithHint("Invoice id is required").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, inv)
}

func (s *invoiceService) GetInvoiceByNumber(ctx context.Context, number string) (*dto.InvoiceResponse, error) {
	if number == "" {
		return nil, ierr.NewError("invoice number is required").
			WithHint("Invoice number is required").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, inv)
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		resp, err := s.toResponse(ctx, inv)
		if err != nil {
			return nil, err
		}
		items = append(items, resp)
	}

	resp := types.NewListResponse(items, count, filter.GetLimit(), filter.GetOffset())
	return &resp, nil
}

func (s *invoiceService) toResponse(ctx context.Context, inv *invoice.Invoice) (*dto.InvoiceResponse, error) {
	summary, payments, err := s.summarizeInvoice(ctx, inv)
	if err != nil {
		return nil, err
	}
	paymentIDs := lo.Map(payments, func(p *payment.Payment, _ int) string { return p.ID })
	return dto.NewInvoiceResponse(inv, summary, paymentIDs), nil
}

func duplicateInvoiceNumber(number string) error {
	return ierr.NewError("invoice number already exists").
		WithHintf("Invoice number %s is already in use", number).
		WithReportableDetails(map[string]any{
			"invoice_number": number,
		}).
		Mark(ierr.ErrConflict)
}
