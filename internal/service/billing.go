package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/policlinic/backoffice/internal/api/dto"
	"github.com/policlinic/backoffice/internal/domain/billing"
	"github.com/policlinic/backoffice/internal/domain/events"
	"github.com/policlinic/backoffice/internal/domain/invoice"
	"github.com/policlinic/backoffice/internal/domain/payment"
	"github.com/policlinic/backoffice/internal/domain/session"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
)

// BillingService manages the billing of completed sessions and their discounts
type BillingService interface {
	// CreateSessionBilling bills a completed session. A session is billed at most once.
	CreateSessionBilling(ctx context.Context, req dto.CreateSessionBillingRequest) (*dto.SessionBillingResponse, error)

	// ApplyDiscount appends a manual discount to a billing found by billing or session id
	ApplyDiscount(ctx context.Context, req dto.ApplyDiscountRequest) (*dto.SessionBillingResponse, error)

	GetBilling(ctx context.Context, id string) (*dto.SessionBillingResponse, error)
	GetBillingForSession(ctx context.Context, sessionID string) (*dto.SessionBillingResponse, error)

	// CalculateFinalAmount returns the billed final amount, or the live session
	// subtotal when the session has not been billed yet
	CalculateFinalAmount(ctx context.Context, sessionID string) (*dto.FinalAmountResponse, error)

	// HandleSessionCompleted bills a session on completion. Failures are logged.
	HandleSessionCompleted(ctx context.Context, sessionID string)
}

type billingService struct {
	ServiceParams
}

// NewBillingService creates a new billing service
func NewBillingService(params ServiceParams) BillingService {
	return &billingService{
		ServiceParams: params,
	}
}

func (s *billingService) CreateSessionBilling(ctx context.Context, req dto.CreateSessionBillingRequest) (*dto.SessionBillingResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		b    *billing.SessionBilling
		sess *session.Session
	)
	err := s.runUnitOfWork(ctx, []string{sessionLockKey(req.SessionID)}, func(ctx context.Context, outbox *events.Outbox) error {
		var err error
		sess, err = s.getSession(ctx, req.SessionID)
		if err != nil {
			return err
		}

		if !sess.Status.IsBillable() {
			return ierr.NewError("session is not completed").
				WithHintf("Only completed sessions can be billed, session is %s", sess.Status).
				WithReportableDetails(map[string]any{
					"session_id": sess.ID,
					"status":     sess.Status,
				}).
				Mark(ierr.ErrInvalidState)
		}

		exists, err := s.BillingRepo.ExistsBySessionID(ctx, sess.ID)
		if err != nil {
			return err
		}
		if exists {
			return ierr.NewError("session billing already exists").
				WithHintf("Session %s has already been billed", sess.ID).
				WithReportableDetails(map[string]any{
					"session_id": sess.ID,
				}).
				Mark(ierr.ErrConflict)
		}

		b = billing.New(sess.ID, types.GetUserID(ctx))
		if err := s.BillingRepo.Create(ctx, b); err != nil {
			return err
		}

		return recordEvent(ctx, outbox, events.EventSessionBillingCalculated, b.ID, &events.SessionBillingCalculated{
			BillingID:         b.ID,
			SessionID:         sess.ID,
			PatientID:         sess.PatientID,
			Subtotal:          b.SubtotalAmount(sess.Consultations),
			Final:             b.FinalAmount(sess.Consultations),
			ConsultationNames: sess.ConsultationNames(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("created session billing",
		"billing_id", b.ID,
		"session_id", b.SessionID,
	)
	return dto.NewSessionBillingResponse(b, sess, types.PaymentStatusPending), nil
}

func (s *billingService) ApplyDiscount(ctx context.Context, req dto.ApplyDiscountRequest) (*dto.SessionBillingResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := billing.ValidateDiscount(req.Amount, req.Reason, req.AppliedBy); err != nil {
		return nil, err
	}

	billingID := req.BillingID
	if billingID == "" {
		b, err := s.BillingRepo.GetBySessionID(ctx, req.SessionID)
		if err != nil {
			return nil, err
		}
		billingID = b.ID
	}

	var (
		b    *billing.SessionBilling
		sess *session.Session
		d    *billing.Discount
	)
	err := s.runUnitOfWork(ctx, []string{billingLockKey(billingID)}, func(ctx context.Context, outbox *events.Outbox) error {
		var err error
		b, err = s.BillingRepo.GetForUpdate(ctx, billingID)
		if err != nil {
			return err
		}

		if _, err := s.resolveUser(ctx, req.AppliedBy); err != nil {
			return err
		}

		sess, err = s.getSession(ctx, b.SessionID)
		if err != nil {
			return err
		}

		d, err = b.ApplyDiscount(sess.Consultations, req.AppliedBy, req.Amount, req.Reason)
		if err != nil {
			return err
		}

		if err := s.BillingRepo.AppendDiscount(ctx, b, d); err != nil {
			return err
		}

		return recordEvent(ctx, outbox, events.EventManualDiscountApplied, b.ID, &events.ManualDiscountApplied{
			BillingID:       b.ID,
			SessionID:       b.SessionID,
			Amount:          d.Amount,
			Reason:          d.Reason,
			AppliedByUserID: d.AppliedBy,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.WithContext(ctx).Infow("applied discount",
		"billing_id", b.ID,
		"discount_id", d.ID,
		"amount", d.Amount,
		"applied_by", d.AppliedBy,
	)

	status, err := s.paymentStatus(ctx, b, sess)
	if err != nil {
		return nil, err
	}
	return dto.NewSessionBillingResponse(b, sess, status), nil
}

func (s *billingService) GetBilling(ctx context.Context, id string) (*dto.SessionBillingResponse, error) {
	if id == "" {
		return nil, ierr.NewError("billing id is required").
			WithHint("Billing id is required").
			Mark(ierr.ErrValidation)
	}

	b, err := s.BillingRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, b)
}

func (s *billingService) GetBillingForSession(ctx context.Context, sessionID string) (*dto.SessionBillingResponse, error) {
	if sessionID == "" {
		return nil, ierr.NewError("session id is required").
			WithHint("Session id is required").
			Mark(ierr.ErrValidation)
	}

	b, err := s.BillingRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, b)
}

func (s *billingService) CalculateFinalAmount(ctx context.Context, sessionID string) (*dto.FinalAmountResponse, error) {
	if sessionID == "" {
		return nil, ierr.NewError("session id is required").
			WithHint("Session id is required").
			Mark(ierr.ErrValidation)
	}

	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resp := &dto.FinalAmountResponse{
		SessionID:   sess.ID,
		FinalAmount: billing.Subtotal(sess.Consultations),
	}

	b, err := s.BillingRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return resp, nil
		}
		return nil, err
	}

	resp.BillingID = b.ID
	resp.FinalAmount = b.FinalAmount(sess.Consultations)
	return resp, nil
}

func (s *billingService) HandleSessionCompleted(ctx context.Context, sessionID string) {
	log := s.Logger.WithContext(ctx)

	_, err := s.CreateSessionBilling(ctx, dto.CreateSessionBillingRequest{SessionID: sessionID})
	switch {
	case err == nil:
		return
	case ierr.IsConflict(err):
		log.Debugw("session already billed", "session_id", sessionID)
	case ierr.IsBusinessRule(err):
		log.Warnw("could not bill completed session",
			"session_id", sessionID,
			"error", err,
		)
	default:
		log.Errorw("failed to bill completed session",
			"session_id", sessionID,
			"error", err,
		)
		s.Sentry.CaptureExceptionWithContext(ctx, err)
	}
}

func (s *billingService) toResponse(ctx context.Context, b *billing.SessionBilling) (*dto.SessionBillingResponse, error) {
	sess, err := s.getSession(ctx, b.SessionID)
	if err != nil {
		return nil, err
	}

	status, err := s.paymentStatus(ctx, b, sess)
	if err != nil {
		return nil, err
	}
	return dto.NewSessionBillingResponse(b, sess, status), nil
}

// paymentStatus compares what was paid on the final invoices linking the
// billing with its final amount. Proforma invoices never settle a billing.
func (s *billingService) paymentStatus(ctx context.Context, b *billing.SessionBilling, sess *session.Session) (types.PaymentStatus, error) {
	invoices, err := s.InvoiceRepo.ListBySessionBillingID(ctx, b.ID)
	if err != nil {
		return "", err
	}

	finals := lo.Filter(invoices, func(inv *invoice.Invoice, _ int) bool { return !inv.IsProforma })
	if len(finals) == 0 {
		return types.PaymentStatusPending, nil
	}

	payments, err := s.PaymentRepo.ListByInvoiceIDs(ctx, lo.Map(finals, func(inv *invoice.Invoice, _ int) string { return inv.ID }))
	if err != nil {
		return "", err
	}

	return payment.DeriveStatus(b.FinalAmount(sess.Consultations), payment.TotalPaid(payments), false), nil
}
