package postgres

import (
	"context"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/policlinic/backoffice/internal/domain/payment"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/postgres"
	"github.com/policlinic/backoffice/internal/types"
)

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewPaymentRepository creates a new instance of payment repository
func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

const paymentColumns = `p.id, p.generated_by, p.amount, p.currency, p.payment_date, p.payment_type, p.notes, p.created_at`

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	r.logger.Debugw("creating payment",
		"payment_id", p.ID,
		"invoice_ids", p.InvoiceIDs,
		"amount", p.Amount,
		"payment_type", p.Type,
	)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)

		_, err := q.NamedExecContext(ctx, `
			INSERT INTO payments (id, generated_by, amount, currency, payment_date, payment_type, notes, created_at)
			VALUES (:id, :generated_by, :amount, :currency, :payment_date, :payment_type, :notes, :created_at)`,
			p,
		)
		if err != nil {
			return dbError(err, "Failed to create payment")
		}

		for i, invoiceID := range p.InvoiceIDs {
			_, err := q.ExecContext(ctx, `
				INSERT INTO payment_invoices (payment_id, invoice_id, position)
				VALUES ($1, $2, $3)`,
				p.ID, invoiceID, i,
			)
			if err != nil {
				return dbError(err, "Failed to link payment to invoice")
			}
		}
		return nil
	})
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.GetQuerier(ctx).GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments p WHERE p.id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Payment %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, dbError(err, "Failed to get payment")
	}
	if err := r.loadInvoiceIDs(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewNoLimitPaymentFilter()
	}
	w := r.where(filter)
	query := `SELECT ` + paymentColumns + ` FROM payments p` + w.String()
	query += w.page(filter.QueryFilter, "p.", "payment_date", "amount")
	return r.selectMany(ctx, query, w.args...)
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitPaymentFilter()
	}
	w := r.where(filter)

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, `SELECT COUNT(*) FROM payments p`+w.String(), w.args...); err != nil {
		return 0, dbError(err, "Failed to count payments")
	}
	return count, nil
}

func (r *paymentRepository) ListByInvoiceIDs(ctx context.Context, invoiceIDs []string) ([]*payment.Payment, error) {
	if len(invoiceIDs) == 0 {
		return []*payment.Payment{}, nil
	}
	return r.selectMany(ctx, `
		SELECT `+paymentColumns+` FROM payments p
		WHERE p.id IN (SELECT payment_id FROM payment_invoices WHERE invoice_id = ANY($1))
		ORDER BY p.created_at, p.id`,
		pq.Array(invoiceIDs),
	)
}

func (r *paymentRepository) where(filter *types.PaymentFilter) *whereBuilder {
	w := &whereBuilder{}
	if len(filter.PaymentIDs) > 0 {
		w.add("p.id = ANY(?)", pq.Array(filter.PaymentIDs))
	}
	if filter.InvoiceID != nil {
		w.add("p.id IN (SELECT payment_id FROM payment_invoices WHERE invoice_id = ?)", *filter.InvoiceID)
	}
	if filter.PaymentType != nil {
		w.add("p.payment_type = ?", string(*filter.PaymentType))
	}
	if filter.Currency != nil {
		w.add("p.currency = ?", *filter.Currency)
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			w.add("p.payment_date >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			w.add("p.payment_date <= ?", *filter.EndTime)
		}
	}
	return w
}

func (r *paymentRepository) selectMany(ctx context.Context, query string, args ...interface{}) ([]*payment.Payment, error) {
	payments := make([]*payment.Payment, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, dbError(err, "Failed to list payments")
	}
	if err := r.loadInvoiceIDs(ctx, payments...); err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) loadInvoiceIDs(ctx context.Context, payments ...*payment.Payment) error {
	if len(payments) == 0 {
		return nil
	}

	byID := lo.KeyBy(payments, func(p *payment.Payment) string { return p.ID })
	for _, p := range payments {
		p.InvoiceIDs = make([]string, 0)
	}

	var links []struct {
		PaymentID string `db:"payment_id"`
		InvoiceID string `db:"invoice_id"`
	}
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &links, `
		SELECT payment_id, invoice_id
		FROM payment_invoices
		WHERE payment_id = ANY($1)
		ORDER BY payment_id, position`,
		pq.Array(lo.Keys(byID)),
	)
	if err != nil {
		return dbError(err, "Failed to load payment invoices")
	}

	for _, l := range links {
		if p, ok := byID[l.PaymentID]; ok {
			p.InvoiceIDs = append(p.InvoiceIDs, l.InvoiceID)
		}
	}
	return nil
}
