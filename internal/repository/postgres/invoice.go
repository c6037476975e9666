package postgres

import (
	"context"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/policlinic/backoffice/internal/domain/invoice"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/postgres"
	"github.com/policlinic/backoffice/internal/types"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewInvoiceRepository creates a new instance of invoice repository
func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{
		db:     db,
		logger: logger,
	}
}

const invoiceColumns = `id, invoice_number, invoice_date, generated_by, is_proforma, created_at, updated_at, version`

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"session_billing_ids", inv.SessionBillingIDs,
	)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)

		_, err := q.NamedExecContext(ctx, `
			INSERT INTO invoices (id, invoice_number, invoice_date, generated_by, is_proforma, created_at, updated_at, version)
			VALUES (:id, :invoice_number, :invoice_date, :generated_by, :is_proforma, :created_at, :updated_at, :version)`,
			inv,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return duplicateNumberError(err, inv.InvoiceNumber)
			}
			return dbError(err, "Failed to create invoice")
		}

		for i, billingID := range inv.SessionBillingIDs {
			_, err := q.ExecContext(ctx, `
				INSERT INTO invoice_session_billings (invoice_id, session_billing_id, position)
				VALUES ($1, $2, $3)`,
				inv.ID, billingID, i,
			)
			if err != nil {
				return dbError(err, "Failed to link session billing to invoice")
			}
		}
		return nil
	})
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

func (r *invoiceRepository) GetForUpdate(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
}

func (r *invoiceRepository) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = $1`, number)
}

func (r *invoiceRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.db.GetQuerier(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_number = $1)`, number)
	if err != nil {
		return false, dbError(err, "Failed to check invoice number")
	}
	return exists, nil
}

func (r *invoiceRepository) ListByIDs(ctx context.Context, ids []string) ([]*invoice.Invoice, error) {
	if len(ids) == 0 {
		return []*invoice.Invoice{}, nil
	}
	return r.selectMany(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ANY($1)`, pq.Array(ids))
}

func (r *invoiceRepository) ListBySessionBillingID(ctx context.Context, billingID string) ([]*invoice.Invoice, error) {
	return r.selectMany(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE id IN (SELECT invoice_id FROM invoice_session_billings WHERE session_billing_id = $1)
		ORDER BY created_at`, billingID)
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		UPDATE invoices
		SET invoice_number = $1, is_proforma = $2, updated_at = $3, version = version + 1
		WHERE id = $4 AND version = $5`,
		inv.InvoiceNumber, inv.IsProforma, inv.UpdatedAt, inv.ID, inv.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateNumberError(err, inv.InvoiceNumber)
		}
		return dbError(err, "Failed to update invoice")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return dbError(err, "Failed to update invoice")
	}
	if rows == 0 {
		return ierr.NewError("invoice was modified concurrently").
			WithHint("The invoice was changed by another request, please retry").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"version":    inv.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	inv.Version++
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}
	w := r.where(filter)
	query := `SELECT ` + invoiceColumns + ` FROM invoices` + w.String()
	query += w.page(filter.QueryFilter, "", "invoice_date", "invoice_number")
	return r.selectMany(ctx, query, w.args...)
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}
	w := r.where(filter)

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, `SELECT COUNT(*) FROM invoices`+w.String(), w.args...); err != nil {
		return 0, dbError(err, "Failed to count invoices")
	}
	return count, nil
}

func (r *invoiceRepository) where(filter *types.InvoiceFilter) *whereBuilder {
	w := &whereBuilder{}
	if len(filter.InvoiceIDs) > 0 {
		w.add("id = ANY(?)", pq.Array(filter.InvoiceIDs))
	}
	if filter.IsProforma != nil {
		w.add("is_proforma = ?", *filter.IsProforma)
	}
	if filter.GeneratedByID != nil {
		w.add("generated_by = ?", *filter.GeneratedByID)
	}
	if filter.SessionBillingID != nil {
		w.add("id IN (SELECT invoice_id FROM invoice_session_billings WHERE session_billing_id = ?)", *filter.SessionBillingID)
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			w.add("invoice_date >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			w.add("invoice_date <= ?", *filter.EndTime)
		}
	}
	return w
}

func (r *invoiceRepository) getOne(ctx context.Context, query string, arg string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &inv, query, arg); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Invoice %s not found", arg).
				Mark(ierr.ErrNotFound)
		}
		return nil, dbError(err, "Failed to get invoice")
	}
	if err := r.loadBillingIDs(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) selectMany(ctx context.Context, query string, args ...interface{}) ([]*invoice.Invoice, error) {
	invoices := make([]*invoice.Invoice, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, dbError(err, "Failed to list invoices")
	}
	if err := r.loadBillingIDs(ctx, invoices...); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) loadBillingIDs(ctx context.Context, invoices ...*invoice.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	byID := lo.KeyBy(invoices, func(inv *invoice.Invoice) string { return inv.ID })
	for _, inv := range invoices {
		inv.SessionBillingIDs = make([]string, 0)
	}

	var links []struct {
		InvoiceID        string `db:"invoice_id"`
		SessionBillingID string `db:"session_billing_id"`
	}
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &links, `
		SELECT invoice_id, session_billing_id
		FROM invoice_session_billings
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, position`,
		pq.Array(lo.Keys(byID)),
	)
	if err != nil {
		return dbError(err, "Failed to load invoice billings")
	}

	for _, l := range links {
		if inv, ok := byID[l.InvoiceID]; ok {
			inv.SessionBillingIDs = append(inv.SessionBillingIDs, l.SessionBillingID)
		}
	}
	return nil
}

func duplicateNumberError(err error, number string) error {
	return ierr.WithError(err).
		WithHintf("Invoice number %s already exists", number).
		WithReportableDetails(map[string]any{
			"invoice_number": number,
		}).
		Mark(ierr.ErrConflict)
}
