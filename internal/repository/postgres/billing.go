package postgres

import (
	"context"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/policlinic/backoffice/internal/domain/billing"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/postgres"
)

type billingRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewBillingRepository creates a new instance of session billing repository
func NewBillingRepository(db *postgres.DB, logger *logger.Logger) billing.Repository {
	return &billingRepository{
		db:     db,
		logger: logger,
	}
}

const billingColumns = `id, session_id, created_at, created_by, updated_at, version`

func (r *billingRepository) Create(ctx context.Context, b *billing.SessionBilling) error {
	query := `
		INSERT INTO session_billings (id, session_id, created_at, created_by, updated_at, version)
		VALUES (:id, :session_id, :created_at, :created_by, :updated_at, :version)`

	r.logger.Debugw("creating session billing",
		"billing_id", b.ID,
		"session_id", b.SessionID,
	)

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, b); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("A billing already exists for session %s", b.SessionID).
				WithReportableDetails(map[string]any{
					"session_id": b.SessionID,
				}).
				Mark(ierr.ErrConflict)
		}
		return dbError(err, "Failed to create session billing")
	}
	return nil
}

func (r *billingRepository) Get(ctx context.Context, id string) (*billing.SessionBilling, error) {
	return r.getOne(ctx, `SELECT `+billingColumns+` FROM session_billings WHERE id = $1`, id)
}

func (r *billingRepository) GetForUpdate(ctx context.Context, id string) (*billing.SessionBilling, error) {
	return r.getOne(ctx, `SELECT `+billingColumns+` FROM session_billings WHERE id = $1 FOR UPDATE`, id)
}

func (r *billingRepository) GetBySessionID(ctx context.Context, sessionID string) (*billing.SessionBilling, error) {
	return r.getOne(ctx, `SELECT `+billingColumns+` FROM session_billings WHERE session_id = $1`, sessionID)
}

func (r *billingRepository) ExistsBySessionID(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := r.db.GetQuerier(ctx).GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM session_billings WHERE session_id = $1)`, sessionID)
	if err != nil {
		return false, dbError(err, "Failed to check session billing")
	}
	return exists, nil
}

func (r *billingRepository) ListByIDs(ctx context.Context, ids []string) ([]*billing.SessionBilling, error) {
	if len(ids) == 0 {
		return []*billing.SessionBilling{}, nil
	}

	var billings []*billing.SessionBilling
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &billings,
		`SELECT `+billingColumns+` FROM session_billings WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, dbError(err, "Failed to list session billings")
	}
	if err := r.loadDiscounts(ctx, billings...); err != nil {
		return nil, err
	}
	return billings, nil
}

func (r *billingRepository) AppendDiscount(ctx context.Context, b *billing.SessionBilling, d *billing.Discount) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)

		result, err := q.ExecContext(ctx, `
			UPDATE session_billings
			SET version = version + 1, updated_at = $1
			WHERE id = $2 AND version = $3`,
			b.UpdatedAt, b.ID, b.Version,
		)
		if err != nil {
			return dbError(err, "Failed to update session billing")
		}
		if rows, err := result.RowsAffected(); err != nil {
			return dbError(err, "Failed to update session billing")
		} else if rows == 0 {
			return ierr.NewError("session billing was modified concurrently").
				WithHint("The billing was changed by another request, please retry").
				WithReportableDetails(map[string]any{
					"billing_id": b.ID,
					"version":    b.Version,
				}).
				Mark(ierr.ErrVersionConflict)
		}

		position := lo.IndexOf(b.Discounts, d)
		if position < 0 {
			position = len(b.Discounts)
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO billing_discounts (id, billing_id, amount, reason, applied_by, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			d.ID, d.BillingID, d.Amount, d.Reason, d.AppliedBy, position, d.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ierr.WithError(err).
					WithHint("The billing was changed by another request, please retry").
					Mark(ierr.ErrVersionConflict)
			}
			return dbError(err, "Failed to store discount")
		}

		b.Version++
		return nil
	})
}

func (r *billingRepository) getOne(ctx context.Context, query string, arg string) (*billing.SessionBilling, error) {
	var b billing.SessionBilling
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &b, query, arg); err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Session billing %s not found", arg).
				Mark(ierr.ErrNotFound)
		}
		return nil, dbError(err, "Failed to get session billing")
	}
	if err := r.loadDiscounts(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *billingRepository) loadDiscounts(ctx context.Context, billings ...*billing.SessionBilling) error {
	if len(billings) == 0 {
		return nil
	}

	byID := lo.KeyBy(billings, func(b *billing.SessionBilling) string { return b.ID })
	for _, b := range billings {
		b.Discounts = make([]*billing.Discount, 0)
	}

	var discounts []*billing.Discount
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &discounts, `
		SELECT id, billing_id, amount, reason, applied_by, created_at
		FROM billing_discounts
		WHERE billing_id = ANY($1)
		ORDER BY billing_id, position`,
		pq.Array(lo.Keys(byID)),
	)
	if err != nil {
		return dbError(err, "Failed to load discounts")
	}

	for _, d := range discounts {
		if b, ok := byID[d.BillingID]; ok {
			b.Discounts = append(b.Discounts, d)
		}
	}
	return nil
}
