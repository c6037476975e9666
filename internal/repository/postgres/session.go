package postgres

import (
	"context"

	"github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/policlinic/backoffice/internal/domain/billing"
	"github.com/policlinic/backoffice/internal/domain/session"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/postgres"
)

// sessionProvider reads sessions owned by the scheduling system. Billing
// never writes to these tables.
type sessionProvider struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewSessionProvider creates a session provider backed by postgres
func NewSessionProvider(db *postgres.DB, logger *logger.Logger) session.Provider {
	return &sessionProvider{
		db:     db,
		logger: logger,
	}
}

type consultationRow struct {
	SessionID string              `db:"session_id"`
	Name      string              `db:"name"`
	Price     decimal.NullDecimal `db:"price"`
	Currency  string              `db:"currency"`
}

func (r consultationRow) toCharge() billing.ConsultationCharge {
	c := billing.ConsultationCharge{
		Name:     r.Name,
		Currency: r.Currency,
	}
	if r.Price.Valid {
		price := r.Price.Decimal
		c.Price = &price
	}
	return c
}

func (p *sessionProvider) Get(ctx context.Context, id string) (*session.Session, error) {
	var s session.Session
	err := p.db.GetQuerier(ctx).GetContext(ctx, &s, `
		SELECT id, patient_id, doctor_id, status, scheduled_at
		FROM sessions WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("Session %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, dbError(err, "Failed to get session")
	}
	if err := p.loadConsultations(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *sessionProvider) ListByIDs(ctx context.Context, ids []string) ([]*session.Session, error) {
	sessions := make([]*session.Session, 0)
	if len(ids) == 0 {
		return sessions, nil
	}
	err := p.db.GetQuerier(ctx).SelectContext(ctx, &sessions, `
		SELECT id, patient_id, doctor_id, status, scheduled_at
		FROM sessions WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, dbError(err, "Failed to list sessions")
	}
	if err := p.loadConsultations(ctx, sessions...); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (p *sessionProvider) loadConsultations(ctx context.Context, sessions ...*session.Session) error {
	if len(sessions) == 0 {
		return nil
	}

	byID := lo.KeyBy(sessions, func(s *session.Session) string { return s.ID })
	for _, s := range sessions {
		s.Consultations = make([]billing.ConsultationCharge, 0)
	}

	var rows []consultationRow
	err := p.db.GetQuerier(ctx).SelectContext(ctx, &rows, `
		SELECT session_id, name, price, currency
		FROM session_consultations
		WHERE session_id = ANY($1)
		ORDER BY session_id, position`,
		pq.Array(lo.Keys(byID)),
	)
	if err != nil {
		return dbError(err, "Failed to load session consultations")
	}

	for _, row := range rows {
		if s, ok := byID[row.SessionID]; ok {
			s.Consultations = append(s.Consultations, row.toCharge())
		}
	}
	return nil
}
