package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/policlinic/backoffice/internal/logger"
)

// slowQueryThreshold promotes query logs from debug to warn
const slowQueryThreshold = 500 * time.Millisecond

// TracedQuerier logs every statement with its duration and the unit of work it ran in
type TracedQuerier struct {
	Querier
	logger *logger.Logger
	txID   string
}

// NewTracedQuerier creates a new traced querier
func NewTracedQuerier(q Querier, logger *logger.Logger, txID string) *TracedQuerier {
	return &TracedQuerier{
		Querier: q,
		logger:  logger,
		txID:    txID,
	}
}

// trace runs op and logs its outcome. Params are not logged since they carry
// patient and payment data.
func (tq *TracedQuerier) trace(query string, op func() error) error {
	start := time.Now()
	err := op()
	elapsed := time.Since(start)

	fields := []interface{}{
		"duration_ms", elapsed.Milliseconds(),
		"query", query,
	}
	if tq.txID != "" {
		fields = append(fields, "tx_id", tq.txID)
	}

	switch {
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		tq.logger.Errorw("database query failed", append(fields, "error", err)...)
	case elapsed >= slowQueryThreshold:
		tq.logger.Warnw("slow database query", fields...)
	default:
		tq.logger.Debugw("database query completed", fields...)
	}
	return err
}

func (tq *TracedQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (res sql.Result, err error) {
	err = tq.trace(query, func() error {
		res, err = tq.Querier.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

func (tq *TracedQuerier) NamedExecContext(ctx context.Context, query string, arg interface{}) (res sql.Result, err error) {
	err = tq.trace(query, func() error {
		res, err = tq.Querier.NamedExecContext(ctx, query, arg)
		return err
	})
	return res, err
}

func (tq *TracedQuerier) QueryxContext(ctx context.Context, query string, args ...interface{}) (rows *sqlx.Rows, err error) {
	err = tq.trace(query, func() error {
		rows, err = tq.Querier.QueryxContext(ctx, query, args...)
		return err
	})
	return rows, err
}

func (tq *TracedQuerier) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return tq.trace(query, func() error {
		return tq.Querier.GetContext(ctx, dest, query, args...)
	})
}

func (tq *TracedQuerier) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return tq.trace(query, func() error {
		return tq.Querier.SelectContext(ctx, dest, query, args...)
	})
}
