package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
)

// Tx is the unit of work carried in the context. Nested WithTx calls run
// inside savepoints of the same transaction.
type Tx struct {
	*sqlx.Tx
	ID    string
	depth int
}

func (tx *Tx) savepoint() string {
	return fmt.Sprintf("uow_%d", tx.depth)
}

// GetTx retrieves a transaction from the context if it exists
func GetTx(ctx context.Context) (*Tx, bool) {
	tx, ok := ctx.Value(types.CtxDBTransaction).(*Tx)
	return tx, ok
}

// BeginTx opens a transaction, or a savepoint when ctx already carries one.
// Row locks taken with SELECT ... FOR UPDATE are held until the outermost commit.
func (db *DB) BeginTx(ctx context.Context) (context.Context, *Tx, error) {
	if tx, ok := GetTx(ctx); ok {
		tx.depth++
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+tx.savepoint()); err != nil {
			tx.depth--
			return ctx, nil, txError(err, "Failed to open a nested unit of work", tx.ID)
		}
		db.logger.Debugw("savepoint created", "tx_id", tx.ID, "depth", tx.depth)
		return ctx, tx, nil
	}

	sqlxTx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return ctx, nil, txError(err, "Failed to begin transaction", "")
	}

	tx := &Tx{Tx: sqlxTx, ID: types.GenerateUUID()}
	db.logger.Debugw("transaction started", "tx_id", tx.ID)
	return context.WithValue(ctx, types.CtxDBTransaction, tx), tx, nil
}

// CommitTx commits the innermost level of the transaction in ctx
func (db *DB) CommitTx(ctx context.Context) error {
	return db.endTx(ctx, true)
}

// RollbackTx rolls back the innermost level of the transaction in ctx
func (db *DB) RollbackTx(ctx context.Context) error {
	return db.endTx(ctx, false)
}

func (db *DB) endTx(ctx context.Context, commit bool) error {
	tx, ok := GetTx(ctx)
	if !ok {
		return ierr.NewError("no transaction in context").
			WithHint("The operation must run inside a unit of work").
			Mark(ierr.ErrSystem)
	}

	if tx.depth > 0 {
		stmt := "ROLLBACK TO SAVEPOINT " + tx.savepoint()
		if commit {
			stmt = "RELEASE SAVEPOINT " + tx.savepoint()
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return txError(err, "Failed to close a nested unit of work", tx.ID)
		}
		db.logger.Debugw("savepoint closed", "tx_id", tx.ID, "depth", tx.depth, "commit", commit)
		tx.depth--
		return nil
	}

	if commit {
		if err := tx.Commit(); err != nil {
			return txError(err, "Failed to commit transaction", tx.ID)
		}
		db.logger.Debugw("transaction committed", "tx_id", tx.ID)
		return nil
	}

	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return txError(err, "Failed to roll back transaction", tx.ID)
	}
	db.logger.Debugw("transaction rolled back", "tx_id", tx.ID)
	return nil
}

// WithTx runs fn as one unit of work. Any error or panic from fn rolls back
// every write fn made, so a failed billing operation leaves no partial state.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			db.logger.Errorw("panic in unit of work", "tx_id", tx.ID, "panic", r)
			_ = db.RollbackTx(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		if ierr.IsBusinessRule(err) {
			db.logger.Debugw("unit of work rejected", "tx_id", tx.ID, "error", err)
		} else {
			db.logger.Errorw("unit of work failed", "tx_id", tx.ID, "error", err)
		}
		if rbErr := db.RollbackTx(ctx); rbErr != nil {
			db.logger.Errorw("rollback failed", "tx_id", tx.ID, "error", rbErr)
		}
		return err
	}

	return db.CommitTx(ctx)
}

func txError(err error, hint, txID string) error {
	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(map[string]any{
			"tx_id": txID,
		}).
		Mark(ierr.ErrDatabase)
}
