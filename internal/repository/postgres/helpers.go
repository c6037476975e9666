package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"

	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/types"
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// dbError marks an unexpected driver failure
func dbError(err error, hint string) error {
	return ierr.WithError(err).
		WithHint(hint).
		Mark(ierr.ErrDatabase)
}

// whereBuilder accumulates positional conditions for list queries
type whereBuilder struct {
	conds []string
	args  []interface{}
}

// add appends a condition; every "?" in cond is replaced by the next placeholder
func (w *whereBuilder) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1))
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page renders ORDER BY / LIMIT / OFFSET. Sort columns not in allowed fall back to created_at.
func (w *whereBuilder) page(f types.BaseFilter, alias string, allowed ...string) string {
	col := "created_at"
	for _, a := range allowed {
		if f.GetSort() == a {
			col = a
		}
	}
	order := "DESC"
	if f.GetOrder() == types.OrderAsc {
		order = "ASC"
	}

	var b strings.Builder
	fmt.Fprintf(&b, " ORDER BY %s%s %s, %sid %s", alias, col, order, alias, order)
	if !f.IsUnlimited() {
		w.args = append(w.args, f.GetLimit())
		fmt.Fprintf(&b, " LIMIT $%d", len(w.args))
	}
	if f.GetOffset() > 0 {
		w.args = append(w.args, f.GetOffset())
		fmt.Fprintf(&b, " OFFSET $%d", len(w.args))
	}
	return b.String()
}
