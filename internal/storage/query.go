package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// updateBuilder collects SET clauses for partial updates. Placeholders are
// numbered in the order columns are added.
type updateBuilder struct {
	sets []string
	args []any
}

func (b *updateBuilder) set(column string, value any) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", column, len(b.args)))
}

func (b *updateBuilder) empty() bool {
	return len(b.sets) == 0
}

// build returns "UPDATE table SET ..., updated_at = NOW() WHERE id = $n RETURNING columns".
func (b *updateBuilder) build(table string, id int64, returning string) (string, []any) {
	args := append(b.args, id)
	sets := append(b.sets, "updated_at = NOW()")
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(sets, ", "), len(args), returning)
	return query, args
}

// whereBuilder collects AND-ed filter conditions.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, value any) {
	w.args = append(w.args, value)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *whereBuilder) paginate(limit, offset int) string {
	var s string
	if limit > 0 {
		w.args = append(w.args, limit)
		s += fmt.Sprintf(" LIMIT $%d", len(w.args))
	}
	if offset > 0 {
		w.args = append(w.args, offset)
		s += fmt.Sprintf(" OFFSET $%d", len(w.args))
	}
	return s
}

func (db *DB) deleteByID(ctx context.Context, table string, id int64) error {
	result, err := db.conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		// A foreign key failing on delete means other rows still point here.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return fmt.Errorf("failed to delete from %s: %w (%s)", table, ErrInUse, pqErr.Constraint)
		}
		return wrapErr("delete from "+table, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapErr("delete from "+table, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to delete from %s: %w", table, ErrNotFound)
	}
	return nil
}
