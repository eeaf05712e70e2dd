package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Truncate empties the given schema-qualified tables in a single TRUNCATE
// statement and resets their identity sequences.
func Truncate(ctx context.Context, q Querier, tables []string) error {
	if len(tables) == 0 {
		return eris.New("db: truncate: no tables specified")
	}

	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = sanitizeTable(t)
	}

	sql := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY", strings.Join(quoted, ", "))
	if _, err := q.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "db: truncate %d tables", len(tables))
	}
	return nil
}

// DeleteWhere deletes every row of table whose column equals value and
// returns the number of rows removed.
func DeleteWhere(ctx context.Context, q Querier, table, column string, value any) (int64, error) {
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", sanitizeTable(table), pgx.Identifier{column}.Sanitize())
	tag, err := q.Exec(ctx, sql, value)
	if err != nil {
		return 0, eris.Wrapf(err, "db: delete from %s", table)
	}
	return tag.RowsAffected(), nil
}

// sanitizeTable handles schema-qualified table names like "wms.stg_cartoning".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}
