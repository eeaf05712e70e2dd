// Package db provides shared database helpers for pooled connections and COPY
// based bulk inserts.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyInto bulk-inserts rows into schema.table with the COPY protocol. q may
// be a pool or an open transaction, so promotions copy inside their own tx.
// Every row must carry exactly one value per column.
func CopyInto(ctx context.Context, q Querier, schema, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return 0, eris.Errorf("db: COPY INTO %s.%s: row %d has %d values for %d columns",
				schema, table, i, len(r), len(columns))
		}
	}

	n, err := q.CopyFrom(ctx, pgx.Identifier{schema, table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s.%s", schema, table)
	}
	return n, nil
}
