// Package version resolves the next version number of a business key in a
// versioned final table.
package version

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/wms-ingest/internal/db"
)

// Resolver computes 1 + max(version_number) over the rows of Table matching a
// business key. With no KeyColumns the version is global to the table.
//
// Callers must resolve inside the transaction that writes the new version and
// hold Lock for the document type, otherwise two promotions may read the same
// maximum.
type Resolver struct {
	Table      string
	KeyColumns []string
}

// Current returns max(version_number) for key, or 0 when no row matches.
func (r Resolver) Current(ctx context.Context, q db.Querier, key ...string) (int, error) {
	if len(key) != len(r.KeyColumns) {
		return 0, eris.Errorf("version: %s expects %d key values, got %d", r.Table, len(r.KeyColumns), len(key))
	}

	args := make([]any, len(key))
	for i, k := range key {
		args[i] = k
	}

	var current int
	if err := q.QueryRow(ctx, r.query(), args...).Scan(&current); err != nil {
		return 0, eris.Wrapf(err, "version: max version in %s", r.Table)
	}
	return current, nil
}

// Next returns the version the next write for key must carry.
func (r Resolver) Next(ctx context.Context, q db.Querier, key ...string) (int, error) {
	current, err := r.Current(ctx, q, key...)
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

func (r Resolver) query() string {
	var b strings.Builder
	b.WriteString("SELECT COALESCE(MAX(version_number), 0) FROM ")
	b.WriteString(qualified(r.Table))
	for i, col := range r.KeyColumns {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s = $%d", pgx.Identifier{col}.Sanitize(), i+1)
	}
	return b.String()
}

// Lock takes a transaction-scoped advisory lock named after scope. Every
// promotion of a document type takes the same lock, so concurrent invocations
// serialize on version resolution and the lock is released at commit or
// rollback.
func Lock(ctx context.Context, q db.Querier, scope string) error {
	if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "wms.promote."+scope); err != nil {
		return eris.Wrapf(err, "version: lock %s", scope)
	}
	return nil
}

func qualified(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}
