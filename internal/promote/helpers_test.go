package promote

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/staging"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// recorder captures the rows of every COPY before handing them to the mock.
type recorder struct {
	db.Querier
	copies map[string][][]any
}

func newRecorder(q db.Querier) *recorder {
	return &recorder{Querier: q, copies: make(map[string][][]any)}
}

func (r *recorder) CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	var rows [][]any
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		rows = append(rows, vals)
	}
	r.copies[strings.Join(table, ".")] = rows
	return r.Querier.CopyFrom(ctx, table, columns, pgx.CopyFromRows(rows))
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func stagingRows(t staging.Table, rows ...[]any) *pgxmock.Rows {
	r := pgxmock.NewRows(append([]string{"id"}, t.Columns...))
	for i, row := range rows {
		r.AddRow(append([]any{int64(i + 1)}, row...)...)
	}
	return r
}

func expectStaging(mock pgxmock.PgxPoolIface, t staging.Table, file string, rows ...[]any) {
	mock.ExpectQuery("FROM wms." + t.Name + " WHERE source_file").
		WithArgs(file).
		WillReturnRows(stagingRows(t, rows...))
}

func expectMaxVersion(mock pgxmock.PgxPoolIface, table string, current int, key ...any) {
	e := mock.ExpectQuery(`SELECT COALESCE\(MAX\(version_number\), 0\) FROM "wms"."` + table + `"`)
	if len(key) > 0 {
		e = e.WithArgs(key...)
	}
	e.WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow(current))
}

func expectCopy(mock pgxmock.PgxPoolIface, table string, columns []string, n int64) {
	mock.ExpectCopyFrom(pgx.Identifier{"wms", table}, columns).WillReturnResult(n)
}

func expectClear(mock pgxmock.PgxPoolIface, file string, tables ...staging.Table) {
	for _, t := range tables {
		mock.ExpectExec(`DELETE FROM "wms"."` + t.Name + `"`).
			WithArgs(file).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
	}
}

func cartonRow(recordType string, cols ...string) []any {
	row := []any{recordType}
	for i := 0; i < 14; i++ {
		if i < len(cols) {
			row = append(row, cols[i])
		} else {
			row = append(row, "")
		}
	}
	return row
}

func intPtr(v int) *int { return &v }

func pgxIdent(table string) pgx.Identifier {
	return pgx.Identifier{"wms", table}
}
