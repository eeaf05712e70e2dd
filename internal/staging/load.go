package staging

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/resilience"
)

// Loader writes parsed batches into the staging tables.
type Loader struct {
	pool  db.Pool
	retry resilience.RetryConfig
}

// NewLoader creates a Loader. Transient database errors are retried per retry.
func NewLoader(pool db.Pool, retry resilience.RetryConfig) *Loader {
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("postgres", "staging.load")
	}
	return &Loader{pool: pool, retry: retry}
}

// Load replaces the staged rows of b.SourceFile with the contents of b in a
// single transaction and returns the number of rows written.
func (l *Loader) Load(ctx context.Context, b *Batch) (int64, error) {
	if b == nil {
		return 0, eris.New("staging: nil batch")
	}
	return resilience.DoVal(ctx, l.retry, func(ctx context.Context) (int64, error) {
		return l.load(ctx, b)
	})
}

func (l *Loader) load(ctx context.Context, b *Batch) (int64, error) {
	log := zap.L().With(
		zap.String("component", "staging"),
		zap.String("doc_type", b.DocType.String()),
		zap.String("file", b.SourceFile),
	)

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "staging: begin load tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	removed, err := Clear(ctx, tx, b.DocType, b.SourceFile)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, t := range b.Tables {
		cols := append(append([]string{}, t.Table.Columns...), SourceFileColumn)
		rows := make([][]any, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = append(append(make([]any, 0, len(r)+1), r...), b.SourceFile)
		}

		n, err := db.CopyInto(ctx, tx, Schema, t.Table.Name, cols, rows)
		if err != nil {
			return 0, eris.Wrapf(err, "staging: load %s", t.Table.Name)
		}
		total += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "staging: commit load tx")
	}

	log.Info("staged file", zap.Int64("rows", total), zap.Int64("replaced", removed))
	return total, nil
}
