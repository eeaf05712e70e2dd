// Package promote moves a file's staged rows into the versioned final tables
// in one transaction per file.
package promote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/fingerprint"
	"github.com/sells-group/wms-ingest/internal/model"
)

// finalSchema holds the versioned final tables.
const finalSchema = "wms"

// Run identifies one promotion invocation.
type Run struct {
	File string
	At   time.Time
}

// Outcome is what a procedure reports back to the engine.
type Outcome struct {
	Version int
	Counts  map[string]int
	Message string
}

// Procedure promotes the staged rows of one document type. Promote runs
// inside the engine's transaction; it must read, clean, version and write
// finals through q and leave clearing staging to the engine.
type Procedure interface {
	DocType() model.DocType
	Promote(ctx context.Context, q db.Querier, run Run) (*Outcome, error)
}

// Staged is a file's staged rows, read once per promotion.
type Staged interface {
	FingerprintRows() []fingerprint.Row
}

// Gated procedures are hash gated. The engine reads the staged rows once,
// fingerprints them and passes the same rows to PromoteStaged.
type Gated interface {
	Procedure
	ReadStaged(ctx context.Context, q db.Querier, file string) (Staged, error)
	PromoteStaged(ctx context.Context, q db.Querier, run Run, staged Staged) (*Outcome, error)
}

// valuer is any final row.
type valuer interface {
	Values() []any
}

// writeFinal COPYs recs into a final table.
func writeFinal[T valuer](ctx context.Context, q db.Querier, table string, columns []string, recs []T) (int, error) {
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = r.Values()
	}
	n, err := db.CopyInto(ctx, q, finalSchema, table, columns, rows)
	return int(n), err
}

// summary renders counts as "k=v" pairs, version first, the rest sorted.
func summary(version int, counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	if version > 0 {
		parts = append(parts, fmt.Sprintf("version=%d", version))
	}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}
