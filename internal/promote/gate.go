package promote

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/fingerprint"
	"github.com/sells-group/wms-ingest/internal/model"
)

// HashGate records the content fingerprint of every promoted file and
// recognizes redeliveries of identical content.
type HashGate struct{}

// Fingerprint computes the canonical hash of staged rows.
func (HashGate) Fingerprint(s Staged) string {
	return fingerprint.Compute(s.FingerprintRows())
}

// Seen reports whether fp was already recorded for file.
func (HashGate) Seen(ctx context.Context, q db.Querier, doc model.DocType, file, fp string) (bool, error) {
	var seen bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM wms.file_fingerprint WHERE doc_type = $1 AND file_name = $2 AND fingerprint = $3)`,
		doc.String(), file, fp,
	).Scan(&seen)
	if err != nil {
		return false, eris.Wrapf(err, "promote: look up fingerprint for %s", file)
	}
	return seen, nil
}

// Record stores fp for file.
func (HashGate) Record(ctx context.Context, q db.Querier, doc model.DocType, file, fp string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO wms.file_fingerprint (doc_type, file_name, fingerprint, recorded_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (doc_type, file_name, fingerprint) DO NOTHING`,
		doc.String(), file, fp,
	)
	return eris.Wrapf(err, "promote: record fingerprint for %s", file)
}
