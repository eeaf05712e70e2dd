package promote

import (
	"context"

	"github.com/sells-group/wms-ingest/internal/coerce"
	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/staging"
	"github.com/sells-group/wms-ingest/internal/version"
)

var waveVersions = version.Resolver{
	Table:      "wms.wave_confirm",
	KeyColumns: []string{"wave_id", "order_id", "box_id"},
}

// WaveConfirm promotes wave confirmations keyed by (wave, order, box). Rows
// are versioned one at a time in staging order, so a key repeated within a
// file gets consecutive versions.
type WaveConfirm struct{}

func (WaveConfirm) DocType() model.DocType { return model.DocWaveConfirm }

func (WaveConfirm) Promote(ctx context.Context, q db.Querier, run Run) (*Outcome, error) {
	rows, err := staging.ReadWaveConfirm(ctx, q, run.File)
	if err != nil {
		return nil, err
	}

	var (
		finals    []model.FinalWaveConfirm
		latest    = make(map[model.WaveKey]int)
		discarded int
		created   int
		updated   int
	)

	for _, r := range rows {
		key := model.WaveKey{
			WaveID:  coerce.Text(r.WaveID),
			OrderID: coerce.Text(r.OrderID),
			BoxID:   coerce.Text(r.BoxID),
		}
		if coerce.AnyBlank(key.WaveID, key.OrderID, key.BoxID) {
			discarded++
			continue
		}

		cur, seen := latest[key]
		if !seen {
			cur, err = waveVersions.Current(ctx, q, key.WaveID, key.OrderID, key.BoxID)
			if err != nil {
				return nil, err
			}
		}
		v := cur + 1
		latest[key] = v
		if v == 1 {
			created++
		} else {
			updated++
		}

		finals = append(finals, model.FinalWaveConfirm{
			WaveID:      key.WaveID,
			OrderID:     key.OrderID,
			LineRef:     coerce.Text(r.LineRef),
			BoxID:       key.BoxID,
			Extra:       coerce.Text(r.Extra),
			Version:     v,
			SourceFile:  run.File,
			ProcessedAt: run.At,
		})
	}

	total, err := writeFinal(ctx, q, "wave_confirm", model.FinalWaveConfirmColumns, finals)
	if err != nil {
		return nil, err
	}
	if _, err := staging.MarkWaveProcessed(ctx, q, run.File); err != nil {
		return nil, err
	}

	counts := map[string]int{"discarded": discarded, "new": created, "updated": updated, "total": total}
	return &Outcome{Counts: counts, Message: summary(0, counts)}, nil
}
