package promote

import (
	"context"

	"github.com/sells-group/wms-ingest/internal/coerce"
	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/staging"
	"github.com/sells-group/wms-ingest/internal/version"
)

var orderVersions = version.Resolver{Table: "wms.cartoning_order", KeyColumns: []string{"order_id"}}

// Cartoning promotes ORDER, BOX and ITEM records. Each distinct order in the
// file gets one new version and one final row; its boxes and items carry that
// same version. Boxes are written once per box id, first occurrence wins.
// Items are never deduplicated.
type Cartoning struct{}

func (Cartoning) DocType() model.DocType { return model.DocCartoning }

func (Cartoning) Promote(ctx context.Context, q db.Querier, run Run) (*Outcome, error) {
	rows, err := staging.ReadCartoning(ctx, q, run.File)
	if err != nil {
		return nil, err
	}
	recs, skipped := staging.DecodeCartoning(rows)

	var (
		orders    []model.FinalOrder
		boxes     []model.FinalBox
		items     []model.FinalItem
		versions  = make(map[string]int)
		seenBoxes = make(map[string]bool)
		discarded int
		repeated  int
		created   int
		updated   int
	)

	// Orders first so boxes and items can find their parent regardless of
	// row order in the file.
	for _, rec := range recs {
		r, ok := rec.(model.OrderRecord)
		if !ok {
			continue
		}
		id := coerce.Text(r.OrderID)
		if id == "" {
			discarded++
			continue
		}

		if _, seen := versions[id]; seen {
			repeated++
			continue
		}
		v, err := orderVersions.Next(ctx, q, id)
		if err != nil {
			return nil, err
		}
		versions[id] = v
		if v == 1 {
			created++
		} else {
			updated++
		}

		orders = append(orders, model.FinalOrder{
			OrderID:      id,
			WaveID:       coerce.Text(r.WaveID),
			CustomerCode: coerce.Text(r.CustomerCode),
			ShipTo:       coerce.Text(r.ShipTo),
			Route:        coerce.Text(r.Route),
			Volume:       coerce.Decimal(r.Volume),
			Weight:       coerce.Decimal(r.Weight),
			Packages:     coerce.Int(r.Packages),
			Carrier:      coerce.Text(r.Carrier),
			Version:      v,
			SourceFile:   run.File,
			ProcessedAt:  run.At,
		})
	}

	// Boxes and items whose order is not in the file keep a null version.
	orphans := 0
	parent := func(order string) *int {
		if v, ok := versions[order]; ok {
			return &v
		}
		orphans++
		return nil
	}

	for _, rec := range recs {
		switch r := rec.(type) {
		case model.BoxRecord:
			order, box := coerce.Text(r.OrderID), coerce.Text(r.BoxID)
			if order == "" || box == "" {
				discarded++
				continue
			}
			if seenBoxes[box] {
				repeated++
				continue
			}
			seenBoxes[box] = true
			boxes = append(boxes, model.FinalBox{
				OrderID:     order,
				BoxID:       box,
				BoxType:     coerce.Text(r.BoxType),
				Volume:      coerce.Decimal(r.Volume),
				Weight:      coerce.Decimal(r.Weight),
				Label:       coerce.Text(r.Label),
				Version:     parent(order),
				SourceFile:  run.File,
				ProcessedAt: run.At,
			})
		case model.ItemRecord:
			order := coerce.Text(r.OrderID)
			if order == "" {
				discarded++
				continue
			}
			items = append(items, model.FinalItem{
				OrderID:     order,
				BoxID:       coerce.Text(r.BoxID),
				SKU:         coerce.Text(r.SKU),
				Description: coerce.Text(r.Description),
				Quantity:    coerce.Decimal(r.Quantity),
				Unit:        coerce.Text(r.Unit),
				Version:     parent(order),
				SourceFile:  run.File,
				ProcessedAt: run.At,
			})
		}
	}

	counts := map[string]int{
		"discarded": discarded,
		"repeated":  repeated,
		"unknown":   skipped,
		"orphans":   orphans,
		"new":       created,
		"updated":   updated,
	}
	if counts["orders"], err = writeFinal(ctx, q, "cartoning_order", model.FinalOrderColumns, orders); err != nil {
		return nil, err
	}
	if counts["boxes"], err = writeFinal(ctx, q, "cartoning_box", model.FinalBoxColumns, boxes); err != nil {
		return nil, err
	}
	if counts["items"], err = writeFinal(ctx, q, "cartoning_item", model.FinalItemColumns, items); err != nil {
		return nil, err
	}

	return &Outcome{Counts: counts, Message: summary(0, counts)}, nil
}
