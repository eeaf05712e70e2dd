package promote

import (
	"context"

	"github.com/sells-group/wms-ingest/internal/coerce"
	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/staging"
	"github.com/sells-group/wms-ingest/internal/version"
)

var obdVersions = version.Resolver{Table: "wms.obd_header"}

// OutboundDelivery promotes delivery headers and items under one version
// shared by the whole file. Items of a file with no surviving header are
// discarded, since the version is resolved from the header table alone.
type OutboundDelivery struct{}

func (OutboundDelivery) DocType() model.DocType { return model.DocOutboundDelivery }

func (OutboundDelivery) Promote(ctx context.Context, q db.Querier, run Run) (*Outcome, error) {
	headers, items, err := staging.ReadOutboundDelivery(ctx, q, run.File)
	if err != nil {
		return nil, err
	}

	v, err := obdVersions.Next(ctx, q)
	if err != nil {
		return nil, err
	}

	var discarded int

	hdrs := make([]model.FinalOBDHeader, 0, len(headers))
	for _, h := range headers {
		id := coerce.Text(h.DeliveryID)
		if id == "" {
			discarded++
			continue
		}
		hdrs = append(hdrs, model.FinalOBDHeader{
			DeliveryID:   id,
			GrossWeight:  coerce.NonZeroDecimal(h.GrossWeight),
			Volume:       coerce.NonZeroDecimal(h.Volume),
			Recipient:    coerce.Text(h.Recipient),
			Address:      coerce.Text(h.Address),
			Region:       coerce.Text(h.Region),
			Carrier:      coerce.Text(h.Carrier),
			DeliveryDate: coerce.CompactDate(h.DeliveryDate),
			Version:      v,
			SourceFile:   run.File,
			ProcessedAt:  run.At,
		})
	}

	its := make([]model.FinalOBDItem, 0, len(items))
	for _, it := range items {
		id, num := coerce.Text(it.DeliveryID), coerce.Text(it.ItemNumber)
		if id == "" || num == "" {
			discarded++
			continue
		}
		its = append(its, model.FinalOBDItem{
			DeliveryID:  id,
			ItemNumber:  num,
			MaterialSKU: coerce.Text(it.MaterialSKU),
			Description: coerce.Text(it.Description),
			Quantity:    coerce.Decimal(it.Quantity),
			Unit:        coerce.Text(it.Unit),
			NetWeight:   coerce.NonZeroDecimal(it.NetWeight),
			Version:     v,
			SourceFile:  run.File,
			ProcessedAt: run.At,
		})
	}

	if len(hdrs) == 0 {
		discarded += len(its)
		its = nil
		v = 0
	}

	counts := map[string]int{"discarded": discarded}
	if counts["headers"], err = writeFinal(ctx, q, "obd_header", model.FinalOBDHeaderColumns, hdrs); err != nil {
		return nil, err
	}
	if counts["items"], err = writeFinal(ctx, q, "obd_item", model.FinalOBDItemColumns, its); err != nil {
		return nil, err
	}

	return &Outcome{Version: v, Counts: counts, Message: summary(v, counts)}, nil
}
