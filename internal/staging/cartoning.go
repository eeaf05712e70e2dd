package staging

import (
	"strings"

	"github.com/sells-group/wms-ingest/internal/model"
)

// DecodeCartoning maps positional cartoning rows onto typed records.
// Rows whose record type is not ORDER, BOX or ITEM are skipped and counted.
func DecodeCartoning(rows []model.CartoningStaging) (recs []model.CartonRecord, skipped int) {
	for _, r := range rows {
		switch model.CartonKind(strings.ToUpper(strings.TrimSpace(r.RecordType))) {
		case model.CartonOrder:
			recs = append(recs, model.OrderRecord{
				OrderID:      r.Col(1),
				WaveID:       r.Col(2),
				CustomerCode: r.Col(3),
				ShipTo:       r.Col(4),
				Route:        r.Col(5),
				Volume:       r.Col(6),
				Weight:       r.Col(7),
				Packages:     r.Col(8),
				Carrier:      r.Col(9),
			})
		case model.CartonBox:
			recs = append(recs, model.BoxRecord{
				OrderID: r.Col(1),
				BoxID:   r.Col(2),
				BoxType: r.Col(3),
				Volume:  r.Col(4),
				Weight:  r.Col(5),
				Label:   r.Col(6),
			})
		case model.CartonItem:
			recs = append(recs, model.ItemRecord{
				OrderID:     r.Col(1),
				BoxID:       r.Col(2),
				SKU:         r.Col(3),
				Description: r.Col(4),
				Quantity:    r.Col(5),
				Unit:        r.Col(6),
			})
		default:
			skipped++
		}
	}
	return recs, skipped
}
