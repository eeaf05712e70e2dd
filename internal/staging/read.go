package staging

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/model"
)

// readText scans every row of t for file as text, nulls coalesced to "".
func readText(ctx context.Context, q db.Querier, t Table, file string, fn func(id int64, v []string)) error {
	rows, err := q.Query(ctx, selectText(t), file)
	if err != nil {
		return eris.Wrapf(err, "staging: query %s", t.Name)
	}
	defer rows.Close()

	vals := make([]string, len(t.Columns))
	var id int64
	dest := make([]any, 0, len(vals)+1)
	dest = append(dest, &id)
	for i := range vals {
		dest = append(dest, &vals[i])
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return eris.Wrapf(err, "staging: scan %s", t.Name)
		}
		out := make([]string, len(vals))
		copy(out, vals)
		fn(id, out)
	}
	return eris.Wrapf(rows.Err(), "staging: iterate %s", t.Name)
}

// ReadCartoning returns the positional cartoning rows of file.
func ReadCartoning(ctx context.Context, q db.Querier, file string) ([]model.CartoningStaging, error) {
	var out []model.CartoningStaging
	err := readText(ctx, q, CartoningTable, file, func(id int64, v []string) {
		s := model.CartoningStaging{ID: id, RecordType: v[0], SourceFile: file}
		copy(s.C[:], v[1:])
		out = append(out, s)
	})
	return out, err
}

// ReadWaveConfirm returns the wave confirmation rows of file.
func ReadWaveConfirm(ctx context.Context, q db.Querier, file string) ([]model.WaveConfirmStaging, error) {
	var out []model.WaveConfirmStaging
	err := readText(ctx, q, WaveConfirmTable, file, func(id int64, v []string) {
		out = append(out, model.WaveConfirmStaging{
			ID: id, WaveID: v[0], OrderID: v[1], LineRef: v[2], BoxID: v[3], Extra: v[4], SourceFile: file,
		})
	})
	return out, err
}

// ReadOutboundDelivery returns the header and item rows of file.
func ReadOutboundDelivery(ctx context.Context, q db.Querier, file string) ([]model.OBDHeaderStaging, []model.OBDItemStaging, error) {
	var headers []model.OBDHeaderStaging
	err := readText(ctx, q, OBDHeaderTable, file, func(_ int64, v []string) {
		headers = append(headers, model.OBDHeaderStaging{
			DeliveryID: v[0], GrossWeight: v[1], Volume: v[2], Recipient: v[3], Address: v[4],
			Region: v[5], Carrier: v[6], DeliveryDate: v[7], SourceFile: file,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	var items []model.OBDItemStaging
	err = readText(ctx, q, OBDItemTable, file, func(_ int64, v []string) {
		items = append(items, model.OBDItemStaging{
			DeliveryID: v[0], ItemNumber: v[1], MaterialSKU: v[2], Description: v[3],
			Quantity: v[4], Unit: v[5], NetWeight: v[6], SourceFile: file,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return headers, items, nil
}

// ReadOBDConfirm returns the six staged sub-tables of file.
func ReadOBDConfirm(ctx context.Context, q db.Querier, file string) (*model.OBDCStaged, error) {
	s := &model.OBDCStaged{}

	steps := []struct {
		table Table
		fn    func(int64, []string)
	}{
		{OBDCHeaderTable, func(_ int64, v []string) {
			s.Headers = append(s.Headers, model.OBDCHeaderStaging{
				DeliveryNumber: v[0], DateLFDAT: v[1], DateWADTI: v[2], SourceFile: file,
			})
		}},
		{OBDCPositionTable, func(_ int64, v []string) {
			s.Positions = append(s.Positions, model.OBDCPositionStaging{
				DeliveryNumber: v[0], PositionNumber: v[1], OrderRef: v[2], MaterialSKU: v[3],
				Quantity: v[4], Unit: v[5], SourceFile: file,
			})
		}},
		{OBDCControlTable, func(_ int64, v []string) {
			s.Controls = append(s.Controls, model.OBDCControlStaging{
				DeliveryNumber: v[0], PositionNumber: v[1], ConfirmationFlag: v[2], SourceFile: file,
			})
		}},
		{OBDCHandlingUnitTable, func(_ int64, v []string) {
			s.HandlingUnits = append(s.HandlingUnits, model.OBDCHandlingUnitStaging{
				DeliveryNumber: v[0], HandlingUnitID: v[1], PackagingType: v[2], HULevel: v[3],
				ExternalNumber: v[4], HUQuantity: v[5], SourceFile: file,
			})
		}},
		{OBDCPackedContentTable, func(_ int64, v []string) {
			s.PackedContent = append(s.PackedContent, model.OBDCPackedContentStaging{
				ParentHUID: v[0], ChildHUID: v[1], DeliveryNumber: v[2], PositionNumber: v[3],
				PackedQuantity: v[4], Unit: v[5], MaterialSKU: v[6], HULevel: v[7], SourceFile: file,
			})
		}},
		{OBDCExtensionTable, func(_ int64, v []string) {
			s.Extensions = append(s.Extensions, model.OBDCExtensionStaging{
				FieldName: v[0], ReferenceID: v[1], Value1: v[2], Value2: v[3], Value3: v[4], SourceFile: file,
			})
		}},
	}

	for _, step := range steps {
		if err := readText(ctx, q, step.table, file, step.fn); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MarkWaveProcessed flags the staged wave confirmation rows of file as
// processed.
func MarkWaveProcessed(ctx context.Context, q db.Querier, file string) (int64, error) {
	tag, err := q.Exec(ctx, "UPDATE wms.stg_wave_confirm SET processed = true WHERE source_file = $1", file)
	if err != nil {
		return 0, eris.Wrap(err, "staging: mark wave confirm processed")
	}
	return tag.RowsAffected(), nil
}

// Clear deletes the staged rows of file from every table of doc and returns
// the number of rows removed.
func Clear(ctx context.Context, q db.Querier, doc model.DocType, file string) (int64, error) {
	tables := TablesFor(doc)
	if len(tables) == 0 {
		return 0, eris.Errorf("staging: no tables for document type %q", doc)
	}

	var total int64
	for _, t := range tables {
		n, err := db.DeleteWhere(ctx, q, t.FullName(), SourceFileColumn, file)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
