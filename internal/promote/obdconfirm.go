package promote

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wms-ingest/internal/coerce"
	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/fingerprint"
	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/staging"
	"github.com/sells-group/wms-ingest/internal/version"
)

var obdcVersions = version.Resolver{Table: "wms.obdc_header"}

// Fingerprint row tags, one per staged sub-table.
const (
	tagHeader   = "CAB"
	tagPosition = "POS"
	tagControl  = "CTL"
	tagUnit     = "UNI"
	tagContent  = "CON"
	tagExt      = "EXT"
)

// OBDConfirm promotes the six delivery confirmation sub-tables under one
// version resolved from the header table. It is hash gated: redelivered
// identical content is not promoted again.
type OBDConfirm struct{}

func (OBDConfirm) DocType() model.DocType { return model.DocOBDConfirm }

// obdcStaged is the staged content of one confirmation file.
type obdcStaged struct {
	*model.OBDCStaged
}

// ReadStaged reads the six staged sub-tables of file.
func (OBDConfirm) ReadStaged(ctx context.Context, q db.Querier, file string) (Staged, error) {
	s, err := staging.ReadOBDConfirm(ctx, q, file)
	if err != nil {
		return nil, err
	}
	return obdcStaged{s}, nil
}

// FingerprintRows returns every staged row tagged by sub-table.
func (s obdcStaged) FingerprintRows() []fingerprint.Row {
	rows := make([]fingerprint.Row, 0, s.Len())
	for _, r := range s.Headers {
		rows = append(rows, fingerprint.Row{Tag: tagHeader, Keys: []string{r.DeliveryNumber},
			Fields: []string{r.DateLFDAT, r.DateWADTI}})
	}
	for _, r := range s.Positions {
		rows = append(rows, fingerprint.Row{Tag: tagPosition, Keys: []string{r.DeliveryNumber, r.PositionNumber},
			Fields: []string{r.OrderRef, r.MaterialSKU, r.Quantity, r.Unit}})
	}
	for _, r := range s.Controls {
		rows = append(rows, fingerprint.Row{Tag: tagControl, Keys: []string{r.DeliveryNumber, r.PositionNumber},
			Fields: []string{r.ConfirmationFlag}})
	}
	for _, r := range s.HandlingUnits {
		rows = append(rows, fingerprint.Row{Tag: tagUnit, Keys: []string{r.DeliveryNumber, r.HandlingUnitID},
			Fields: []string{r.PackagingType, r.HULevel, r.ExternalNumber, r.HUQuantity}})
	}
	for _, r := range s.PackedContent {
		rows = append(rows, fingerprint.Row{Tag: tagContent, Keys: []string{r.ParentHUID, r.ChildHUID},
			Fields: []string{r.DeliveryNumber, r.PositionNumber, r.PackedQuantity, r.Unit, r.MaterialSKU, r.HULevel}})
	}
	for _, r := range s.Extensions {
		rows = append(rows, fingerprint.Row{Tag: tagExt, Keys: []string{r.FieldName, r.ReferenceID},
			Fields: []string{r.Value1, r.Value2, r.Value3}})
	}
	return rows
}

func (p OBDConfirm) Promote(ctx context.Context, q db.Querier, run Run) (*Outcome, error) {
	staged, err := p.ReadStaged(ctx, q, run.File)
	if err != nil {
		return nil, err
	}
	return p.PromoteStaged(ctx, q, run, staged)
}

// PromoteStaged writes the sub-tables of staged under one new version. A file
// with no surviving header writes nothing: its other rows are discarded so
// they never carry a version the header table does not account for.
func (OBDConfirm) PromoteStaged(ctx context.Context, q db.Querier, run Run, staged Staged) (*Outcome, error) {
	st, ok := staged.(obdcStaged)
	if !ok {
		return nil, eris.Errorf("promote: obd_confirm cannot promote %T", staged)
	}
	s := st.OBDCStaged

	v, err := obdcVersions.Next(ctx, q)
	if err != nil {
		return nil, err
	}

	var discarded int
	keep := func(keys ...string) bool {
		if coerce.AnyBlank(keys...) {
			discarded++
			return false
		}
		return true
	}

	var headers []model.FinalOBDCHeader
	for _, r := range s.Headers {
		if !keep(r.DeliveryNumber) {
			continue
		}
		headers = append(headers, model.FinalOBDCHeader{
			DeliveryNumber:      coerce.Text(r.DeliveryNumber),
			PlannedDeliveryDate: coerce.CompactDate(r.DateLFDAT),
			GoodsIssueDate:      coerce.CompactDate(r.DateWADTI),
			Version:             v,
			SourceFile:          run.File,
			ProcessedAt:         run.At,
		})
	}

	var positions []model.FinalOBDCPosition
	for _, r := range s.Positions {
		if !keep(r.DeliveryNumber) {
			continue
		}
		positions = append(positions, model.FinalOBDCPosition{
			DeliveryNumber: coerce.Text(r.DeliveryNumber),
			PositionNumber: coerce.Text(r.PositionNumber),
			OrderRef:       coerce.Text(r.OrderRef),
			MaterialSKU:    coerce.Text(r.MaterialSKU),
			Quantity:       coerce.Decimal(r.Quantity),
			Unit:           coerce.Text(r.Unit),
			Version:        v,
			SourceFile:     run.File,
			ProcessedAt:    run.At,
		})
	}

	var controls []model.FinalOBDCControl
	for _, r := range s.Controls {
		if !keep(r.DeliveryNumber) {
			continue
		}
		controls = append(controls, model.FinalOBDCControl{
			DeliveryNumber:   coerce.Text(r.DeliveryNumber),
			PositionNumber:   coerce.Text(r.PositionNumber),
			ConfirmationFlag: coerce.Text(r.ConfirmationFlag),
			Version:          v,
			SourceFile:       run.File,
			ProcessedAt:      run.At,
		})
	}

	var units []model.FinalOBDCHandlingUnit
	for _, r := range s.HandlingUnits {
		if !keep(r.DeliveryNumber) {
			continue
		}
		units = append(units, model.FinalOBDCHandlingUnit{
			DeliveryNumber: coerce.Text(r.DeliveryNumber),
			HandlingUnitID: coerce.Text(r.HandlingUnitID),
			PackagingType:  coerce.Text(r.PackagingType),
			HULevel:        coerce.Text(r.HULevel),
			ExternalNumber: coerce.Text(r.ExternalNumber),
			HUQuantity:     coerce.Decimal(r.HUQuantity),
			Version:        v,
			SourceFile:     run.File,
			ProcessedAt:    run.At,
		})
	}

	var contents []model.FinalOBDCPackedContent
	for _, r := range s.PackedContent {
		if !keep(r.ParentHUID) {
			continue
		}
		contents = append(contents, model.FinalOBDCPackedContent{
			ParentHUID:     coerce.Text(r.ParentHUID),
			ChildHUID:      coerce.Text(r.ChildHUID),
			DeliveryNumber: coerce.Text(r.DeliveryNumber),
			PositionNumber: coerce.Text(r.PositionNumber),
			PackedQuantity: coerce.Decimal(r.PackedQuantity),
			Unit:           coerce.Text(r.Unit),
			MaterialSKU:    coerce.Text(r.MaterialSKU),
			HULevel:        coerce.Text(r.HULevel),
			Version:        v,
			SourceFile:     run.File,
			ProcessedAt:    run.At,
		})
	}

	var exts []model.FinalOBDCExtension
	for _, r := range s.Extensions {
		if !keep(r.FieldName) {
			continue
		}
		exts = append(exts, model.FinalOBDCExtension{
			FieldName:   coerce.Text(r.FieldName),
			ReferenceID: coerce.Text(r.ReferenceID),
			Value1:      coerce.Text(r.Value1),
			Value2:      coerce.Text(r.Value2),
			Value3:      coerce.Text(r.Value3),
			Version:     v,
			SourceFile:  run.File,
			ProcessedAt: run.At,
		})
	}

	if len(headers) == 0 {
		discarded += len(positions) + len(controls) + len(units) + len(contents) + len(exts)
		positions, controls, units, contents, exts = nil, nil, nil, nil, nil
		v = 0
	}

	counts := map[string]int{"discarded": discarded}
	if counts["cab"], err = writeFinal(ctx, q, "obdc_header", model.FinalOBDCHeaderColumns, headers); err != nil {
		return nil, err
	}
	if counts["pos"], err = writeFinal(ctx, q, "obdc_position", model.FinalOBDCPositionColumns, positions); err != nil {
		return nil, err
	}
	if counts["ctl"], err = writeFinal(ctx, q, "obdc_position_control", model.FinalOBDCControlColumns, controls); err != nil {
		return nil, err
	}
	if counts["uni"], err = writeFinal(ctx, q, "obdc_handling_unit", model.FinalOBDCHandlingUnitColumns, units); err != nil {
		return nil, err
	}
	if counts["con"], err = writeFinal(ctx, q, "obdc_packed_content", model.FinalOBDCPackedContentColumns, contents); err != nil {
		return nil, err
	}
	if counts["ext"], err = writeFinal(ctx, q, "obdc_extension", model.FinalOBDCExtensionColumns, exts); err != nil {
		return nil, err
	}

	return &Outcome{Version: v, Counts: counts, Message: summary(v, counts)}, nil
}
