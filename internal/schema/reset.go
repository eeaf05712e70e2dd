package schema

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/staging"
)

// FinalTables lists every versioned final table.
var FinalTables = []string{
	"wms.cartoning_order", "wms.cartoning_box", "wms.cartoning_item",
	"wms.wave_confirm",
	"wms.obd_header", "wms.obd_item",
	"wms.obdc_header", "wms.obdc_position", "wms.obdc_position_control",
	"wms.obdc_handling_unit", "wms.obdc_packed_content", "wms.obdc_extension",
}

// BookkeepingTables are the audit log and fingerprint store.
var BookkeepingTables = []string{"wms.audit_log", "wms.file_fingerprint"}

// ResetTables returns every table emptied by Reset.
func ResetTables() []string {
	var tables []string
	for _, t := range staging.AllTables() {
		tables = append(tables, t.FullName())
	}
	tables = append(tables, FinalTables...)
	return append(tables, BookkeepingTables...)
}

// Reset truncates all staging, final, audit and fingerprint tables. Version
// history restarts at 1 afterwards.
func Reset(ctx context.Context, q db.Querier) error {
	tables := ResetTables()
	if err := db.Truncate(ctx, q, tables); err != nil {
		return err
	}
	zap.L().Warn("wms tables reset", zap.Int("tables", len(tables)))
	return nil
}
