// Package staging owns the wms.stg_* landing tables: the flat-file parsers
// that fill them, the loader that writes a file's rows, and the readers and
// cleaners used by promotion.
package staging

import (
	"fmt"
	"strings"

	"github.com/sells-group/wms-ingest/internal/model"
)

// Schema is the Postgres schema holding staging tables.
const Schema = "wms"

// SourceFileColumn tags every staging row with the file it came from.
const SourceFileColumn = "source_file"

// Table describes a staging table and its loosely typed text columns, in
// parser output order. source_file, id, ingested_at (and processed) are
// managed separately.
type Table struct {
	Name    string
	Columns []string
}

// FullName returns the schema-qualified table name.
func (t Table) FullName() string {
	return Schema + "." + t.Name
}

var cartoningColumns = func() []string {
	cols := []string{"record_type"}
	for i := 1; i <= 14; i++ {
		cols = append(cols, fmt.Sprintf("c%d", i))
	}
	return cols
}()

// Staging tables by document type.
var (
	CartoningTable   = Table{Name: "stg_cartoning", Columns: cartoningColumns}
	WaveConfirmTable = Table{Name: "stg_wave_confirm", Columns: []string{"wave_id", "order_id", "line_ref", "box_id", "extra"}}

	OBDHeaderTable = Table{Name: "stg_obd_header", Columns: []string{
		"delivery_id", "gross_weight", "volume", "recipient", "address", "region", "carrier", "delivery_date",
	}}
	OBDItemTable = Table{Name: "stg_obd_item", Columns: []string{
		"delivery_id", "item_number", "material_sku", "description", "quantity", "unit", "net_weight",
	}}

	OBDCHeaderTable   = Table{Name: "stg_obdc_header", Columns: []string{"delivery_number", "date_lfdat", "date_wadti"}}
	OBDCPositionTable = Table{Name: "stg_obdc_position", Columns: []string{
		"delivery_number", "position_number", "order_ref", "material_sku", "quantity", "unit",
	}}
	OBDCControlTable      = Table{Name: "stg_obdc_position_control", Columns: []string{"delivery_number", "position_number", "confirmation_flag"}}
	OBDCHandlingUnitTable = Table{Name: "stg_obdc_handling_unit", Columns: []string{
		"delivery_number", "handling_unit_id", "packaging_type", "hu_level", "external_number", "hu_quantity",
	}}
	OBDCPackedContentTable = Table{Name: "stg_obdc_packed_content", Columns: []string{
		"parent_hu_id", "child_hu_id", "delivery_number", "position_number", "packed_quantity", "unit", "material_sku", "hu_level",
	}}
	OBDCExtensionTable = Table{Name: "stg_obdc_extension", Columns: []string{"field_name", "reference_id", "value_1", "value_2", "value_3"}}
)

// TablesFor returns the staging tables fed by a document type.
func TablesFor(doc model.DocType) []Table {
	switch doc {
	case model.DocCartoning:
		return []Table{CartoningTable}
	case model.DocWaveConfirm:
		return []Table{WaveConfirmTable}
	case model.DocOutboundDelivery:
		return []Table{OBDHeaderTable, OBDItemTable}
	case model.DocOBDConfirm:
		return []Table{
			OBDCHeaderTable, OBDCPositionTable, OBDCControlTable,
			OBDCHandlingUnitTable, OBDCPackedContentTable, OBDCExtensionTable,
		}
	default:
		return nil
	}
}

// AllTables returns every staging table.
func AllTables() []Table {
	var all []Table
	for _, d := range model.AllDocTypes() {
		all = append(all, TablesFor(d)...)
	}
	return all
}

// selectText builds a SELECT of id plus every column coalesced to text, for
// the rows of one source file.
func selectText(t Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = fmt.Sprintf("COALESCE(%s, '')", c)
	}
	return fmt.Sprintf("SELECT id, %s FROM %s WHERE source_file = $1 ORDER BY id",
		strings.Join(cols, ", "), t.FullName())
}
