package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OBDHeaderStaging is a row of wms.stg_obd_header, one per E1BPOBDLVHDR
// segment enriched with its address and Z-extension segments.
type OBDHeaderStaging struct {
	DeliveryID   string
	GrossWeight  string
	Volume       string
	Recipient    string
	Address      string
	Region       string
	Carrier      string
	DeliveryDate string
	SourceFile   string
}

// OBDItemStaging is a row of wms.stg_obd_item (segment E1BPOBDLVITEM).
type OBDItemStaging struct {
	DeliveryID  string
	ItemNumber  string
	MaterialSKU string
	Description string
	Quantity    string
	Unit        string
	NetWeight   string
	SourceFile  string
}

// FinalOBDHeader is a row of wms.obd_header.
type FinalOBDHeader struct {
	DeliveryID   string
	GrossWeight  decimal.NullDecimal
	Volume       decimal.NullDecimal
	Recipient    string
	Address      string
	Region       string
	Carrier      string
	DeliveryDate *time.Time
	Version      int
	SourceFile   string
	ProcessedAt  time.Time
}

// FinalOBDHeaderColumns is the COPY column list for FinalOBDHeader.Values.
var FinalOBDHeaderColumns = []string{
	"delivery_id", "gross_weight", "volume", "recipient", "address", "region", "carrier",
	"delivery_date", "version_number", "source_file", "processed_at",
}

// Values returns the row in FinalOBDHeaderColumns order.
func (f FinalOBDHeader) Values() []any {
	return []any{
		f.DeliveryID, numeric(f.GrossWeight), numeric(f.Volume), f.Recipient, f.Address, f.Region, f.Carrier,
		f.DeliveryDate, f.Version, f.SourceFile, f.ProcessedAt,
	}
}

// FinalOBDItem is a row of wms.obd_item.
type FinalOBDItem struct {
	DeliveryID  string
	ItemNumber  string
	MaterialSKU string
	Description string
	Quantity    decimal.NullDecimal
	Unit        string
	NetWeight   decimal.NullDecimal
	Version     int
	SourceFile  string
	ProcessedAt time.Time
}

// FinalOBDItemColumns is the COPY column list for FinalOBDItem.Values.
var FinalOBDItemColumns = []string{
	"delivery_id", "item_number", "material_sku", "description", "quantity", "unit",
	"net_weight", "version_number", "source_file", "processed_at",
}

// Values returns the row in FinalOBDItemColumns order.
func (f FinalOBDItem) Values() []any {
	return []any{
		f.DeliveryID, f.ItemNumber, f.MaterialSKU, f.Description, numeric(f.Quantity), f.Unit,
		numeric(f.NetWeight), f.Version, f.SourceFile, f.ProcessedAt,
	}
}
