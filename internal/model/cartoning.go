package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartonKind discriminates the record shapes mixed in one cartoning file.
type CartonKind string

const (
	CartonOrder CartonKind = "ORDER"
	CartonBox   CartonKind = "BOX"
	CartonItem  CartonKind = "ITEM"
)

// CartoningStaging is a positional row of wms.stg_cartoning. Columns C1..C14
// carry different meanings depending on RecordType.
type CartoningStaging struct {
	ID         int64
	RecordType string
	C          [14]string
	SourceFile string
}

// Col returns positional column n (1-based), or "" when out of range.
func (s CartoningStaging) Col(n int) string {
	if n < 1 || n > len(s.C) {
		return ""
	}
	return s.C[n-1]
}

// CartonRecord is a decoded cartoning row: one of OrderRecord, BoxRecord or
// ItemRecord.
type CartonRecord interface {
	Kind() CartonKind
	// Order returns the order id the record belongs to.
	Order() string
}

// OrderRecord is an ORDER row: C1 order, C2 wave, C3 customer, C4 ship-to,
// C5 route, C6 volume, C7 weight, C8 package count, C9 carrier.
type OrderRecord struct {
	OrderID      string
	WaveID       string
	CustomerCode string
	ShipTo       string
	Route        string
	Volume       string
	Weight       string
	Packages     string
	Carrier      string
}

// Kind implements CartonRecord.
func (OrderRecord) Kind() CartonKind { return CartonOrder }

// Order implements CartonRecord.
func (r OrderRecord) Order() string { return r.OrderID }

// BoxRecord is a BOX row: C1 order, C2 box, C3 box type, C4 volume,
// C5 weight, C6 label.
type BoxRecord struct {
	OrderID string
	BoxID   string
	BoxType string
	Volume  string
	Weight  string
	Label   string
}

// Kind implements CartonRecord.
func (BoxRecord) Kind() CartonKind { return CartonBox }

// Order implements CartonRecord.
func (r BoxRecord) Order() string { return r.OrderID }

// ItemRecord is an ITEM row: C1 order, C2 box, C3 SKU, C4 description,
// C5 quantity, C6 unit.
type ItemRecord struct {
	OrderID     string
	BoxID       string
	SKU         string
	Description string
	Quantity    string
	Unit        string
}

// Kind implements CartonRecord.
func (ItemRecord) Kind() CartonKind { return CartonItem }

// Order implements CartonRecord.
func (r ItemRecord) Order() string { return r.OrderID }

// FinalOrder is a row of wms.cartoning_order.
type FinalOrder struct {
	OrderID      string
	WaveID       string
	CustomerCode string
	ShipTo       string
	Route        string
	Volume       decimal.NullDecimal
	Weight       decimal.NullDecimal
	Packages     *int
	Carrier      string
	Version      int
	SourceFile   string
	ProcessedAt  time.Time
}

// FinalOrderColumns is the COPY column list for FinalOrder.Values.
var FinalOrderColumns = []string{
	"order_id", "wave_id", "customer_code", "ship_to", "route", "volume", "weight",
	"package_count", "carrier", "version_number", "source_file", "processed_at",
}

// Values returns the row in FinalOrderColumns order.
func (f FinalOrder) Values() []any {
	return []any{
		f.OrderID, f.WaveID, f.CustomerCode, f.ShipTo, f.Route, numeric(f.Volume), numeric(f.Weight),
		f.Packages, f.Carrier, f.Version, f.SourceFile, f.ProcessedAt,
	}
}

// FinalBox is a row of wms.cartoning_box. Version is nil when the parent
// order was not part of the same file.
type FinalBox struct {
	OrderID     string
	BoxID       string
	BoxType     string
	Volume      decimal.NullDecimal
	Weight      decimal.NullDecimal
	Label       string
	Version     *int
	SourceFile  string
	ProcessedAt time.Time
}

// FinalBoxColumns is the COPY column list for FinalBox.Values.
var FinalBoxColumns = []string{
	"order_id", "box_id", "box_type", "volume", "weight", "label",
	"version_number", "source_file", "processed_at",
}

// Values returns the row in FinalBoxColumns order.
func (f FinalBox) Values() []any {
	return []any{
		f.OrderID, f.BoxID, f.BoxType, numeric(f.Volume), numeric(f.Weight), f.Label,
		f.Version, f.SourceFile, f.ProcessedAt,
	}
}

// FinalItem is a row of wms.cartoning_item.
type FinalItem struct {
	OrderID     string
	BoxID       string
	SKU         string
	Description string
	Quantity    decimal.NullDecimal
	Unit        string
	Version     *int
	SourceFile  string
	ProcessedAt time.Time
}

// FinalItemColumns is the COPY column list for FinalItem.Values.
var FinalItemColumns = []string{
	"order_id", "box_id", "sku", "description", "quantity", "unit",
	"version_number", "source_file", "processed_at",
}

// Values returns the row in FinalItemColumns order.
func (f FinalItem) Values() []any {
	return []any{
		f.OrderID, f.BoxID, f.SKU, f.Description, numeric(f.Quantity), f.Unit,
		f.Version, f.SourceFile, f.ProcessedAt,
	}
}
