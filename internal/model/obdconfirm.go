package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OBDConfirm staging rows, one type per SHP_OBDLV_CONFIRM_DECENTRAL
// segment family. All fields are raw text.

// OBDCHeaderStaging is a row of wms.stg_obdc_header.
type OBDCHeaderStaging struct {
	DeliveryNumber string
	DateLFDAT      string
	DateWADTI      string
	SourceFile     string
}

// OBDCPositionStaging is a row of wms.stg_obdc_position.
type OBDCPositionStaging struct {
	DeliveryNumber string
	PositionNumber string
	OrderRef       string
	MaterialSKU    string
	Quantity       string
	Unit           string
	SourceFile     string
}

// OBDCControlStaging is a row of wms.stg_obdc_position_control.
type OBDCControlStaging struct {
	DeliveryNumber   string
	PositionNumber   string
	ConfirmationFlag string
	SourceFile       string
}

// OBDCHandlingUnitStaging is a row of wms.stg_obdc_handling_unit.
type OBDCHandlingUnitStaging struct {
	DeliveryNumber string
	HandlingUnitID string
	PackagingType  string
	HULevel        string
	ExternalNumber string
	HUQuantity     string
	SourceFile     string
}

// OBDCPackedContentStaging is a row of wms.stg_obdc_packed_content.
type OBDCPackedContentStaging struct {
	ParentHUID     string
	ChildHUID      string
	DeliveryNumber string
	PositionNumber string
	PackedQuantity string
	Unit           string
	MaterialSKU    string
	HULevel        string
	SourceFile     string
}

// OBDCExtensionStaging is a row of wms.stg_obdc_extension.
type OBDCExtensionStaging struct {
	FieldName   string
	ReferenceID string
	Value1      string
	Value2      string
	Value3      string
	SourceFile  string
}

// OBDCStaged groups every staged sub-table of one file.
type OBDCStaged struct {
	Headers       []OBDCHeaderStaging
	Positions     []OBDCPositionStaging
	Controls      []OBDCControlStaging
	HandlingUnits []OBDCHandlingUnitStaging
	PackedContent []OBDCPackedContentStaging
	Extensions    []OBDCExtensionStaging
}

// Len returns the total number of staged rows across sub-tables.
func (s OBDCStaged) Len() int {
	return len(s.Headers) + len(s.Positions) + len(s.Controls) +
		len(s.HandlingUnits) + len(s.PackedContent) + len(s.Extensions)
}

// FinalOBDCHeader is a row of wms.obdc_header.
type FinalOBDCHeader struct {
	DeliveryNumber      string
	PlannedDeliveryDate *time.Time
	GoodsIssueDate      *time.Time
	Version             int
	SourceFile          string
	ProcessedAt         time.Time
}

// FinalOBDCHeaderColumns is the COPY column list for FinalOBDCHeader.Values.
var FinalOBDCHeaderColumns = []string{
	"delivery_number", "planned_delivery_date", "goods_issue_date",
	"version_number", "source_file", "processed_at",
}

// Values returns the row in FinalOBDCHeaderColumns order.
func (f FinalOBDCHeader) Values() []any {
	return []any{f.DeliveryNumber, f.PlannedDeliveryDate, f.GoodsIssueDate, f.Version, f.SourceFile, f.ProcessedAt}
}

// FinalOBDCPosition is a row of wms.obdc_position.
type FinalOBDCPosition struct {
	DeliveryNumber string
	PositionNumber string
	OrderRef       string
	MaterialSKU    string
	Quantity       decimal.NullDecimal
	Unit           string
	Version        int
	SourceFile     string
	ProcessedAt    time.Time
}

// FinalOBDCPositionColumns is the COPY column list for FinalOBDCPosition.Values.
var FinalOBDCPositionColumns = []string{
	"delivery_number", "position_number", "order_ref", "material_sku", "quantity", "unit",
	"version_number", "source_file", "processed_at",
}

// Values returns the row in FinalOBDCPositionColumns order.
func (f FinalOBDCPosition) Values() []any {
	return []any{
		f.DeliveryNumber, f.PositionNumber, f.OrderRef, f.MaterialSKU, numeric(f.Quantity), f.Unit,
		f.Version, f.SourceFile, f.ProcessedAt,
	}
}

// FinalOBDCControl is a row of wms.obdc_position_control.
type FinalOBDCControl struct {
	DeliveryNumber   string
	PositionNumber   string
	ConfirmationFlag string
	Version          int
	SourceFile       string
	ProcessedAt      time.Time
}

// FinalOBDCControlColumns is the COPY column list for FinalOBDCControl.Values.
var FinalOBDCControlColumns = []string{
	"delivery_number", "position_number", "confirmation_flag",
	"version_number", "source_file", "processed_at",
}

// Values returns the row in FinalOBDCControlColumns order.
func (f FinalOBDCControl) Values() []any {
	return []any{f.DeliveryNumber, f.PositionNumber, f.ConfirmationFlag, f.Version, f.SourceFile, f.ProcessedAt}
}

// FinalOBDCHandlingUnit is a row of wms.obdc_handling_unit.
type FinalOBDCHandlingUnit struct {
	DeliveryNumber string
	HandlingUnitID string
	PackagingType  string
	HULevel        string
	ExternalNumber string
	HUQuantity     decimal.NullDecimal
	Version        int
	SourceFile     string
	ProcessedAt    time.Time
}

// FinalOBDCHandlingUnitColumns is the COPY column list for FinalOBDCHandlingUnit.Values.
var FinalOBDCHandlingUnitColumns = []string{
	"delivery_number", "handling_unit_id", "packaging_type", "hu_level", "external_number",
	"hu_quantity", "version_number", "source_file", "processed_at",
}

// Values returns the row in FinalOBDCHandlingUnitColumns order.
func (f FinalOBDCHandlingUnit) Values() []any {
	return []any{
		f.DeliveryNumber, f.HandlingUnitID, f.PackagingType, f.HULevel, f.ExternalNumber,
		numeric(f.HUQuantity), f.Version, f.SourceFile, f.ProcessedAt,
	}
}

// FinalOBDCPackedContent is a row of wms.obdc_packed_content.
type FinalOBDCPackedContent struct {
	ParentHUID     string
	ChildHUID      string
	DeliveryNumber string
	PositionNumber string
	PackedQuantity decimal.NullDecimal
	Unit           string
	MaterialSKU    string
	HULevel        string
	Version        int
	SourceFile     string
	ProcessedAt    time.Time
}

// FinalOBDCPackedContentColumns is the COPY column list for FinalOBDCPackedContent.Values.
var FinalOBDCPackedContentColumns = []string{
	"parent_hu_id", "child_hu_id", "delivery_number", "position_number", "packed_quantity",
	"unit", "material_sku", "hu_level", "version_number", "source_file", "processed_at",
}

// Values returns the row in FinalOBDCPackedContentColumns order.
func (f FinalOBDCPackedContent) Values() []any {
	return []any{
		f.ParentHUID, f.ChildHUID, f.DeliveryNumber, f.PositionNumber, numeric(f.PackedQuantity),
		f.Unit, f.MaterialSKU, f.HULevel, f.Version, f.SourceFile, f.ProcessedAt,
	}
}

// FinalOBDCExtension is a row of wms.obdc_extension.
type FinalOBDCExtension struct {
	FieldName   string
	ReferenceID string
	Value1      string
	Value2      string
	Value3      string
	Version     int
	SourceFile  string
	ProcessedAt time.Time
}

// FinalOBDCExtensionColumns is the COPY column list for FinalOBDCExtension.Values.
var FinalOBDCExtensionColumns = []string{
	"field_name", "reference_id", "value_1", "value_2", "value_3",
	"version_number", "source_file", "processed_at",
}

// Values returns the row in FinalOBDCExtensionColumns order.
func (f FinalOBDCExtension) Values() []any {
	return []any{f.FieldName, f.ReferenceID, f.Value1, f.Value2, f.Value3, f.Version, f.SourceFile, f.ProcessedAt}
}
