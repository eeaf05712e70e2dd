package model

import "time"

// WaveConfirmStaging is a row of wms.stg_wave_confirm.
type WaveConfirmStaging struct {
	ID         int64
	WaveID     string
	OrderID    string
	LineRef    string
	BoxID      string
	Extra      string
	Processed  bool
	SourceFile string
}

// WaveKey is the composite business key of a wave confirmation.
type WaveKey struct {
	WaveID  string
	OrderID string
	BoxID   string
}

// Key returns the composite business key of the row.
func (s WaveConfirmStaging) Key() WaveKey {
	return WaveKey{WaveID: s.WaveID, OrderID: s.OrderID, BoxID: s.BoxID}
}

// FinalWaveConfirm is a row of wms.wave_confirm.
type FinalWaveConfirm struct {
	WaveID      string
	OrderID     string
	LineRef     string
	BoxID       string
	Extra       string
	Version     int
	SourceFile  string
	ProcessedAt time.Time
}

// FinalWaveConfirmColumns is the COPY column list for FinalWaveConfirm.Values.
var FinalWaveConfirmColumns = []string{
	"wave_id", "order_id", "line_ref", "box_id", "extra",
	"version_number", "source_file", "processed_at",
}

// Values returns the row in FinalWaveConfirmColumns order.
func (f FinalWaveConfirm) Values() []any {
	return []any{f.WaveID, f.OrderID, f.LineRef, f.BoxID, f.Extra, f.Version, f.SourceFile, f.ProcessedAt}
}
