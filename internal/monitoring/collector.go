// Package monitoring watches promotion outcomes and posts alerts to a
// webhook when they go wrong.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wms-ingest/internal/audit"
)

// DocTypeStats counts audited promotion outcomes of one document type.
type DocTypeStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// MetricsSnapshot holds a point-in-time view of promotion health.
type MetricsSnapshot struct {
	Processed int                     `json:"processed"`
	Failed    int                     `json:"failed"`
	FailRate  float64                 `json:"fail_rate"`
	ByDocType map[string]DocTypeStats `json:"by_doc_type"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// AuditSummarizer abstracts the audit log method needed by the collector.
type AuditSummarizer interface {
	Summarize(ctx context.Context, since time.Time) ([]audit.Tally, error)
}

// Collector gathers metrics from the audit log.
type Collector struct {
	audit AuditSummarizer
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(a AuditSummarizer) *Collector {
	return &Collector{audit: a, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		ByDocType:     make(map[string]DocTypeStats),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	tallies, err := c.audit.Summarize(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: summarize audit log")
	}

	for _, t := range tallies {
		stats := snap.ByDocType[t.DocType]
		switch t.Status {
		case audit.StatusProcessed:
			stats.Processed += t.Count
			snap.Processed += t.Count
		case audit.StatusError:
			stats.Failed += t.Count
			snap.Failed += t.Count
		}
		snap.ByDocType[t.DocType] = stats
	}

	if finished := snap.Processed + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	return snap, nil
}
