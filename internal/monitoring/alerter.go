package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/wms-ingest/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertPromotionFailureRate AlertType = "promotion_failure_rate"
	AlertDocTypeStalled       AlertType = "doc_type_stalled"
	AlertIngestFailure        AlertType = "ingest_failure"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// IngestFailureAlert reports a file that failed one stage of an ingest cycle.
func IngestFailureAlert(source, file, stage string, err error) Alert {
	return Alert{
		Type:     AlertIngestFailure,
		Severity: "high",
		Message:  fmt.Sprintf("%s of %s from source %s failed: %v", stage, file, source, err),
		Details: map[string]any{
			"source": source,
			"file":   file,
			"stage":  stage,
		},
		Timestamp: time.Now().UTC(),
	}
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook.
type Alerter struct {
	cfg     config.MonitoringConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		// A failing cycle can raise one alert per file.
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Overall failure rate, once enough promotions finished to mean something.
	finished := snap.Processed + snap.Failed
	if finished >= 5 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertPromotionFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Promotion failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.Failed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	// A document type with failures and no success in the window.
	docTypes := make([]string, 0, len(snap.ByDocType))
	for dt := range snap.ByDocType {
		docTypes = append(docTypes, dt)
	}
	sort.Strings(docTypes)
	for _, dt := range docTypes {
		stats := snap.ByDocType[dt]
		if stats.Failed == 0 || stats.Processed > 0 {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     AlertDocTypeStalled,
			Severity: "high",
			Message: fmt.Sprintf(
				"%s: %d failed promotion(s) and none succeeded in last %dh",
				dt, stats.Failed, snap.LookbackHours,
			),
			Details: map[string]any{
				"doc_type": dt,
				"failed":   stats.Failed,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// Notify delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) Notify(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.limiter.Wait(ctx); err != nil {
			zap.L().Warn("monitoring: alert delivery interrupted",
				zap.Int("unsent", len(alerts)-sent),
				zap.Error(err),
			)
			break
		}
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
