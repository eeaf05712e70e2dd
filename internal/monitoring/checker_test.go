package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/wms-ingest/internal/audit"
	"github.com/sells-group/wms-ingest/internal/config"
)

func TestNewChecker_Defaults(t *testing.T) {
	c := NewChecker(NewCollector(&fakeAudit{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{})
	assert.Equal(t, 5*time.Minute, c.interval)
	assert.Equal(t, 24, c.lookback)

	c = NewChecker(NewCollector(&fakeAudit{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{
		CheckIntervalSecs:   30,
		LookbackWindowHours: 2,
	})
	assert.Equal(t, 30*time.Second, c.interval)
	assert.Equal(t, 2, c.lookback)
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, FailureRateThreshold: 0.10}
	checker := NewChecker(NewCollector(&fakeAudit{}), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_Check(t *testing.T) {
	cfg := config.MonitoringConfig{FailureRateThreshold: 0.5, LookbackWindowHours: 12}
	fa := &fakeAudit{tallies: []audit.Tally{
		{DocType: "wave_confirm", Status: audit.StatusProcessed, Count: 4},
		{DocType: "obd_confirm", Status: audit.StatusError, Count: 1},
	}}

	snap, alerts, err := NewChecker(NewCollector(fa), NewAlerter(cfg), cfg).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, snap.LookbackHours)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDocTypeStalled, alerts[0].Type)
}

func TestChecker_CheckError(t *testing.T) {
	cfg := config.MonitoringConfig{}
	_, _, err := NewChecker(NewCollector(&fakeAudit{err: errors.New("db down")}), NewAlerter(cfg), cfg).
		Check(context.Background())
	require.Error(t, err)
}

func TestChecker_TickSendsAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	cfg := config.MonitoringConfig{
		WebhookURL:           ts.URL,
		FailureRateThreshold: 0.5,
		LookbackWindowHours:  12,
	}
	fa := &fakeAudit{tallies: []audit.Tally{
		{DocType: "obd_confirm", Status: audit.StatusError, Count: 6},
	}}
	checker := NewChecker(NewCollector(fa), NewAlerter(cfg), cfg)

	checker.tick(context.Background(), zap.NewNop())

	assert.Equal(t, 1, fa.calls)
	// failure rate plus the stalled doc type
	assert.Equal(t, int32(2), received.Load())
}
