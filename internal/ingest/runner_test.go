package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/wms-ingest/internal/config"
	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/monitoring"
	"github.com/sells-group/wms-ingest/internal/promote"
	"github.com/sells-group/wms-ingest/internal/staging"
	"github.com/sells-group/wms-ingest/internal/tracker"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeStager struct {
	loaded []string
	errs   map[string]error
}

func (f *fakeStager) Load(_ context.Context, b *staging.Batch) (int64, error) {
	if err := f.errs[b.SourceFile]; err != nil {
		delete(f.errs, b.SourceFile)
		return 0, err
	}
	f.loaded = append(f.loaded, b.SourceFile)
	return int64(b.Len()), nil
}

type fakePromoter struct {
	calls   []string
	skipped map[string]bool
	errs    map[string]error
}

func (f *fakePromoter) Promote(_ context.Context, doc model.DocType, file string) (*promote.Result, error) {
	f.calls = append(f.calls, file)
	if err := f.errs[file]; err != nil {
		return nil, err
	}
	if f.skipped[file] {
		return &promote.Result{DocType: doc, File: file, Skipped: true}, nil
	}
	return &promote.Result{DocType: doc, File: file, Version: 1, Message: "version=1 new=1"}, nil
}

type fakePuller struct {
	files map[string]string
	err   error
}

func (f *fakePuller) Pull(_ context.Context, _, _, destDir string) ([]string, error) {
	var out []string
	for name, content := range f.files {
		p := filepath.Join(destDir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, f.err
}

type fakeNotifier struct {
	alerts []monitoring.Alert
}

func (f *fakeNotifier) Notify(_ context.Context, alerts []monitoring.Alert) int {
	f.alerts = append(f.alerts, alerts...)
	return len(alerts)
}

type fixture struct {
	inbox    string
	archive  string
	stager   *fakeStager
	promoter *fakePromoter
	notifier *fakeNotifier
	tracker  *tracker.Tracker
	src      Source
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		inbox:    filepath.Join(root, "inbox"),
		archive:  filepath.Join(root, "archive"),
		stager:   &fakeStager{errs: map[string]error{}},
		promoter: &fakePromoter{skipped: map[string]bool{}, errs: map[string]error{}},
		notifier: &fakeNotifier{},
	}
	require.NoError(t, os.MkdirAll(f.inbox, 0o750))

	tr, err := tracker.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	f.tracker = tr

	f.src = Source{
		Name:       "waves",
		DocType:    model.DocWaveConfirm,
		Dir:        f.inbox,
		ArchiveDir: f.archive,
		Pattern:    "*.txt",
	}
	return f
}

func (f *fixture) runner(archive bool, puller Puller) *Runner {
	return NewRunner([]Source{f.src}, Options{ParseWorkers: 2, Archive: archive},
		f.stager, f.promoter, f.tracker, puller, f.notifier)
}

func (f *fixture) write(t *testing.T, name, content string, age time.Duration) {
	t.Helper()
	p := filepath.Join(f.inbox, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	ts := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(p, ts, ts))
}

func (f *fixture) status(t *testing.T) map[string]tracker.Record {
	t.Helper()
	recs, err := f.tracker.List(context.Background(), "waves", 0)
	require.NoError(t, err)
	out := make(map[string]tracker.Record, len(recs))
	for _, r := range recs {
		out[r.Name] = r
	}
	return out
}

const waveFile = "W1;O1;L1;B1;\nW1;O2;L1;B2;\n"

func TestRunOnce_PromotesInArrivalOrderAndArchives(t *testing.T) {
	f := newFixture(t)
	f.write(t, "WAVE_A.txt", waveFile, time.Minute)
	f.write(t, "WAVE_B.txt", "W2;O9;L1;B1;\n", time.Hour)
	f.write(t, "readme.md", "not a wave file", time.Hour)

	cycle, err := f.runner(true, nil).RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, cycle.ID)
	require.Len(t, cycle.Sources, 1)
	assert.Equal(t, SourceStats{
		Source:   "waves",
		Scanned:  2,
		New:      2,
		Staged:   3,
		Promoted: 2,
	}, cycle.Sources[0])
	assert.Zero(t, cycle.Failed())

	assert.Equal(t, []string{"WAVE_B.txt", "WAVE_A.txt"}, f.promoter.calls)
	assert.Equal(t, []string{"WAVE_B.txt", "WAVE_A.txt"}, f.stager.loaded)

	for _, name := range []string{"WAVE_A.txt", "WAVE_B.txt"} {
		_, err := os.Stat(filepath.Join(f.archive, name))
		assert.NoError(t, err, name)
		_, err = os.Stat(filepath.Join(f.inbox, name))
		assert.True(t, os.IsNotExist(err), name)
	}
	_, err = os.Stat(filepath.Join(f.inbox, "readme.md"))
	assert.NoError(t, err)

	st := f.status(t)
	require.Len(t, st, 2)
	assert.Equal(t, tracker.StatusPromoted, st["WAVE_A.txt"].Status)
	assert.Equal(t, "version=1 new=1", st["WAVE_A.txt"].Message)
	assert.Equal(t, cycle.ID, st["WAVE_B.txt"].CycleID)
	assert.Empty(t, f.notifier.alerts)
}

func TestRunOnce_TrackedFilesAreNotReprocessed(t *testing.T) {
	f := newFixture(t)
	f.write(t, "WAVE_A.txt", waveFile, time.Minute)
	r := f.runner(false, nil)

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	cycle, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cycle.Sources[0].Scanned)
	assert.Equal(t, 0, cycle.Sources[0].New)
	assert.Equal(t, []string{"WAVE_A.txt"}, f.promoter.calls)

	// A rewritten file is picked up again.
	f.write(t, "WAVE_A.txt", waveFile+"W1;O3;L1;B3;\n", 0)
	cycle, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cycle.Sources[0].New)
	assert.Equal(t, []string{"WAVE_A.txt", "WAVE_A.txt"}, f.promoter.calls)
}

func TestRunOnce_SkippedAndFailedPromotions(t *testing.T) {
	f := newFixture(t)
	f.write(t, "WAVE_A.txt", waveFile, 2*time.Minute)
	f.write(t, "WAVE_B.txt", waveFile, time.Minute)
	f.promoter.skipped["WAVE_A.txt"] = true
	f.promoter.errs["WAVE_B.txt"] = errors.New("promote: deadlock detected")

	cycle, err := f.runner(true, nil).RunOnce(context.Background())
	require.NoError(t, err)

	stats := cycle.Sources[0]
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Promoted)

	st := f.status(t)
	assert.Equal(t, tracker.StatusSkipped, st["WAVE_A.txt"].Status)
	assert.Equal(t, tracker.StatusFailed, st["WAVE_B.txt"].Status)
	assert.Contains(t, st["WAVE_B.txt"].Message, "deadlock")

	// Failed promotions are archived too; their staging rows stay for a manual promote.
	_, err = os.Stat(filepath.Join(f.archive, "WAVE_B.txt"))
	assert.NoError(t, err)

	require.Len(t, f.notifier.alerts, 1)
	alert := f.notifier.alerts[0]
	assert.Equal(t, monitoring.AlertIngestFailure, alert.Type)
	assert.Equal(t, "promote", alert.Details["stage"])
	assert.Equal(t, "WAVE_B.txt", alert.Details["file"])
}

func TestRunOnce_StagingFailureIsRetried(t *testing.T) {
	f := newFixture(t)
	f.write(t, "WAVE_A.txt", waveFile, time.Minute)
	f.stager.errs["WAVE_A.txt"] = errors.New("staging: copy: conn closed")
	r := f.runner(true, nil)

	cycle, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cycle.Sources[0].Failed)
	assert.Empty(t, f.promoter.calls)
	assert.Empty(t, f.status(t))
	_, err = os.Stat(filepath.Join(f.inbox, "WAVE_A.txt"))
	require.NoError(t, err, "file stays in the inbox")
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "load", f.notifier.alerts[0].Details["stage"])

	cycle, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cycle.Sources[0].Promoted)
	assert.Equal(t, []string{"WAVE_A.txt"}, f.promoter.calls)
}

func TestRunOnce_ParseFailure(t *testing.T) {
	f := newFixture(t)
	f.write(t, "WAVE_HUGE.txt", strings.Repeat("x", 2<<20), time.Minute)

	cycle, err := f.runner(true, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cycle.Sources[0].Failed)
	assert.Empty(t, f.stager.loaded)

	st := f.status(t)
	assert.Equal(t, tracker.StatusFailed, st["WAVE_HUGE.txt"].Status)
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "parse", f.notifier.alerts[0].Details["stage"])

	// Unparseable files are left in place.
	_, err = os.Stat(filepath.Join(f.inbox, "WAVE_HUGE.txt"))
	assert.NoError(t, err)
}

func TestRunOnce_PullsRemoteFiles(t *testing.T) {
	f := newFixture(t)
	f.src.RemoteURL = "ftp://wms.example.com/out"
	puller := &fakePuller{files: map[string]string{"WAVE_R.txt": waveFile}}

	cycle, err := f.runner(false, puller).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cycle.Sources[0].Pulled)
	assert.Equal(t, 1, cycle.Sources[0].Promoted)
	assert.Equal(t, []string{"WAVE_R.txt"}, f.promoter.calls)
}

func TestRunOnce_PullFailureStillProcessesInbox(t *testing.T) {
	f := newFixture(t)
	f.src.RemoteURL = "ftp://wms.example.com/out"
	f.write(t, "WAVE_A.txt", waveFile, time.Minute)
	puller := &fakePuller{err: errors.New("fetcher: ftp dial: connection refused")}

	cycle, err := f.runner(false, puller).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cycle.Sources[0].Promoted)
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "pull", f.notifier.alerts[0].Details["stage"])
}

func TestRunOnce_MissingInbox(t *testing.T) {
	f := newFixture(t)
	f.src.Dir = filepath.Join(f.inbox, "missing")

	cycle, err := f.runner(false, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, cycle.Sources[0].Scanned)
	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "scan", f.notifier.alerts[0].Details["stage"])
}

func TestRunOnce_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.write(t, "WAVE_A.txt", waveFile, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.runner(false, nil).RunOnce(ctx)
	require.Error(t, err)
	assert.Empty(t, f.promoter.calls)
}

func TestWatch_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.write(t, "WAVE_A.txt", waveFile, time.Minute)
	r := NewRunner([]Source{f.src}, Options{PollInterval: 10 * time.Millisecond},
		f.stager, f.promoter, f.tracker, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after context cancellation")
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	for name, age := range map[string]time.Duration{
		"b.txt":      time.Hour,
		"a.txt":      time.Hour,
		"c.txt":      2 * time.Hour,
		"d.txt.part": 3 * time.Hour,
		"e.csv":      3 * time.Hour,
	} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
		require.NoError(t, os.Chtimes(p, now.Add(-age), now.Add(-age)))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o750))

	files, err := scan(dir, "*.txt")
	require.NoError(t, err)

	var names []string
	for _, c := range files {
		names = append(names, c.name)
	}
	assert.Equal(t, []string{"c.txt", "a.txt", "b.txt"}, names)
}

func TestSourcesFromConfig(t *testing.T) {
	sources, err := SourcesFromConfig([]config.SourceConfig{
		{Name: "obdc", DocType: "obd_confirm", Dir: "/in/obdc", Pattern: "*.idoc"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Source{{Name: "obdc", DocType: model.DocOBDConfirm, Dir: "/in/obdc", Pattern: "*.idoc"}}, sources)

	_, err = SourcesFromConfig([]config.SourceConfig{{Name: "x", DocType: "invoice"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest: source x")
}

func TestOnly(t *testing.T) {
	all := []Source{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	got, err := Only(all)
	require.NoError(t, err)
	assert.Equal(t, all, got)

	got, err = Only(all, "c", "a")
	require.NoError(t, err)
	assert.Equal(t, []Source{{Name: "c"}, {Name: "a"}}, got)

	_, err = Only(all, "z")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown source "z"`)
}
