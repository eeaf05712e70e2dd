// Package ingest drives the polling cycle: pull remote drops, detect new
// inbox files, parse and stage them, then promote each file in order.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/wms-ingest/internal/config"
	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/monitoring"
	"github.com/sells-group/wms-ingest/internal/promote"
	"github.com/sells-group/wms-ingest/internal/staging"
	"github.com/sells-group/wms-ingest/internal/tracker"
)

// Stager replaces a file's staging rows.
type Stager interface {
	Load(ctx context.Context, b *staging.Batch) (int64, error)
}

// Promoter runs the promotion procedure of one staged file.
type Promoter interface {
	Promote(ctx context.Context, doc model.DocType, file string) (*promote.Result, error)
}

// Puller mirrors a remote directory into a local one.
type Puller interface {
	Pull(ctx context.Context, remoteURL, pattern, destDir string) ([]string, error)
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, alerts []monitoring.Alert) int
}

// FileTracker remembers handled files.
type FileTracker interface {
	IsNewOrModified(ctx context.Context, source, name string, modTime time.Time, size int64) (bool, error)
	Mark(ctx context.Context, r tracker.Record) error
}

// Source is one inbox directory feeding a single document type.
type Source struct {
	Name       string
	DocType    model.DocType
	Dir        string
	ArchiveDir string
	RemoteURL  string
	Pattern    string
}

// Options tunes the runner.
type Options struct {
	ParseWorkers int
	PollInterval time.Duration
	// Archive moves handled files into the source's ArchiveDir.
	Archive bool
}

// SourceStats counts what one cycle did for one source.
type SourceStats struct {
	Source   string `json:"source" yaml:"source"`
	Pulled   int    `json:"pulled" yaml:"pulled"`
	Scanned  int    `json:"scanned" yaml:"scanned"`
	New      int    `json:"new" yaml:"new"`
	Staged   int64  `json:"staged_rows" yaml:"staged_rows"`
	Promoted int    `json:"promoted" yaml:"promoted"`
	Skipped  int    `json:"skipped" yaml:"skipped"`
	Failed   int    `json:"failed" yaml:"failed"`
}

// Cycle summarizes one pass over every source.
type Cycle struct {
	ID      string        `json:"id" yaml:"id"`
	Started time.Time     `json:"started" yaml:"started"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	Sources []SourceStats `json:"sources" yaml:"sources"`
}

// Failed returns the number of failed files across all sources.
func (c *Cycle) Failed() int {
	n := 0
	for _, s := range c.Sources {
		n += s.Failed
	}
	return n
}

// Runner executes ingest cycles.
type Runner struct {
	sources  []Source
	opts     Options
	stager   Stager
	promoter Promoter
	tracker  FileTracker
	puller   Puller
	notifier Notifier
}

// NewRunner wires a runner. puller and notifier may be nil.
func NewRunner(sources []Source, opts Options, stager Stager, promoter Promoter, ft FileTracker, puller Puller, notifier Notifier) *Runner {
	if opts.ParseWorkers <= 0 {
		opts.ParseWorkers = 4
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	return &Runner{
		sources:  sources,
		opts:     opts,
		stager:   stager,
		promoter: promoter,
		tracker:  ft,
		puller:   puller,
		notifier: notifier,
	}
}

// Watch runs a cycle immediately and then every poll interval until ctx is
// cancelled. Cycle errors are logged and the loop continues.
func (r *Runner) Watch(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "ingest"))
	log.Info("watching sources",
		zap.Int("sources", len(r.sources)),
		zap.Duration("interval", r.opts.PollInterval),
	)

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error("ingest cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			log.Info("watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce processes every source once. Per-file failures are counted and
// alerted, not returned; the error reports cancellation or a broken tracker.
func (r *Runner) RunOnce(ctx context.Context) (*Cycle, error) {
	cycle := &Cycle{ID: uuid.NewString(), Started: time.Now().UTC()}
	log := zap.L().With(zap.String("component", "ingest"), zap.String("cycle", cycle.ID))

	var alerts []monitoring.Alert
	var runErr error
	for _, src := range r.sources {
		stats, srcAlerts, err := r.runSource(ctx, log, cycle.ID, src)
		cycle.Sources = append(cycle.Sources, stats)
		alerts = append(alerts, srcAlerts...)
		if err != nil {
			runErr = err
			break
		}
	}
	cycle.Elapsed = time.Since(cycle.Started)

	if len(alerts) > 0 && r.notifier != nil {
		r.notifier.Notify(context.WithoutCancel(ctx), alerts)
	}

	log.Info("ingest cycle complete",
		zap.Int("sources", len(cycle.Sources)),
		zap.Int("failed", cycle.Failed()),
		zap.Duration("elapsed", cycle.Elapsed),
	)
	return cycle, runErr
}

// candidate is an inbox file awaiting processing.
type candidate struct {
	path    string
	name    string
	modTime time.Time
	size    int64

	batch    *staging.Batch
	parseErr error
}

func (r *Runner) runSource(ctx context.Context, log *zap.Logger, cycleID string, src Source) (SourceStats, []monitoring.Alert, error) {
	stats := SourceStats{Source: src.Name}
	var alerts []monitoring.Alert
	log = log.With(zap.String("source", src.Name), zap.String("doc_type", src.DocType.String()))

	if src.RemoteURL != "" && r.puller != nil {
		pulled, err := r.puller.Pull(ctx, src.RemoteURL, src.Pattern, src.Dir)
		stats.Pulled = len(pulled)
		if err != nil {
			if ctx.Err() != nil {
				return stats, alerts, ctx.Err()
			}
			log.Error("remote pull failed", zap.Error(err))
			alerts = append(alerts, monitoring.IngestFailureAlert(src.Name, src.RemoteURL, "pull", err))
		}
	}

	files, err := scan(src.Dir, src.Pattern)
	if err != nil {
		log.Error("scan failed", zap.Error(err))
		alerts = append(alerts, monitoring.IngestFailureAlert(src.Name, src.Dir, "scan", err))
		return stats, alerts, nil
	}
	stats.Scanned = len(files)

	var todo []*candidate
	for _, c := range files {
		isNew, err := r.tracker.IsNewOrModified(ctx, src.Name, c.name, c.modTime, c.size)
		if err != nil {
			return stats, alerts, err
		}
		if isNew {
			todo = append(todo, c)
		}
	}
	stats.New = len(todo)
	if len(todo) == 0 {
		return stats, alerts, nil
	}

	if err := r.parseAll(ctx, src.DocType, todo); err != nil {
		return stats, alerts, err
	}

	for _, c := range todo {
		if err := ctx.Err(); err != nil {
			return stats, alerts, err
		}
		alert, err := r.process(ctx, log, cycleID, src, c, &stats)
		if alert != nil {
			alerts = append(alerts, *alert)
		}
		if err != nil {
			return stats, alerts, err
		}
	}
	return stats, alerts, nil
}

// parseAll parses candidates concurrently. Parse errors stay on their
// candidate; only cancellation aborts the group.
func (r *Runner) parseAll(ctx context.Context, doc model.DocType, todo []*candidate) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.ParseWorkers)

	for _, c := range todo {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.batch, c.parseErr = staging.ParseFile(doc, c.path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "ingest: parse files")
	}
	return nil
}

// process stages and promotes one parsed file. A staging failure leaves the
// file untracked so the next cycle retries it. A promotion failure is tracked
// as failed and the staged rows stay behind for a manual promote.
func (r *Runner) process(ctx context.Context, log *zap.Logger, cycleID string, src Source, c *candidate, stats *SourceStats) (*monitoring.Alert, error) {
	log = log.With(zap.String("file", c.name))
	rec := tracker.Record{
		Source:  src.Name,
		Name:    c.name,
		ModTime: c.modTime,
		Size:    c.size,
		CycleID: cycleID,
	}

	if c.parseErr != nil {
		stats.Failed++
		log.Error("parse failed", zap.Error(c.parseErr))
		rec.Status = tracker.StatusFailed
		rec.Message = c.parseErr.Error()
		alert := monitoring.IngestFailureAlert(src.Name, c.name, "parse", c.parseErr)
		return &alert, r.tracker.Mark(ctx, rec)
	}

	n, err := r.stager.Load(ctx, c.batch)
	if err != nil {
		stats.Failed++
		log.Error("staging load failed", zap.Error(err))
		alert := monitoring.IngestFailureAlert(src.Name, c.name, "load", err)
		return &alert, nil
	}
	stats.Staged += n

	res, err := r.promoter.Promote(ctx, src.DocType, c.batch.SourceFile)
	var alert *monitoring.Alert
	switch {
	case err != nil:
		stats.Failed++
		rec.Status = tracker.StatusFailed
		rec.Message = err.Error()
		a := monitoring.IngestFailureAlert(src.Name, c.name, "promote", err)
		alert = &a
	case res.Skipped:
		stats.Skipped++
		rec.Status = tracker.StatusSkipped
		rec.Message = "duplicate content"
	default:
		stats.Promoted++
		rec.Status = tracker.StatusPromoted
		rec.Message = res.Message
	}

	if err := r.tracker.Mark(ctx, rec); err != nil {
		return alert, err
	}
	if r.opts.Archive {
		r.archive(log, src, c)
	}
	return alert, nil
}

func (r *Runner) archive(log *zap.Logger, src Source, c *candidate) {
	if src.ArchiveDir == "" {
		return
	}
	if err := os.MkdirAll(src.ArchiveDir, 0o750); err != nil {
		log.Warn("archive dir unavailable", zap.Error(err))
		return
	}
	dest := filepath.Join(src.ArchiveDir, c.name)
	if err := os.Rename(c.path, dest); err != nil {
		log.Warn("archive failed", zap.String("dest", dest), zap.Error(err))
		return
	}
	log.Debug("archived file", zap.String("dest", dest))
}

// scan lists regular files in dir matching pattern, oldest first so
// versions are assigned in arrival order.
func scan(dir, pattern string) ([]*candidate, error) {
	if pattern == "" {
		pattern = "*"
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read dir %s", dir)
	}

	var out []*candidate
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), ".part") {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: stat %s", e.Name())
		}
		out = append(out, &candidate{
			path:    filepath.Join(dir, e.Name()),
			name:    e.Name(),
			modTime: info.ModTime(),
			size:    info.Size(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].modTime.Equal(out[j].modTime) {
			return out[i].modTime.Before(out[j].modTime)
		}
		return out[i].name < out[j].name
	})
	return out, nil
}

// SourcesFromConfig converts configured sources, resolving document types.
func SourcesFromConfig(cfgs []config.SourceConfig) ([]Source, error) {
	out := make([]Source, 0, len(cfgs))
	for _, c := range cfgs {
		doc, err := model.ParseDocType(c.DocType)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: source %s", c.Name)
		}
		out = append(out, Source{
			Name:       c.Name,
			DocType:    doc,
			Dir:        c.Dir,
			ArchiveDir: c.ArchiveDir,
			RemoteURL:  c.RemoteURL,
			Pattern:    c.Pattern,
		})
	}
	return out, nil
}

// Only returns the sources named in names, or all when names is empty.
func Only(sources []Source, names ...string) ([]Source, error) {
	if len(names) == 0 {
		return sources, nil
	}
	byName := make(map[string]Source, len(sources))
	for _, s := range sources {
		byName[s.Name] = s
	}
	out := make([]Source, 0, len(names))
	for _, n := range names {
		s, ok := byName[n]
		if !ok {
			return nil, eris.Errorf("ingest: unknown source %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}
