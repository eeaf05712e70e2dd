package promote

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wms-ingest/internal/audit"
	"github.com/sells-group/wms-ingest/internal/db"
	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/staging"
	"github.com/sells-group/wms-ingest/internal/version"
)

// ErrUnknownDocType is returned for a document type with no procedure.
var ErrUnknownDocType = eris.New("promote: unknown document type")

// Result describes one promotion invocation.
type Result struct {
	DocType model.DocType
	File    string
	// Skipped is set when the hash gate recognized already promoted content.
	Skipped     bool
	Fingerprint string
	Version     int
	Counts      map[string]int
	Message     string
	Elapsed     time.Duration
}

// Config tunes the engine.
type Config struct {
	// Lock takes a per-document-type advisory lock inside each promotion so
	// parallel callers cannot resolve the same version.
	Lock bool
}

// Engine runs promotion procedures.
type Engine struct {
	pool  db.Pool
	audit *audit.Log
	gate  HashGate
	procs map[model.DocType]Procedure
	cfg   Config
	now   func() time.Time
}

// NewEngine returns an engine with the four WMS procedures registered.
func NewEngine(pool db.Pool, cfg Config) *Engine {
	e := &Engine{
		pool:  pool,
		audit: audit.NewLog(pool),
		procs: make(map[model.DocType]Procedure),
		cfg:   cfg,
		now:   time.Now,
	}
	e.Register(Cartoning{})
	e.Register(WaveConfirm{})
	e.Register(OutboundDelivery{})
	e.Register(OBDConfirm{})
	return e
}

// Register adds or replaces the procedure for p.DocType().
func (e *Engine) Register(p Procedure) {
	e.procs[p.DocType()] = p
}

// Promote promotes the staged rows of file for doc. The final rows, staging
// cleanup, fingerprint and PROCESSED audit entry commit together. On failure
// the transaction rolls back and an ERROR audit entry is written on its own.
func (e *Engine) Promote(ctx context.Context, doc model.DocType, file string) (*Result, error) {
	proc, ok := e.procs[doc]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownDocType, "promote: %q", doc)
	}

	log := zap.L().With(
		zap.String("component", "promote"),
		zap.String("doc_type", doc.String()),
		zap.String("file", file),
	)
	start := e.now()
	log.Info("promotion started")

	res, err := e.promote(ctx, proc, Run{File: file, At: start.UTC()})
	if err != nil {
		log.Error("promotion failed", zap.Error(err))
		if aerr := e.audit.Failed(context.WithoutCancel(ctx), doc.String(), file, err.Error()); aerr != nil {
			log.Error("write error audit entry", zap.Error(aerr))
		}
		return nil, err
	}

	res.Elapsed = e.now().Sub(start)
	if res.Skipped {
		log.Info("promotion skipped, content already promoted", zap.String("fingerprint", res.Fingerprint))
		return res, nil
	}
	log.Info("promotion complete",
		zap.Int("version", res.Version),
		zap.String("summary", res.Message),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (e *Engine) promote(ctx context.Context, proc Procedure, run Run) (*Result, error) {
	doc := proc.DocType()
	res := &Result{DocType: doc, File: run.File}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "promote: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if e.cfg.Lock {
		if err := version.Lock(ctx, tx, doc.String()); err != nil {
			return nil, err
		}
	}

	var out *Outcome
	gated, isGated := proc.(Gated)
	if isGated {
		staged, err := gated.ReadStaged(ctx, tx, run.File)
		if err != nil {
			return nil, err
		}
		res.Fingerprint = e.gate.Fingerprint(staged)

		seen, err := e.gate.Seen(ctx, tx, doc, run.File, res.Fingerprint)
		if err != nil {
			return nil, err
		}
		if seen {
			res.Skipped = true
			return res, eris.Wrap(tx.Commit(ctx), "promote: commit skipped tx")
		}

		if out, err = gated.PromoteStaged(ctx, tx, run, staged); err != nil {
			return nil, err
		}
	} else if out, err = proc.Promote(ctx, tx, run); err != nil {
		return nil, err
	}

	if _, err := staging.Clear(ctx, tx, doc, run.File); err != nil {
		return nil, err
	}

	if isGated {
		if err := e.gate.Record(ctx, tx, doc, run.File, res.Fingerprint); err != nil {
			return nil, err
		}
	}

	if err := e.audit.Processed(ctx, tx, doc.String(), run.File, out.Message); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "promote: commit tx")
	}

	res.Version = out.Version
	res.Counts = out.Counts
	res.Message = out.Message
	return res, nil
}
