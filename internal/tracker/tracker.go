// Package tracker remembers which inbox files have been handled, keyed by
// source and file name, so each polling cycle only picks up new or changed
// files.
package tracker

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Status is the outcome recorded for a file.
type Status string

const (
	StatusPromoted Status = "promoted"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Record is one tracked file.
type Record struct {
	Source      string    `json:"source" yaml:"source"`
	Name        string    `json:"name" yaml:"name"`
	ModTime     time.Time `json:"mod_time" yaml:"mod_time"`
	Size        int64     `json:"size" yaml:"size"`
	Status      Status    `json:"status" yaml:"status"`
	CycleID     string    `json:"cycle_id" yaml:"cycle_id"`
	Message     string    `json:"message,omitempty" yaml:"message,omitempty"`
	ProcessedAt time.Time `json:"processed_at" yaml:"processed_at"`
}

// Tracker is a SQLite-backed file state store.
type Tracker struct {
	db *sql.DB
}

const migration = `
CREATE TABLE IF NOT EXISTS tracked_files (
	source       TEXT NOT NULL,
	name         TEXT NOT NULL,
	mod_time     INTEGER NOT NULL,
	size         INTEGER NOT NULL,
	status       TEXT NOT NULL,
	cycle_id     TEXT NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	processed_at DATETIME NOT NULL,
	PRIMARY KEY (source, name)
);

CREATE INDEX IF NOT EXISTS idx_tracked_files_status ON tracked_files(status);
`

// Open opens (creating if needed) the tracker database at dsn.
func Open(ctx context.Context, dsn string) (*Tracker, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: open")
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		migration,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "tracker: exec %.40s", stmt)
		}
	}
	return &Tracker{db: db}, nil
}

// Close releases the database.
func (t *Tracker) Close() error {
	return t.db.Close()
}

// IsNewOrModified reports whether the file is unseen, has a newer
// modification time, or changed size since it was last recorded.
func (t *Tracker) IsNewOrModified(ctx context.Context, source, name string, modTime time.Time, size int64) (bool, error) {
	var storedMod, storedSize int64
	err := t.db.QueryRowContext(ctx,
		`SELECT mod_time, size FROM tracked_files WHERE source = ? AND name = ?`,
		source, name,
	).Scan(&storedMod, &storedSize)
	if eris.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "tracker: look up %s/%s", source, name)
	}
	return modTime.UnixNano() > storedMod || size != storedSize, nil
}

// Mark records the outcome for a file, replacing any earlier record.
func (t *Tracker) Mark(ctx context.Context, r Record) error {
	if r.ProcessedAt.IsZero() {
		r.ProcessedAt = time.Now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO tracked_files (source, name, mod_time, size, status, cycle_id, message, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source, name) DO UPDATE SET
			mod_time = excluded.mod_time,
			size = excluded.size,
			status = excluded.status,
			cycle_id = excluded.cycle_id,
			message = excluded.message,
			processed_at = excluded.processed_at`,
		r.Source, r.Name, r.ModTime.UnixNano(), r.Size, string(r.Status), r.CycleID, r.Message, r.ProcessedAt,
	)
	return eris.Wrapf(err, "tracker: mark %s/%s", r.Source, r.Name)
}

// List returns tracked files, most recent first. An empty source lists all.
func (t *Tracker) List(ctx context.Context, source string, limit int) ([]Record, error) {
	query := `SELECT source, name, mod_time, size, status, cycle_id, message, processed_at FROM tracked_files`
	var args []any
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY processed_at DESC, name`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "tracker: list")
	}
	defer rows.Close() //nolint:errcheck

	var out []Record
	for rows.Next() {
		var (
			r      Record
			mod    int64
			status string
		)
		if err := rows.Scan(&r.Source, &r.Name, &mod, &r.Size, &status, &r.CycleID, &r.Message, &r.ProcessedAt); err != nil {
			return nil, eris.Wrap(err, "tracker: scan")
		}
		r.ModTime = time.Unix(0, mod).UTC()
		r.Status = Status(status)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "tracker: iterate")
}

// Reset forgets every tracked file.
func (t *Tracker) Reset(ctx context.Context) (int64, error) {
	res, err := t.db.ExecContext(ctx, `DELETE FROM tracked_files`)
	if err != nil {
		return 0, eris.Wrap(err, "tracker: reset")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "tracker: reset rows affected")
}
