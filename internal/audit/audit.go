// Package audit records the outcome of every promotion attempt in
// wms.audit_log.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/wms-ingest/internal/db"
)

// Status is the outcome tag of an audit entry.
type Status string

const (
	StatusProcessed Status = "PROCESSED"
	StatusError     Status = "ERROR"
)

// Entry represents a row in wms.audit_log.
type Entry struct {
	ID       int64     `json:"id" yaml:"id"`
	DocType  string    `json:"doc_type" yaml:"doc_type"`
	FileName string    `json:"file_name" yaml:"file_name"`
	Status   Status    `json:"status" yaml:"status"`
	Message  string    `json:"message" yaml:"message"`
	LoggedAt time.Time `json:"logged_at" yaml:"logged_at"`
}

// Filter narrows List results. Zero values mean no restriction.
type Filter struct {
	DocType  string
	FileName string
	Status   Status
	Limit    int
}

// Log provides read/write access to the wms.audit_log table.
type Log struct {
	pool db.Querier
}

// NewLog creates a Log whose independent writes and reads go through pool.
func NewLog(pool db.Querier) *Log {
	return &Log{pool: pool}
}

// Processed appends a PROCESSED entry through q, normally the promotion
// transaction, so it commits or rolls back with the promoted rows.
func (l *Log) Processed(ctx context.Context, q db.Querier, docType, fileName, message string) error {
	return write(ctx, q, docType, fileName, StatusProcessed, message)
}

// Failed appends an ERROR entry directly on the pool. It must be called after
// the promotion transaction has rolled back so the entry is not lost with it.
func (l *Log) Failed(ctx context.Context, docType, fileName, message string) error {
	return write(ctx, l.pool, docType, fileName, StatusError, message)
}

func write(ctx context.Context, q db.Querier, docType, fileName string, status Status, message string) error {
	_, err := q.Exec(ctx,
		`INSERT INTO wms.audit_log (doc_type, file_name, status, message, logged_at)
		 VALUES ($1, $2, $3, $4, now())`,
		docType, fileName, string(status), message,
	)
	if err != nil {
		return eris.Wrapf(err, "audit: write %s entry for %s", status, fileName)
	}
	return nil
}

// List returns audit entries matching f, most recent first.
func (l *Log) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.DocType != "" {
		args = append(args, f.DocType)
		where = append(where, fmt.Sprintf("doc_type = $%d", len(args)))
	}
	if f.FileName != "" {
		args = append(args, f.FileName)
		where = append(where, fmt.Sprintf("file_name = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	sql := "SELECT id, doc_type, file_name, status, message, logged_at FROM wms.audit_log"
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY logged_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := l.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "audit: list entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.ID, &e.DocType, &e.FileName, &status, &e.Message, &e.LoggedAt); err != nil {
			return nil, eris.Wrap(err, "audit: scan entry")
		}
		e.Status = Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Tally counts entries of one document type and status.
type Tally struct {
	DocType string `json:"doc_type" yaml:"doc_type"`
	Status  Status `json:"status" yaml:"status"`
	Count   int    `json:"count" yaml:"count"`
}

// Summarize counts entries logged at or after since, grouped by document
// type and status.
func (l *Log) Summarize(ctx context.Context, since time.Time) ([]Tally, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT doc_type, status, count(*) FROM wms.audit_log
		 WHERE logged_at >= $1 GROUP BY doc_type, status ORDER BY doc_type, status`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "audit: summarize")
	}
	defer rows.Close()

	var tallies []Tally
	for rows.Next() {
		var (
			t      Tally
			status string
			count  int64
		)
		if err := rows.Scan(&t.DocType, &status, &count); err != nil {
			return nil, eris.Wrap(err, "audit: scan tally")
		}
		t.Status = Status(status)
		t.Count = int(count)
		tallies = append(tallies, t)
	}
	return tallies, rows.Err()
}
