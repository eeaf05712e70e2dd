package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/wms-ingest/internal/audit"
	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/monitoring"
	"github.com/sells-group/wms-ingest/internal/tracker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the promotion audit log",
	Long: "Lists audit entries, most recent first. --summary counts outcomes per document type " +
		"over --since; --tracked lists the file tracker instead of the audit log; --alerts shows " +
		"the alerts the monitoring checker would raise right now without sending them.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		if format != "table" && format != "yaml" && format != "json" {
			return eris.Errorf("status: unknown format %q (table, yaml, json)", format)
		}
		limit, _ := cmd.Flags().GetInt("limit")

		if tracked, _ := cmd.Flags().GetBool("tracked"); tracked {
			source, _ := cmd.Flags().GetString("source")
			tr, err := tracker.Open(ctx, cfg.Ingest.StatePath)
			if err != nil {
				return eris.Wrap(err, "status")
			}
			defer tr.Close() //nolint:errcheck

			recs, err := tr.List(ctx, source, limit)
			if err != nil {
				return eris.Wrap(err, "status")
			}
			return render(os.Stdout, format, recs, func(w io.Writer) { formatTracked(w, recs) })
		}

		pool, err := openPool(ctx, "status")
		if err != nil {
			return err
		}
		defer pool.Close()
		log := audit.NewLog(pool)

		if dry, _ := cmd.Flags().GetBool("alerts"); dry {
			checker := monitoring.NewChecker(monitoring.NewCollector(log), monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			_, alerts, err := checker.Check(ctx)
			if err != nil {
				return eris.Wrap(err, "status")
			}
			if len(alerts) == 0 && format == "table" {
				fmt.Fprintln(os.Stderr, "No alerts.")
				return nil
			}
			return render(os.Stdout, format, alerts, func(w io.Writer) { formatAlerts(w, alerts) })
		}

		if summary, _ := cmd.Flags().GetBool("summary"); summary {
			since, _ := cmd.Flags().GetDuration("since")
			tallies, err := log.Summarize(ctx, time.Now().Add(-since))
			if err != nil {
				return eris.Wrap(err, "status")
			}
			return render(os.Stdout, format, tallies, func(w io.Writer) { formatTallies(w, tallies) })
		}

		f := audit.Filter{Limit: limit}
		f.FileName, _ = cmd.Flags().GetString("file")
		if docFlag, _ := cmd.Flags().GetString("type"); docFlag != "" {
			doc, err := model.ParseDocType(docFlag)
			if err != nil {
				return err
			}
			f.DocType = doc.String()
		}
		if st, _ := cmd.Flags().GetString("status"); st != "" {
			f.Status = audit.Status(st)
		}

		entries, err := log.List(ctx, f)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		if len(entries) == 0 && format == "table" {
			fmt.Fprintln(os.Stderr, "No audit entries found.")
			return nil
		}
		return render(os.Stdout, format, entries, func(w io.Writer) { formatAuditEntries(w, entries) })
	},
}

func init() {
	statusCmd.Flags().String("type", "", "filter by document type")
	statusCmd.Flags().String("file", "", "filter by source file name")
	statusCmd.Flags().String("status", "", "filter by outcome (PROCESSED, ERROR)")
	statusCmd.Flags().Int("limit", 50, "max number of rows to display")
	statusCmd.Flags().String("format", "table", "output format (table, yaml, json)")
	statusCmd.Flags().Bool("summary", false, "count outcomes per document type")
	statusCmd.Flags().Duration("since", 24*time.Hour, "time window for --summary")
	statusCmd.Flags().Bool("tracked", false, "list tracked inbox files")
	statusCmd.Flags().String("source", "", "filter --tracked by source name")
	statusCmd.Flags().Bool("alerts", false, "evaluate monitoring thresholds without notifying")
	rootCmd.AddCommand(statusCmd)
}

// render writes v as yaml or json, or calls table for the table format.
func render(out io.Writer, format string, v any, table func(io.Writer)) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "status: encode yaml")
		}
		return eris.Wrap(enc.Close(), "status: encode yaml")
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "status: encode json")
	default:
		table(out)
		return nil
	}
}

// formatAuditEntries writes a tabular list of audit entries to w.
func formatAuditEntries(out io.Writer, entries []audit.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tFILE\tSTATUS\tLOGGED\tMESSAGE")
	_, _ = fmt.Fprintln(w, "--\t----\t----\t------\t------\t-------")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.DocType,
			e.FileName,
			e.Status,
			e.LoggedAt.Format("2006-01-02 15:04:05"),
			truncate(e.Message, 80),
		)
	}
	_ = w.Flush()
}

// formatTallies writes per document type outcome counts to w.
func formatTallies(out io.Writer, tallies []audit.Tally) {
	type row struct{ processed, failed int }
	var order []string
	rows := make(map[string]*row)
	for _, t := range tallies {
		r, ok := rows[t.DocType]
		if !ok {
			r = &row{}
			rows[t.DocType] = r
			order = append(order, t.DocType)
		}
		switch t.Status {
		case audit.StatusProcessed:
			r.processed += t.Count
		case audit.StatusError:
			r.failed += t.Count
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tPROCESSED\tERROR")
	_, _ = fmt.Fprintln(w, "----\t---------\t-----")
	for _, dt := range order {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\n", dt, rows[dt].processed, rows[dt].failed)
	}
	_ = w.Flush()
}

// formatAlerts writes pending alerts to w.
func formatAlerts(out io.Writer, alerts []monitoring.Alert) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tSEVERITY\tMESSAGE")
	_, _ = fmt.Fprintln(w, "----\t--------\t-------")
	for _, a := range alerts {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", a.Type, a.Severity, a.Message)
	}
	_ = w.Flush()
}

// formatTracked writes tracked inbox files to w.
func formatTracked(out io.Writer, recs []tracker.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tFILE\tSTATUS\tSIZE\tCYCLE\tPROCESSED\tMESSAGE")
	_, _ = fmt.Fprintln(w, "------\t----\t------\t----\t-----\t---------\t-------")
	for _, r := range recs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.Source,
			r.Name,
			r.Status,
			r.Size,
			truncateID(r.CycleID),
			r.ProcessedAt.Format("2006-01-02 15:04:05"),
			truncate(r.Message, 60),
		)
	}
	_ = w.Flush()
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
