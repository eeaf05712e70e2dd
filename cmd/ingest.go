package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/wms-ingest/internal/audit"
	"github.com/sells-group/wms-ingest/internal/fetcher"
	"github.com/sells-group/wms-ingest/internal/ingest"
	"github.com/sells-group/wms-ingest/internal/monitoring"
	"github.com/sells-group/wms-ingest/internal/resilience"
	"github.com/sells-group/wms-ingest/internal/staging"
	"github.com/sells-group/wms-ingest/internal/tracker"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Stage and promote new files from the configured inboxes",
	Long: "Pulls remote drops, detects new or modified files in each source directory, " +
		"loads them into staging and promotes them in arrival order. With --watch it keeps polling.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		watch, _ := cmd.Flags().GetBool("watch")
		names, _ := cmd.Flags().GetStringSlice("source")

		pool, err := openPool(ctx, "ingest")
		if err != nil {
			return err
		}
		defer pool.Close()

		sources, err := ingest.SourcesFromConfig(cfg.Ingest.Sources)
		if err != nil {
			return err
		}
		sources, err = ingest.Only(sources, names...)
		if err != nil {
			return err
		}

		tr, err := tracker.Open(ctx, cfg.Ingest.StatePath)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}
		defer tr.Close() //nolint:errcheck

		retry := resilience.FromSettings(
			cfg.Ingest.Retry.MaxAttempts,
			cfg.Ingest.Retry.InitialBackoffMs,
			cfg.Ingest.Retry.MaxBackoffMs,
		)
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		runner := ingest.NewRunner(sources,
			ingest.Options{
				ParseWorkers: cfg.Ingest.ParseWorkers,
				PollInterval: time.Duration(cfg.Ingest.PollIntervalSecs) * time.Second,
				Archive:      cfg.Ingest.Archive,
			},
			staging.NewLoader(pool, retry),
			newEngine(pool),
			tr,
			fetcher.NewFTPFetcher(fetcher.FTPOptions{
				Timeout:     time.Duration(cfg.Ingest.FTP.TimeoutSecs) * time.Second,
				Retry:       retry,
				DeleteAfter: cfg.Ingest.FTP.DeleteAfter,
			}),
			alerter,
		)

		if watch {
			checker := monitoring.NewChecker(monitoring.NewCollector(audit.NewLog(pool)), alerter, cfg.Monitoring)
			go checker.Run(ctx)
			return runner.Watch(ctx)
		}

		cycle, err := runner.RunOnce(ctx)
		if cycle != nil {
			formatCycle(os.Stdout, cycle)
		}
		if err != nil {
			return eris.Wrap(err, "ingest")
		}
		if n := cycle.Failed(); n > 0 {
			zap.L().Warn("ingest finished with failures", zap.Int("failed", n))
			return eris.Errorf("ingest: %d file(s) failed", n)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().Bool("watch", false, "keep polling at ingest.poll_interval_secs until interrupted")
	ingestCmd.Flags().StringSlice("source", nil, "limit the run to these source names")
	rootCmd.AddCommand(ingestCmd)
}

// formatCycle writes per-source cycle stats to w.
func formatCycle(out io.Writer, c *ingest.Cycle) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Cycle %s (%s)\n", truncateID(c.ID), c.Elapsed.Round(time.Millisecond))
	_, _ = fmt.Fprintln(w, "SOURCE\tPULLED\tSCANNED\tNEW\tSTAGED\tPROMOTED\tSKIPPED\tFAILED")
	_, _ = fmt.Fprintln(w, "------\t------\t-------\t---\t------\t--------\t-------\t------")
	for _, s := range c.Sources {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			s.Source, s.Pulled, s.Scanned, s.New, s.Staged, s.Promoted, s.Skipped, s.Failed)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
