package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/wms-ingest/internal/schema"
	"github.com/sells-group/wms-ingest/internal/tracker"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Empty every staging, final, audit and fingerprint table",
	Long: "Truncates all wms tables in one statement and forgets every tracked inbox file. " +
		"This cannot be undone and requires --yes.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return eris.New("reset: refusing to truncate without --yes")
		}

		pool, err := openPool(ctx, "reset")
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := schema.Reset(ctx, pool); err != nil {
			return eris.Wrap(err, "reset")
		}

		tr, err := tracker.Open(ctx, cfg.Ingest.StatePath)
		if err != nil {
			return eris.Wrap(err, "reset")
		}
		defer tr.Close() //nolint:errcheck

		forgotten, err := tr.Reset(ctx)
		if err != nil {
			return eris.Wrap(err, "reset")
		}

		zap.L().Warn("wms tables truncated",
			zap.Int("tables", len(schema.ResetTables())),
			zap.Int64("tracked_files_forgotten", forgotten),
		)
		fmt.Printf("Reset %d tables and %d tracked file(s)\n", len(schema.ResetTables()), forgotten)
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "confirm the destructive reset")
	rootCmd.AddCommand(resetCmd)
}
