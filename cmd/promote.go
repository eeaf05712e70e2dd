package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/promote"
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Promote one staged file into the final tables",
	Long: "Runs the promotion procedure for a document type and source file: resolves versions, " +
		"writes final rows, clears the file's staging rows and records the outcome in the audit log.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		docFlag, _ := cmd.Flags().GetString("type")
		file, _ := cmd.Flags().GetString("file")
		doc, err := model.ParseDocType(docFlag)
		if err != nil {
			return err
		}

		pool, err := openPool(ctx, "promote")
		if err != nil {
			return err
		}
		defer pool.Close()

		res, err := newEngine(pool).Promote(ctx, doc, file)
		if err != nil {
			return eris.Wrap(err, "promote")
		}

		formatResult(os.Stdout, res)
		return nil
	},
}

func init() {
	promoteCmd.Flags().String("type", "", "document type (cartoning, wave_confirm, outbound_delivery, obd_confirm)")
	promoteCmd.Flags().String("file", "", "source file name as recorded in staging")
	_ = promoteCmd.MarkFlagRequired("type")
	_ = promoteCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(promoteCmd)
}

// formatResult writes a promotion result to w.
func formatResult(out io.Writer, res *promote.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Type:\t%s\n", res.DocType)
	_, _ = fmt.Fprintf(w, "File:\t%s\n", res.File)
	if res.Skipped {
		_, _ = fmt.Fprintf(w, "Outcome:\tskipped (content already promoted)\n")
		_, _ = fmt.Fprintf(w, "Fingerprint:\t%s\n", res.Fingerprint)
		_ = w.Flush()
		return
	}
	_, _ = fmt.Fprintf(w, "Outcome:\tpromoted\n")
	_, _ = fmt.Fprintf(w, "Version:\t%d\n", res.Version)

	keys := make([]string, 0, len(res.Counts))
	for k := range res.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", k, res.Counts[k])
	}
	_, _ = fmt.Fprintf(w, "Elapsed:\t%s\n", res.Elapsed.Round(time.Millisecond))
	_ = w.Flush()
}
