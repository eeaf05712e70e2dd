package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/wms-ingest/internal/model"
	"github.com/sells-group/wms-ingest/internal/staging"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete a file's staging rows without promoting them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		docFlag, _ := cmd.Flags().GetString("type")
		file, _ := cmd.Flags().GetString("file")
		doc, err := model.ParseDocType(docFlag)
		if err != nil {
			return err
		}

		pool, err := openPool(ctx, "purge")
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := staging.Clear(ctx, pool, doc, file)
		if err != nil {
			return eris.Wrap(err, "purge")
		}

		fmt.Printf("Purged %d staging row(s) of %s file %s\n", n, doc, file)
		return nil
	},
}

func init() {
	purgeCmd.Flags().String("type", "", "document type")
	purgeCmd.Flags().String("file", "", "source file name")
	_ = purgeCmd.MarkFlagRequired("type")
	_ = purgeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(purgeCmd)
}
