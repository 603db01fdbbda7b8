package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/readingdna/readingdna/internal/ingest"
)

func newExportCmd(a *app) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export <collection-id>",
		Short: "Write a stored collection as CSV or parquet",
		Example: `  # Print a collection as CSV
  readingdna export shared

  # Write a parquet file for analysis
  readingdna export user_1718000000000_ab12cd34 --format parquet --output books.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat := ingest.ExportFormat(format)
			if exportFormat != ingest.ExportCSV && exportFormat != ingest.ExportParquet {
				return fmt.Errorf("unsupported export format: %q (supported: csv, parquet)", format)
			}
			if exportFormat == ingest.ExportParquet && output == "" && isTerminal(os.Stdout) {
				return fmt.Errorf("refusing to write parquet to a terminal, use --output")
			}

			store, closeStore, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := ingest.Export(cmd.Context(), store, args[0], exportFormat, w)
			if err != nil {
				return err
			}
			slog.Info("Collection exported", "collection_id", args[0], "format", exportFormat, "books", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(ingest.ExportCSV), "Output format: csv or parquet")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}
