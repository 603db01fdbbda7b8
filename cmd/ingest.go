package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/readingdna/readingdna/internal/ingest"
	"github.com/readingdna/readingdna/internal/models"
	"github.com/readingdna/readingdna/internal/storage"
)

func newIngestCmd(a *app) *cobra.Command {
	var format string
	var id string

	cmd := &cobra.Command{
		Use:   "ingest <export.csv>",
		Short: "Import a Goodreads or StoryGraph library export",
		Long: `Parses a library export CSV, keeps the books on the read shelf and stores
them as a new collection. The collection id is printed on success.`,
		Example: `  # Import a Goodreads export
  readingdna ingest goodreads_library_export.csv

  # Import a StoryGraph export under a chosen id
  readingdna ingest storygraph.csv --format storygraph --id my_books`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceFormat, err := models.ParseSourceFormat(format)
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			pipeline := ingest.NewPipeline(store)
			var res *ingest.Result
			if id == "" {
				res, err = pipeline.Ingest(cmd.Context(), f, sourceFormat)
			} else {
				res, err = pipeline.IngestAs(cmd.Context(), f, sourceFormat, id)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d books as %s (%d rows skipped)\n", res.BookCount, res.UserID, res.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(models.FormatGoodreads), "Export dialect: goodreads or storygraph")
	cmd.Flags().StringVar(&id, "id", "", "Collection id to store under (default: generated)")

	return cmd
}

func newPreloadCmd(a *app) *cobra.Command {
	var format string
	var skipGeneration bool

	cmd := &cobra.Command{
		Use:   "preload <export.csv>",
		Short: "Build the shared demo dataset",
		Long: `Imports an export as the shared collection and generates its Reading DNA
profile and book connection graph. Requests that prefer shared data are
served from this dataset.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceFormat, err := models.ParseSourceFormat(format)
			if err != nil {
				return err
			}

			// Serialize preloads against each other; the file backend itself
			// stays shared with a running server
			lock := flock.New(filepath.Join(a.cfg.Storage.DataDir, ".preload.lock"))
			if err := os.MkdirAll(a.cfg.Storage.DataDir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another preload is running against %s", a.cfg.Storage.DataDir)
			}
			defer lock.Unlock()

			store, closeStore, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			res, err := ingest.NewPipeline(store).IngestAs(ctx, f, sourceFormat, storage.SharedID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %d shared books (%d rows skipped)\n", res.BookCount, res.Skipped)

			if skipGeneration {
				return nil
			}

			svc, err := newAnalysis(a.cfg, store)
			if err != nil {
				return err
			}

			profile, err := svc.GenerateProfile(ctx, storage.SharedID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Generated Reading DNA: %s\n", profile.CoreIdentity)

			graph, err := svc.GenerateConnections(ctx, storage.SharedID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Generated book connections: %d nodes, %d links\n", len(graph.Nodes), len(graph.Links))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(models.FormatGoodreads), "Export dialect: goodreads or storygraph")
	cmd.Flags().BoolVar(&skipGeneration, "no-generate", false, "Only import the books")

	return cmd
}
