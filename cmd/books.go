package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/readingdna/readingdna/internal/config"
	"github.com/readingdna/readingdna/internal/ingest"
	"github.com/readingdna/readingdna/internal/search"
	"github.com/readingdna/readingdna/internal/storage"
)

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books <collection-id>",
		Short: "List the books of a stored collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			c, err := ingest.Load(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(c.Books))
			for _, b := range c.Books {
				date := ""
				if b.DateRead != nil {
					date = b.DateRead.String()
				}
				rows = append(rows, []string{b.Title, b.Author, strconv.FormatFloat(b.UserRating, 'f', -1, 64), date})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Title", "Author", "Rating", "Date Read"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%d books, uploaded %s\n", len(c.Books), c.UploadDate.Format("2006-01-02 15:04"))
			return nil
		},
	}

	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var field string
	var collection string
	var remote bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Autocomplete a title or author",
		Example: `  # Titles in the shared dataset
  readingdna search dune

  # Authors in Open Library
  readingdna search "le guin" --field author --remote`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := search.ParseField(field)
			if err != nil {
				return err
			}

			var source search.Source
			if remote || a.cfg.Search.Backend == config.SearchRemote {
				source = search.NewRemoteSource(a.cfg.Search.RemoteURL, a.cfg.Search.Timeout)
			} else {
				store, closeStore, err := openStore(a.cfg)
				if err != nil {
					return err
				}
				defer closeStore()
				source = search.NewLocalSource(store)
			}

			results, err := search.NewIndex(source).Search(cmd.Context(), search.Query{
				Text:         args[0],
				Field:        f,
				CollectionID: collection,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Title, r.Author})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Title", "Author"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&field, "field", string(search.FieldTitle), "Field to match: title or author")
	cmd.Flags().StringVar(&collection, "user", storage.SharedID, "Collection to search (local search)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Search Open Library instead of stored collections")

	return cmd
}
