package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/readingdna/readingdna/internal/storage"
)

func newGenerateCmd(a *app) *cobra.Command {
	var preferShared bool
	var title, author string

	cmd := &cobra.Command{
		Use:   "generate <profile|connections|recommendations|evaluation> <collection-id>",
		Short: "Run one generation against a stored collection",
		Long: `Generates an artifact for a stored collection and prints it as JSON.
Profiles, connection graphs and recommendations are stored; evaluations are
only printed.`,
		Example: `  # Generate the Reading DNA of an uploaded collection
  readingdna generate profile user_1718000000000_ab12cd34

  # Evaluate a candidate book against the shared dataset
  readingdna generate evaluation shared --title "Piranesi" --author "Susanna Clarke"`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"profile", "connections", "recommendations", "evaluation"},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			svc, err := newAnalysis(a.cfg, store)
			if err != nil {
				return err
			}

			lookup := storage.PerID
			if preferShared {
				lookup = storage.PreferShared
			}

			ctx := cmd.Context()
			id := args[1]

			var result any
			switch args[0] {
			case "profile":
				result, err = svc.GenerateProfile(ctx, id)
			case "connections":
				result, err = svc.GenerateConnections(ctx, id)
			case "recommendations":
				result, err = svc.GenerateRecommendations(ctx, id, lookup)
			case "evaluation":
				if title == "" {
					return fmt.Errorf("--title is required for evaluation")
				}
				result, err = svc.Evaluate(ctx, id, title, author, lookup)
			default:
				return fmt.Errorf("unknown artifact %q (supported: profile, connections, recommendations, evaluation)", args[0])
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().BoolVar(&preferShared, "prefer-shared", false, "Read the shared dataset when present (recommendations, evaluation)")
	cmd.Flags().StringVar(&title, "title", "", "Candidate book title (evaluation)")
	cmd.Flags().StringVar(&author, "author", "", "Candidate book author (evaluation)")

	return cmd
}
