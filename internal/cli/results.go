package cli

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/geolocate-mcp/internal/storage/sqlite"
)

var (
	resultsAsset string
	resultsGroup string
	resultsLimit int
	resultsJSON  bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored location results, newest first",
	Args:  cobra.NoArgs,
	RunE:  runResults,
}

func init() {
	resultsCmd.Flags().StringVar(&resultsAsset, "asset", "", "only results for this asset path")
	resultsCmd.Flags().StringVar(&resultsGroup, "group", "", "only results for this object group")
	resultsCmd.Flags().IntVarP(&resultsLimit, "limit", "n", 20, "maximum number of results")
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, _ []string) error {
	store, err := sqlite.NewStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := store.ListResults(cmd.Context(), sqlite.ResultFilter{
		AssetPath: resultsAsset,
		GroupID:   resultsGroup,
		Limit:     resultsLimit,
	})
	if err != nil {
		return err
	}

	if resultsJSON {
		return printJSON(cmd, results)
	}
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for _, r := range results {
		label := r.AssetPath
		if label == "" {
			label = "group " + r.GroupID
		}
		cmd.Printf("%s  %s: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), label, formatResult(r.Result))
	}
	return nil
}
