package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/geolocate-mcp/internal/geo"
	"github.com/ironsheep/geolocate-mcp/internal/index"
)

var (
	addCategory    string
	addLat         float64
	addLon         float64
	addDescription string
	addAttrs       []string

	queryK             int
	queryMinSimilarity float64
	queryJSON          bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the reference archive",
	Long: `Commands for the archive of reference photos of known buildings,
landmarks and streets. Records live in the SQLite catalog; the in-memory
index is rebuilt from it and cached as a snapshot file.`,
}

var indexAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a reference photo",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexAdd,
}

var indexQueryCmd = &cobra.Command{
	Use:   "query <path>",
	Short: "Find reference photos similar to an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexQuery,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index snapshot from the catalog",
	Args:  cobra.NoArgs,
	RunE:  runIndexRebuild,
}

func init() {
	indexAddCmd.Flags().StringVar(&addCategory, "category", "building", "building, landmark or street")
	indexAddCmd.Flags().Float64Var(&addLat, "lat", 0, "latitude of the photographed place")
	indexAddCmd.Flags().Float64Var(&addLon, "lon", 0, "longitude of the photographed place")
	indexAddCmd.Flags().StringVar(&addDescription, "description", "", "free-text description")
	indexAddCmd.Flags().StringArrayVar(&addAttrs, "attr", nil, "attribute as key=value (repeatable)")
	indexAddCmd.MarkFlagsRequiredTogether("lat", "lon")

	indexQueryCmd.Flags().IntVarP(&queryK, "limit", "n", 5, "maximum number of matches")
	indexQueryCmd.Flags().Float64Var(&queryMinSimilarity, "min-similarity", 0, "similarity threshold in [0,1]")
	indexQueryCmd.Flags().BoolVar(&queryJSON, "json", false, "output matches as JSON")

	indexCmd.AddCommand(indexAddCmd, indexQueryCmd, indexRebuildCmd)
	rootCmd.AddCommand(indexCmd)
}

// parseAttrs splits key=value pairs.
func parseAttrs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid attribute %q (want key=value)", p)
		}
		attrs[k] = strings.TrimSpace(v)
	}
	return attrs, nil
}

func runIndexAdd(cmd *cobra.Command, args []string) error {
	category, err := index.ParseCategory(addCategory)
	if err != nil {
		return err
	}
	attrs, err := parseAttrs(addAttrs)
	if err != nil {
		return err
	}

	var coords *geo.Coordinates
	if cmd.Flags().Changed("lat") {
		c := geo.Coordinates{Lat: addLat, Lon: addLon}
		if !c.Valid() {
			return fmt.Errorf("invalid coordinates %s", c)
		}
		coords = &c
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	desc, err := a.pipeline.Extractor().ExtractFile(args[0])
	if err != nil {
		return err
	}
	rec, err := a.index.Insert(desc, index.Metadata{
		Category:    category,
		Coordinates: coords,
		Description: addDescription,
		Attributes:  attrs,
	})
	if err != nil {
		return err
	}
	if err := a.store.SaveRecord(ctx, rec); err != nil {
		_ = a.index.Remove(rec.ID)
		return err
	}
	if err := a.saveSnapshot(); err != nil {
		return err
	}

	cmd.Printf("added %s (%s), archive now holds %d records\n", rec.ID, rec.Category, a.index.Len())
	return nil
}

func runIndexQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	desc, err := a.pipeline.Extractor().ExtractFile(args[0])
	if err != nil {
		return err
	}
	matches := a.index.Query(desc, queryK, queryMinSimilarity)

	if queryJSON {
		return printJSON(cmd, matches)
	}
	if len(matches) == 0 {
		cmd.Println("No matches found.")
		return nil
	}
	for i, m := range matches {
		cmd.Printf("  [%d] %s %s (%.3f)\n", i+1, m.Record.ID, m.Record.Category, m.Similarity)
		if m.Record.Coordinates != nil {
			cmd.Printf("      at %s\n", m.Record.Coordinates)
		}
		if m.Record.Description != "" {
			cmd.Printf("      %s\n", m.Record.Description)
		}
	}
	return nil
}

func runIndexRebuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	// Skip openApp's snapshot check; the catalog is the source of truth here.
	c := cfg
	snapshot := c.Index.SnapshotPath
	c.Index.SnapshotPath = ""
	a, err := openApp(ctx, c, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if snapshot == "" {
		return fmt.Errorf("no index snapshot path configured")
	}
	if err := a.index.SaveFile(snapshot); err != nil {
		return err
	}
	cmd.Printf("wrote %d records to %s\n", a.index.Len(), snapshot)
	return nil
}
