package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/geolocate-mcp/internal/evidence"
	"github.com/ironsheep/geolocate-mcp/internal/pipeline"
)

var (
	locateJSON  bool
	locateHints []string

	batchList string
	batchJSON bool

	groupName        string
	groupDescription string
	groupJSON        bool
)

var locateCmd = &cobra.Command{
	Use:   "locate <path>",
	Short: "Estimate where an image or video was taken",
	Long: `Runs every location signal over the file and prints the fused estimate.

Videos are sampled at key frames; the best frame wins.`,
	Args: cobra.ExactArgs(1),
	RunE: runLocate,
}

var batchCmd = &cobra.Command{
	Use:   "batch [path...]",
	Short: "Locate many independent assets concurrently",
	Long: `Locates every path as an independent asset with up to pipeline.workers
running at once. Paths may also be listed one per line in a file given with
--list. A file that cannot be read is reported and the batch carries on.`,
	RunE: runBatch,
}

var groupCmd = &cobra.Command{
	Use:   "group <path>...",
	Short: "Estimate the location of one object photographed several times",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGroup,
}

func init() {
	locateCmd.Flags().BoolVar(&locateJSON, "json", false, "output reports as JSON")
	locateCmd.Flags().StringSliceVar(&locateHints, "hint", nil, "place name to geocode (repeatable, images only)")
	rootCmd.AddCommand(locateCmd)

	batchCmd.Flags().StringVar(&batchList, "list", "", "file with one path per line")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "output reports as JSON")
	rootCmd.AddCommand(batchCmd)

	groupCmd.Flags().StringVar(&groupName, "name", "", "object name")
	groupCmd.Flags().StringVar(&groupDescription, "description", "", "object description")
	groupCmd.Flags().BoolVar(&groupJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(groupCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, !noOCR)
	if err != nil {
		return err
	}
	defer a.Close()

	var r *pipeline.AssetReport
	if pipeline.KindOf(args[0]) == pipeline.KindVideo {
		r, err = a.pipeline.LocateVideo(ctx, args[0], "")
	} else {
		r, err = a.pipeline.LocateImage(ctx, pipeline.ImageRequest{Path: args[0], GeocodeHints: locateHints})
	}
	if err != nil {
		return fmt.Errorf("locate failed: %w", err)
	}

	if locateJSON {
		return printJSON(cmd, r)
	}
	printReport(cmd, *r)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	paths := args
	if batchList != "" {
		listed, err := readPathList(batchList)
		if err != nil {
			return err
		}
		paths = append(paths, listed...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no paths given")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, !noOCR)
	if err != nil {
		return err
	}
	defer a.Close()

	reports, sum, err := a.pipeline.LocateBatch(ctx, paths)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	if batchJSON {
		return printJSON(cmd, struct {
			Summary pipeline.BatchSummary  `json:"summary"`
			Reports []pipeline.AssetReport `json:"reports"`
		}{sum, reports})
	}
	for _, r := range reports {
		printReport(cmd, r)
	}
	cmd.Printf("\n%d assets: %d validated, %d rejected, %d failed\n",
		sum.Total, sum.Validated, sum.Rejected, sum.Failed)
	return nil
}

// readPathList reads one path per line, skipping blanks and # comments.
func readPathList(name string) ([]string, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read path list: %w", err)
	}
	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	return paths, nil
}

func runGroup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, !noOCR)
	if err != nil {
		return err
	}
	defer a.Close()

	members := make([]pipeline.Asset, len(args))
	for i, path := range args {
		members[i] = pipeline.Asset{Path: path}
	}
	report, err := a.pipeline.LocateGroup(ctx, pipeline.NewGroup(groupName, groupDescription, members))
	if err != nil {
		return fmt.Errorf("group failed: %w", err)
	}

	if groupJSON {
		return printJSON(cmd, report)
	}
	for _, m := range report.Members {
		printReport(cmd, m)
	}
	cmd.Println()
	label := report.Group.Name
	if label == "" {
		label = report.Group.ID
	}
	cmd.Printf("group %s: %s\n", label, formatResult(report.Result))
	if report.Result.SpreadMeters > 0 {
		cmd.Printf("  spread: %.0f m\n", report.Result.SpreadMeters)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printReport(cmd *cobra.Command, r pipeline.AssetReport) {
	if r.Error != "" {
		cmd.Printf("%s: error: %s\n", r.Path, r.Error)
		return
	}
	cmd.Printf("%s: %s\n", r.Path, formatResult(r.Result))
	if r.Frame != "" {
		cmd.Printf("  frame: %s\n", r.Frame)
	}
	if r.Result.Address != "" {
		cmd.Printf("  address: %s\n", r.Result.Address)
	}
	for _, c := range r.Result.Contributions {
		cmd.Printf("  %-17s %.2f  %s", c.Source, c.Confidence, c.Coordinates)
		if c.Detail != "" {
			cmd.Printf("  (%s)", c.Detail)
		}
		cmd.Println()
	}
}

func formatResult(r evidence.Result) string {
	if r.Coordinates == nil {
		return "no location (" + r.RejectionReason + ")"
	}
	status := "validated"
	switch {
	case r.Fallback:
		status = "region center fallback, " + r.RejectionReason
	case !r.Validated:
		status = "rejected, " + r.RejectionReason
	}
	return fmt.Sprintf("%s confidence %.2f [%s]", r.Coordinates, r.Confidence, status)
}
