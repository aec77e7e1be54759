package cli

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/geolocate-mcp/internal/ocr/tesseract"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	// Needs no configuration.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("geolocate version %s\n", version)
		cmd.Printf("  Build time: %s\n", buildTime)
		cmd.Printf("  Git commit: %s\n", gitCommit)
		if v := tesseract.Version(); v != "" {
			cmd.Printf("  Tesseract:  %s\n", v)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
