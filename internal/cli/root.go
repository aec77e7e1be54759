// Package cli implements the geolocate command line.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/geolocate-mcp/internal/config"
	"github.com/ironsheep/geolocate-mcp/internal/logger"
)

// Build information, set by main from ldflags.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	cfgFile  string
	logLevel string
	noOCR    bool

	// cfg is loaded once before any subcommand runs.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "geolocate",
	Short: "Estimate where photos and videos were taken",
	Long: `geolocate estimates the geographic location of photographs and videos
from EXIF GPS, a reference archive of known places, recognized text
(addresses, phone area codes, postal codes) and vehicle registration plates.
Every estimate is checked against the operational region.

Run "geolocate serve" to expose the same tools to an MCP client.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.geolocate/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noOCR, "no-ocr", false, "skip text recognition")
}

// SetBuildInfo records the values injected at link time.
func SetBuildInfo(v, built, commit string) {
	version, buildTime, gitCommit = v, built, commit
}

// Execute runs the root command. Command output goes to stdout and logs to
// stderr.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger.SetLevel(logger.ParseLevel(level))
	logger.SetOutput(cmd.ErrOrStderr())
	return nil
}
