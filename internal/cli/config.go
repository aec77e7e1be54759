package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/geolocate-mcp/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	// Must work even when the existing file does not load.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE:              runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return config.Encode(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Write(path, config.Default()); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", path)
	return nil
}
