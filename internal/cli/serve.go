package cli

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/geolocate-mcp/internal/logger"
	"github.com/ironsheep/geolocate-mcp/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server over stdio. Requests are read
from stdin one per line and responses written to stdout; logs go to stderr.

MCP client configuration:
  {
    "mcpServers": {
      "geolocate": {
        "command": "/path/to/geolocate",
        "args": ["serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, !noOCR)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Infof("geolocate MCP server %s (built %s, commit %s), %d reference records",
		version, buildTime, gitCommit, a.index.Len())

	srv := server.New(a.pipeline,
		server.WithCatalog(a.store),
		server.WithVersion(version),
	)
	err = srv.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}

	// Records added through the server are already in the catalog; refresh
	// the snapshot so the next start can skip the rebuild.
	return a.saveSnapshot()
}
