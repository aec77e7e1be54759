package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/geolocate-mcp/internal/cli"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetBuildInfo(Version, BuildTime, GitCommit)
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
