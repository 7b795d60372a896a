// Command wex serves a directory tree over HTTP: browse listings, download,
// upload, create directories, move and delete, all confined to one root.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wex",
		Short:         "Sandboxed network file browser",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newStartCommand(),
		newInitCommand(),
		newSchemaCommand(),
		newVersionCommand(),
	)
	return rootCmd
}
