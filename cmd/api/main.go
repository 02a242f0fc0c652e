package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "shoplist-api",
		Short: "Shopping list API server",
		Long: `shoplist-api serves the shopping list JSON API, the auth endpoints and the
single-page app shell. Configuration is read from the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := serveCmd()
	rootCmd.AddCommand(
		serve,
		migrateCmd(),
		versionCmd(),
	)
	// Running the binary without a subcommand starts the server.
	rootCmd.RunE = serve.RunE

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
