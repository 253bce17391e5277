// Command wdfctl is the operator CLI for the indexing pipeline: it exposes
// prepare/import/merge/reconcile as individual subcommands, each wiring the
// Store Gateway, Dictionary Resolver, Bulk Loader and Chunked Pipeline
// together over one PostgreSQL pool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wondersell/wildsearch-indexer/internal/debug"
)

var (
	cfgFile    string
	verboseFlag bool
	quietFlag   bool
)

var rootCmd = &cobra.Command{
	Use:           "wdfctl",
	Short:         "Marketplace crawl dump indexer",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file (optional; env and flags still apply)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(
		newPrepareDumpCmd(),
		newImportDumpCmd(),
		newImportAllCmd(),
		newClearUnfinishedCmd(),
		newCheckUnfinishedCmd(),
		newMergeDuplicatesCmd(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "wdfctl:", err)
		os.Exit(1)
	}
}
