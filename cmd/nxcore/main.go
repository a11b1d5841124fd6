// Package main provides the entry point for the nxcore CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nrwl-labs/nxcore/cmd/nxcore/commands"
	"github.com/nrwl-labs/nxcore/pkg/version"
)

var (
	verbose    bool
	configPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nxcore",
		Short: "nxcore native task engine - thin CLI over the core library",
		Long: `nxcore exposes the task-hashing, caching, and execution core as a
standalone CLI for manual exercising: hashing a task's fingerprint,
running it under a pty with process-tree cleanup, inspecting the SQL
cache, or opening the terminal dashboard.

Commands:
  hash    Compute a task's fingerprint from a task graph document
  run     Execute one task under a pseudo-terminal
  cache   Inspect the SQL cache store
  tui     Open the terminal dashboard over a task list document
  version Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to nxcorerc config file")

	rootCmd.AddCommand(commands.NewHashCommand(&configPath))
	rootCmd.AddCommand(commands.NewRunCommand(&configPath))
	rootCmd.AddCommand(commands.NewCacheCommand(&configPath))
	rootCmd.AddCommand(commands.NewTUICommand(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "nxcore %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
