package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nrwl-labs/nxcore/internal/cachestore"
	"github.com/nrwl-labs/nxcore/internal/config"
	"github.com/nrwl-labs/nxcore/internal/observability"
)

func openStoreFromConfig(configPath string) (*cachestore.Store, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := cachestore.Open(cachestore.Options{
		CacheDir:      cfg.CacheDirectory,
		UseDotfileVFS: cfg.UseDotfileVFS,
		Logger:        loggerFromConfig(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	return store, nil
}

// NewCacheCommand returns the "cache" command group: stats, output
// fingerprint lookup, flaky-task detection, and running-task inspection
// over the SQL cache store.
func NewCacheCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the SQL cache store",
	}

	cmd.AddCommand(newCacheStatsCommand(configPath))
	cmd.AddCommand(newCacheLookupCommand(configPath))
	cmd.AddCommand(newCacheFlakyCommand(configPath))
	cmd.AddCommand(newCacheRunningCommand(configPath))

	return cmd
}

func newCacheStatsCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache hit/miss counters",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openStoreFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := observability.RegisterCacheMetrics(noopMeter(), store, nil); err != nil {
				return fmt.Errorf("register cache metrics: %w", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"hits", "misses"})
			t.AppendRow(table.Row{store.CacheHits(), store.CacheMisses()})
			t.Render()

			return nil
		},
	}
}

func newCacheLookupCommand(configPath *string) *cobra.Command {
	var hash string

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up a task's recorded output fingerprint by hash",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openStoreFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			fingerprint, found, err := store.GetOutputFingerprint(hash)
			if err != nil {
				return fmt.Errorf("lookup output fingerprint: %w", err)
			}
			if !found {
				fmt.Println("no recorded output fingerprint")
				return nil
			}

			fmt.Println(fingerprint)
			return nil
		},
	}

	cmd.Flags().StringVar(&hash, "hash", "", "task fingerprint to look up")
	_ = cmd.MarkFlagRequired("hash")

	return cmd
}

func newCacheFlakyCommand(configPath *string) *cobra.Command {
	var hashes []string

	cmd := &cobra.Command{
		Use:   "flaky",
		Short: "Report which of the given hashes have disagreeing recorded exit codes",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openStoreFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			flaky, err := store.GetFlakyTasks(hashes)
			if err != nil {
				return fmt.Errorf("query flaky tasks: %w", err)
			}

			for _, hash := range flaky {
				fmt.Println(hash)
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&hashes, "hashes", nil, "task fingerprints to check")
	_ = cmd.MarkFlagRequired("hashes")

	return cmd
}

func newCacheRunningCommand(configPath *string) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "running",
		Short: "Report which of the given task ids are currently running",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openStoreFromConfig(*configPath)
			if err != nil {
				return err
			}
			defer store.Close()

			running, err := store.GetRunningTasks(ids)
			if err != nil {
				return fmt.Errorf("query running tasks: %w", err)
			}

			for _, id := range running {
				fmt.Println(id)
			}

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "task ids to check")
	_ = cmd.MarkFlagRequired("ids")

	return cmd
}
