package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nrwl-labs/nxcore/internal/cachestore"
	"github.com/nrwl-labs/nxcore/internal/config"
	"github.com/nrwl-labs/nxcore/internal/observability"
	"github.com/nrwl-labs/nxcore/internal/proctree"
	"github.com/nrwl-labs/nxcore/internal/pty"
	"github.com/nrwl-labs/nxcore/internal/taskrunner"
)

// NewRunCommand returns the "run" command: it executes one task's command
// under a pseudo-terminal, records the outcome in the SQL cache store, and
// prints the captured screen once the task exits. A Ctrl-C kills the
// task's whole process tree rather than leaving orphaned children behind.
func NewRunCommand(configPath *string) *cobra.Command {
	var (
		taskID      string
		taskHash    string
		command     string
		dir         string
		outputGlobs []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one task under a pseudo-terminal",
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger := loggerFromConfig(cfg)

			taskMetrics, err := observability.NewTaskMetrics(noopMeter())
			if err != nil {
				return fmt.Errorf("init task metrics: %w", err)
			}

			store, err := cachestore.Open(cachestore.Options{
				CacheDir:      cfg.CacheDirectory,
				UseDotfileVFS: cfg.UseDotfileVFS,
				Logger:        logger,
			})
			if err != nil {
				return fmt.Errorf("open cache store: %w", err)
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cobraCmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pool := pty.NewPool(logger)
			tracker := cachestore.NewRunningTaskTracker(store)

			doneRunning := taskMetrics.TrackRunning(ctx)
			inst, outcome, err := taskrunner.RunTask(ctx, pool, tracker, taskrunner.RunSpec{
				TaskID:  taskID,
				Command: command,
				Dir:     dir,
				Size:    pty.DefaultSize(),
			}, proctree.SignalTerm, logger)
			doneRunning()
			if err != nil {
				return fmt.Errorf("run task: %w", err)
			}
			defer func() { _ = inst.Close() }()

			fmt.Print(inst.Screen())

			if outcome.ExitCode == 0 {
				color.Green("task %s succeeded (%s)", taskID, outcome.Ended.Sub(outcome.Started))
			} else {
				color.Red("task %s failed with exit code %d", taskID, outcome.ExitCode)
			}

			taskMetrics.RecordRun(ctx, observability.TaskRunStats{
				Project:  taskID,
				Status:   outcome.Status,
				Duration: outcome.Ended.Sub(outcome.Started),
			})

			if taskHash != "" {
				if err := taskrunner.RecordOutcome(store, taskHash, outcome, outputGlobs, nil); err != nil {
					return fmt.Errorf("record outcome: %w", err)
				}
			}

			if outcome.ExitCode != 0 {
				return fmt.Errorf("task %s exited with code %d", taskID, outcome.ExitCode)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&taskID, "task-id", "", "task identifier to register while running")
	cmd.Flags().StringVar(&taskHash, "hash", "", "task fingerprint to record history/output under, e.g. from the hash command")
	cmd.Flags().StringVar(&command, "command", "", "shell command to execute")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to run the command in")
	cmd.Flags().StringSliceVar(&outputGlobs, "outputs", nil, "declared output globs to fingerprint on success")
	_ = cmd.MarkFlagRequired("task-id")
	_ = cmd.MarkFlagRequired("command")

	return cmd
}
