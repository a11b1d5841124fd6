package commands

import (
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nrwl-labs/nxcore/internal/config"
	"github.com/nrwl-labs/nxcore/internal/observability"
	"github.com/nrwl-labs/nxcore/internal/pty"
	"github.com/nrwl-labs/nxcore/internal/tui"
)

// NewTUICommand returns the "tui" command: it opens the terminal
// dashboard over the tasks listed in a JSON document. Lifecycle control
// requests (rerun/kill) are printed to stderr; this command does not act
// on them.
func NewTUICommand(configPath *string) *cobra.Command {
	var tasksPath string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal dashboard over a task list document",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			obsCfg := observability.DefaultConfig()
			obsCfg.Mode = observability.ModeTUI
			obsCfg.LogLevel = observability.ParseNativeLoggingLevel(cfg.NativeLogging)
			logger := observability.NewLogger(obsCfg)

			data, err := os.ReadFile(tasksPath)
			if err != nil {
				return fmt.Errorf("read task list: %w", err)
			}

			var tasks []tui.Task
			if err := json.Unmarshal(data, &tasks); err != nil {
				return fmt.Errorf("parse task list: %w", err)
			}

			pool := pty.NewPool(logger)
			defer pool.CloseAll()

			model := tui.NewModel(tasks, pool, func(event tui.LifecycleEvent) {
				// A standalone dashboard has no orchestrator behind it to
				// forward rerun/kill requests to; this command only
				// exercises the rendering/input loop.
				fmt.Fprintf(os.Stderr, "lifecycle event: %s %s\n", event.Type, event.TaskID)
			})

			program := tea.NewProgram(model, tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("run dashboard: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&tasksPath, "tasks", "", "path to a JSON task list document")
	_ = cmd.MarkFlagRequired("tasks")

	return cmd
}
