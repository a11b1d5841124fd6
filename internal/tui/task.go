package tui

import "github.com/nrwl-labs/nxcore/internal/projectgraph"

// Task is one row of the task list: the target it runs, its current
// status, and the timing/caching facts the list and detail panes render.
type Task struct {
	ID          string
	Target      projectgraph.TaskTarget
	Outputs     []string
	ProjectRoot string
	Hash        string
	StartTime   float64
	EndTime     float64
	Cached      bool
	Parallelism bool
	Continuous  bool
	Status      TaskStatus
}

// TaskResult is the terminal outcome recorded once a task finishes.
type TaskResult struct {
	Task           Task
	Status         TaskStatus
	Code           int
	TerminalOutput string
}
