package taskrunner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nrwl-labs/nxcore/internal/cachestore"
	"github.com/nrwl-labs/nxcore/internal/glob"
	"github.com/nrwl-labs/nxcore/internal/proctree"
	"github.com/nrwl-labs/nxcore/internal/pty"
	"github.com/nrwl-labs/nxcore/internal/taskhasher"
)

// RunSpec describes one task invocation: the command a shell should run,
// the directory it runs in, its layered environment, and the terminal
// size its pty starts at.
type RunSpec struct {
	TaskID  string
	Command string
	Dir     string
	Env     map[string]string
	Size    pty.Size
}

// Outcome is what RunTask reports once the task's process exits: the exit
// code and the wall-clock duration, ready to be folded into task history
// and (by the caller) an output fingerprint.
type Outcome struct {
	ExitCode int
	Status   string
	Started  time.Time
	Ended    time.Time
}

// RunTask starts spec in pool, registers its pid with tracker so a crash
// of this process doesn't orphan the running_tasks row, and blocks until
// the task exits or ctx is cancelled. On cancellation it kills the task's
// entire process tree with sig before returning ctx.Err() - a plain
// Instance.Kill only reaches the direct child, not descendants a shell
// wrapper may have forked. logger receives the process killer's
// debug-level skipped-process records; a nil logger defaults to
// slog.Default().
func RunTask(ctx context.Context, pool *pty.Pool, tracker *cachestore.RunningTaskTracker, spec RunSpec, sig proctree.Signal, logger *slog.Logger) (*pty.Instance, Outcome, error) {
	inst, err := pool.Start(spec.TaskID, spec.Command, spec.Dir, spec.Env, spec.Size)
	if err != nil {
		return nil, Outcome{}, fmt.Errorf("start task: %w", err)
	}

	started := time.Now()

	if err := tracker.Add(spec.TaskID, inst.Pid(), []string{spec.Command}); err != nil {
		return inst, Outcome{}, fmt.Errorf("register running task: %w", err)
	}
	defer func() { _ = tracker.Remove(spec.TaskID) }()

	select {
	case code := <-inst.ExitCode():
		return inst, Outcome{
			ExitCode: code,
			Status:   statusFor(code),
			Started:  started,
			Ended:    time.Now(),
		}, nil
	case <-ctx.Done():
		proctree.KillTreeWithLogger(int32(inst.Pid()), sig, logger)
		pool.Remove(spec.TaskID)
		return inst, Outcome{}, ctx.Err()
	}
}

func statusFor(code int) string {
	if code == 0 {
		return "success"
	}
	return "failure"
}

// RecordOutcome appends outcome to task history and, on success, computes
// and stores the output fingerprint from outputFiles (the workspace index
// re-walked after the task ran) matched against outputGlobs. Call this
// after RunTask returns successfully; a failed or cancelled run should
// not have its output fingerprinted. outputGlobs is validated with
// glob.ValidateOutputs before anything is recorded, rejecting a task
// whose declared outputs lack a {projectRoot}/{workspaceRoot} prefix or
// would force a full-tree scan.
func RecordOutcome(store *cachestore.Store, taskHash string, outcome Outcome, outputGlobs []string, outputFiles []taskhasher.FileEntry) error {
	if err := glob.ValidateOutputs(outputGlobs); err != nil {
		return fmt.Errorf("validate task outputs: %w", err)
	}

	if err := store.RecordTaskRuns([]cachestore.TaskRun{{
		Hash:   taskHash,
		Status: outcome.Status,
		Code:   outcome.ExitCode,
		Start:  outcome.Started.Unix(),
		End:    outcome.Ended.Unix(),
	}}); err != nil {
		return fmt.Errorf("record task run: %w", err)
	}

	if outcome.ExitCode != 0 || len(outputGlobs) == 0 {
		return nil
	}

	perGlob := make([]string, 0, len(outputGlobs))
	for _, pattern := range outputGlobs {
		hash, err := taskhasher.HashTaskOutput(stripOutputRootPrefix(pattern), outputFiles)
		if err != nil {
			return fmt.Errorf("hash task output: %w", err)
		}
		perGlob = append(perGlob, hash)
	}

	return store.RecordOutputFingerprint(taskHash, taskhasher.Fold(perGlob))
}

// stripOutputRootPrefix removes a declared output's {projectRoot}/ or
// {workspaceRoot}/ prefix (glob.ValidateOutputs already required one is
// present), leaving the root-relative pattern outputFiles' paths are
// matched against.
func stripOutputRootPrefix(output string) string {
	negative := strings.HasPrefix(output, "!")
	trimmed := output
	if negative {
		trimmed = output[1:]
	}

	for _, prefix := range []string{"{projectRoot}/", "{workspaceRoot}/"} {
		if rest, ok := strings.CutPrefix(trimmed, prefix); ok {
			if negative {
				return "!" + rest
			}
			return rest
		}
	}

	return output
}
