// Package proctree kills a process and every descendant it has spawned -
// the cleanup step a task runner needs after cancelling or timing out a
// task whose command itself forked children (a shell wrapping a compiler,
// a test runner forking workers, and so on).
package proctree

import (
	"container/list"
	"log/slog"

	"github.com/shirou/gopsutil/v3/process"
)

// Signal is a process signal in the small set the native layer maps: it
// abstracts over the platform-specific signal numbers sendSignal resolves
// against.
type Signal int

const (
	// SignalTerm requests graceful termination (SIGTERM on unix).
	SignalTerm Signal = iota
	// SignalKill requests immediate termination (SIGKILL on unix,
	// TerminateProcess on Windows - the only signal Windows supports).
	SignalKill
	// SignalInterrupt requests interruption (SIGINT on unix).
	SignalInterrupt
	// SignalHangup requests hangup (SIGHUP on unix).
	SignalHangup
)

// ParseSignal maps a signal name (as would arrive over a JS-facing API,
// e.g. "SIGKILL") to a Signal. An empty or unrecognized name defaults to
// SignalTerm, matching the native layer's "None => Term" fallback.
func ParseSignal(name string) Signal {
	switch name {
	case "SIGKILL":
		return SignalKill
	case "SIGINT":
		return SignalInterrupt
	case "SIGHUP":
		return SignalHangup
	case "SIGTERM", "":
		return SignalTerm
	default:
		return SignalTerm
	}
}

// KillTree kills rootPID and every descendant process through a default
// logger. See KillTreeWithLogger for the constructor-injected form every
// caller that cares about the skipped-process trail should use instead.
func KillTree(rootPID int32, sig Signal) {
	KillTreeWithLogger(rootPID, sig, nil)
}

// KillTreeWithLogger kills rootPID and every descendant process reachable
// through parent/child relationships, signaling leaves before their
// parents so a parent doesn't get a chance to reap or re-spawn a child out
// from under the kill. It takes one atomic snapshot of the process table up
// front: processes that exit mid-walk are simply skipped rather than
// causing an error, and a rootPID absent from the snapshot is a silent
// no-op. This function never fails or panics - a process that can't be
// signaled (already exited, insufficient permissions) is skipped and
// logged at debug through logger, which defaults to slog.Default() if nil.
func KillTreeWithLogger(rootPID int32, sig Signal, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	snapshot, err := process.Processes()
	if err != nil {
		logger.Debug("failed to snapshot process table, skipping kill", "root_pid", rootPID, "error", err)
		return
	}

	children := childrenByParent(snapshot)

	if !containsPID(snapshot, rootPID) {
		logger.Debug("kill target not found in process table, skipping", "root_pid", rootPID)
		return
	}

	order := bfsOrder(rootPID, children)

	for i := len(order) - 1; i >= 0; i-- {
		if err := sendSignal(order[i], sig); err != nil {
			logger.Debug("failed to signal process, skipping", "pid", order[i], "error", err)
		}
	}
}

func childrenByParent(procs []*process.Process) map[int32][]int32 {
	children := make(map[int32][]int32, len(procs)/4+1)

	for _, p := range procs {
		ppid, err := p.Ppid()
		if err != nil {
			continue
		}
		children[ppid] = append(children[ppid], p.Pid)
	}

	return children
}

func containsPID(procs []*process.Process, pid int32) bool {
	for _, p := range procs {
		if p.Pid == pid {
			return true
		}
	}
	return false
}

// bfsOrder returns rootPID and every descendant, breadth-first, each
// visited at most once even if the process table reports it as a child of
// more than one parent (which should not happen but is guarded against
// defensively, matching the native layer's HashSet-backed visited set).
func bfsOrder(rootPID int32, children map[int32][]int32) []int32 {
	var order []int32
	visited := map[int32]bool{rootPID: true}

	queue := list.New()
	queue.PushBack(rootPID)

	for queue.Len() > 0 {
		front := queue.Front()
		queue.Remove(front)
		pid := front.Value.(int32)

		order = append(order, pid)

		for _, child := range children[pid] {
			if visited[child] {
				continue
			}
			visited[child] = true
			queue.PushBack(child)
		}
	}

	return order
}
