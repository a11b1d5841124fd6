package cachestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/nrwl-labs/nxcore/internal/nxerrors"
)

// AddRunningTask records that pid is executing taskID, with argv stamped
// alongside it so a crash-recovered row can still report what it was
// running without a second lookup (SPEC_FULL.md §13.3).
func (s *Store) AddRunningTask(taskID string, pid int, argv []string) error {
	encoded, err := json.Marshal(argv)
	if err != nil {
		return &nxerrors.IOError{Op: "encode running task args", Err: err}
	}

	_, err = s.exec(
		`INSERT OR REPLACE INTO running_tasks (task_id, pid, args) VALUES (?, ?, ?)`,
		taskID, pid, string(encoded),
	)
	return err
}

// RemoveRunningTask deletes taskID's row if present; removing an absent
// task id is not an error.
func (s *Store) RemoveRunningTask(taskID string) error {
	_, err := s.exec(`DELETE FROM running_tasks WHERE task_id = ?`, taskID)
	return err
}

// IsTaskRunning reports whether taskID's recorded pid still exists as a
// live process. An unrecorded task id is reported not running rather than
// an error.
func (s *Store) IsTaskRunning(taskID string) (bool, error) {
	var pid int32
	err := s.db.QueryRow(`SELECT pid FROM running_tasks WHERE task_id = ?`, taskID).Scan(&pid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, &nxerrors.IOError{Op: "read running task pid", Err: err}
	}

	exists, err := process.PidExists(pid)
	if err != nil {
		return false, &nxerrors.IOError{Op: "check process liveness", Err: err}
	}

	return exists, nil
}

// GetRunningTasks filters ids down to the subset currently running.
func (s *Store) GetRunningTasks(ids []string) ([]string, error) {
	running := make([]string, 0, len(ids))

	for _, id := range ids {
		ok, err := s.IsTaskRunning(id)
		if err != nil {
			return nil, err
		}
		if ok {
			running = append(running, id)
		}
	}

	return running, nil
}

// RunningTaskTracker wraps Store with the set of task ids this process
// itself registered, so they can be cleaned up on exit even if the caller
// forgets to call RemoveRunningTask explicitly - the Go equivalent of the
// native layer's Drop-triggered cleanup, since a deferred Release call is
// the nearest idiomatic substitute for a destructor.
type RunningTaskTracker struct {
	store *Store

	mu    sync.Mutex
	added map[string]struct{}
}

// NewRunningTaskTracker wraps store with self-registration tracking.
func NewRunningTaskTracker(store *Store) *RunningTaskTracker {
	return &RunningTaskTracker{store: store, added: make(map[string]struct{})}
}

// Add registers taskID as running under pid with argv, remembering it for
// Release.
func (t *RunningTaskTracker) Add(taskID string, pid int, argv []string) error {
	if err := t.store.AddRunningTask(taskID, pid, argv); err != nil {
		return err
	}

	t.mu.Lock()
	t.added[taskID] = struct{}{}
	t.mu.Unlock()

	return nil
}

// Remove unregisters taskID, whether or not this tracker added it.
func (t *RunningTaskTracker) Remove(taskID string) error {
	t.mu.Lock()
	delete(t.added, taskID)
	t.mu.Unlock()

	return t.store.RemoveRunningTask(taskID)
}

// Release removes every task id this tracker added and has not since
// removed - call it (typically deferred) on process exit so this process
// doesn't leave its own running_tasks rows behind. A process that is
// killed before the call runs leaves its rows in place.
func (t *RunningTaskTracker) Release() {
	t.mu.Lock()
	ids := make([]string, 0, len(t.added))
	for id := range t.added {
		ids = append(ids, id)
	}
	t.added = make(map[string]struct{})
	t.mu.Unlock()

	for _, id := range ids {
		_ = t.store.RemoveRunningTask(id)
	}
}
