package taskrunner

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrwl-labs/nxcore/internal/cachestore"
	"github.com/nrwl-labs/nxcore/internal/nxerrors"
	"github.com/nrwl-labs/nxcore/internal/proctree"
	"github.com/nrwl-labs/nxcore/internal/pty"
	"github.com/nrwl-labs/nxcore/internal/taskhasher"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("spawns a unix shell command")
	}
}

func openTestStore(t *testing.T) *cachestore.Store {
	t.Helper()

	store, err := cachestore.Open(cachestore.Options{CacheDir: t.TempDir(), DBName: "test.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestRunTask_SuccessRecordsExitCodeAndReleasesTracker(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	store := openTestStore(t)
	tracker := cachestore.NewRunningTaskTracker(store)
	pool := pty.NewPool(nil)
	t.Cleanup(func() { _ = pool.CloseAll() })

	inst, outcome, err := RunTask(context.Background(), pool, tracker, RunSpec{
		TaskID:  "t1",
		Command: "exit 0",
		Dir:     ".",
		Size:    pty.DefaultSize(),
	}, proctree.SignalTerm, nil)
	require.NoError(t, err)
	defer inst.Close()

	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, "success", outcome.Status)

	running, err := store.IsTaskRunning("t1")
	require.NoError(t, err)
	assert.False(t, running, "tracker should have removed the task on completion")
}

func TestRunTask_FailureReportsStatus(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	store := openTestStore(t)
	tracker := cachestore.NewRunningTaskTracker(store)
	pool := pty.NewPool(nil)
	t.Cleanup(func() { _ = pool.CloseAll() })

	inst, outcome, err := RunTask(context.Background(), pool, tracker, RunSpec{
		TaskID:  "t2",
		Command: "exit 1",
		Dir:     ".",
		Size:    pty.DefaultSize(),
	}, proctree.SignalTerm, nil)
	require.NoError(t, err)
	defer inst.Close()

	assert.Equal(t, 1, outcome.ExitCode)
	assert.Equal(t, "failure", outcome.Status)
}

func TestRunTask_CancelKillsProcessTree(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	store := openTestStore(t)
	tracker := cachestore.NewRunningTaskTracker(store)
	pool := pty.NewPool(nil)
	t.Cleanup(func() { _ = pool.CloseAll() })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	inst, _, err := RunTask(ctx, pool, tracker, RunSpec{
		TaskID:  "t3",
		Command: "sleep 5",
		Dir:     ".",
		Size:    pty.DefaultSize(),
	}, proctree.SignalKill, nil)

	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := pool.Get("t3")
	assert.False(t, ok, "cancellation should remove the instance from the pool")

	select {
	case <-inst.ExitCode():
	case <-time.After(2 * time.Second):
		t.Fatal("the task's process should exit once its tree is killed")
	}
}

func TestRecordOutcome_SkipsFingerprintOnFailure(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	err := RecordOutcome(store, "hash1", Outcome{ExitCode: 1, Status: "failure"}, []string{"{projectRoot}/dist/**/*"}, nil)
	require.NoError(t, err)

	_, found, err := store.GetOutputFingerprint("hash1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecordOutcome_RecordsFingerprintOnSuccess(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	files := []taskhasher.FileEntry{
		{Path: "dist/app/main.js", Hash: "h1"},
	}

	err := RecordOutcome(store, "hash2", Outcome{ExitCode: 0, Status: "success"}, []string{"{projectRoot}/dist/**/*"}, files)
	require.NoError(t, err)

	fingerprint, found, err := store.GetOutputFingerprint("hash2")
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotEmpty(t, fingerprint)
}

func TestRecordOutcome_RejectsUnprefixedOutputs(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	err := RecordOutcome(store, "hash3", Outcome{ExitCode: 0, Status: "success"}, []string{"dist/**/*"}, nil)
	require.Error(t, err)

	var inputErr *nxerrors.InputError
	assert.ErrorAs(t, err, &inputErr)

	_, found, getErr := store.GetOutputFingerprint("hash3")
	require.NoError(t, getErr)
	assert.False(t, found, "a rejected output spec must not be recorded")
}
