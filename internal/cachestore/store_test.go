package cachestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrwl-labs/nxcore/internal/projectgraph"
)

func openTestStore(t *testing.T, nxVersion string) *Store {
	t.Helper()

	store, err := Open(Options{CacheDir: t.TempDir(), NxVersion: nxVersion, DBName: "test.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestOpen_CreatesSchemaAndStampsVersion(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, "20.0.0")

	version, found, err := store.readVersion()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "20.0.0", version)
}

func TestOpen_ReleasesLockBeforeReturning(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := Open(Options{CacheDir: dir, NxVersion: "20.0.0", DBName: "test.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	lock := flock.New(filepath.Join(dir, "test.db.lock"))
	locked, err := lock.TryLock()
	require.NoError(t, err)
	assert.True(t, locked, "Open must release its advisory lock before returning so the store is still open while the lock is free")
	_ = lock.Unlock()
}

func TestOpen_VersionMismatchRecreatesDatabase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := Open(Options{CacheDir: dir, NxVersion: "20.0.0", DBName: "test.db"})
	require.NoError(t, err)

	require.NoError(t, first.RecordTaskDetails([]HashedTask{{Hash: "abc", Project: "app", Target: "build"}}))
	require.NoError(t, first.RecordOutputFingerprint("abc", "fp-1"))
	require.NoError(t, first.Close())

	second, err := Open(Options{CacheDir: dir, NxVersion: "21.0.0", DBName: "test.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	version, found, err := second.readVersion()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "21.0.0", version)

	_, found, err = second.GetOutputFingerprint("abc")
	require.NoError(t, err)
	assert.False(t, found, "incompatible database must be discarded, not migrated")
}

func TestTaskHistory_RecordAndGetFlakyTasks(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, "20.0.0")

	require.NoError(t, store.RecordTaskDetails([]HashedTask{
		{Hash: "flaky", Project: "app", Target: "test"},
		{Hash: "stable", Project: "app", Target: "build"},
	}))

	require.NoError(t, store.RecordTaskRuns([]TaskRun{
		{Hash: "flaky", Status: "success", Code: 0, Start: 0, End: 10},
		{Hash: "flaky", Status: "failure", Code: 1, Start: 20, End: 30},
		{Hash: "stable", Status: "success", Code: 0, Start: 0, End: 5},
		{Hash: "stable", Status: "success", Code: 0, Start: 10, End: 15},
	}))

	flaky, err := store.GetFlakyTasks([]string{"flaky", "stable"})
	require.NoError(t, err)
	assert.Equal(t, []string{"flaky"}, flaky)
}

func TestTaskHistory_EstimatedTaskTimings(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, "20.0.0")

	require.NoError(t, store.RecordTaskDetails([]HashedTask{
		{Hash: "h1", Project: "app", Target: "build"},
		{Hash: "h2", Project: "app", Target: "build", Configuration: "production"},
	}))
	require.NoError(t, store.RecordTaskRuns([]TaskRun{
		{Hash: "h1", Status: "success", Code: 0, Start: 0, End: 10},
		{Hash: "h1", Status: "success", Code: 0, Start: 0, End: 20},
		{Hash: "h2", Status: "success", Code: 0, Start: 0, End: 100},
	}))

	timings, err := store.GetEstimatedTaskTimings([]projectgraph.TaskTarget{
		{Project: "app", Target: "build"},
		{Project: "app", Target: "build", Configuration: "production"},
	})
	require.NoError(t, err)
	assert.Equal(t, 15.0, timings["app:build"])
	assert.Equal(t, 100.0, timings["app:build:production"])
}

func TestOutputFingerprints_RecordAndGet(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, "20.0.0")

	_, found, err := store.GetOutputFingerprint("missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.RecordOutputFingerprint("abc", "fp-1"))
	fingerprint, found, err := store.GetOutputFingerprint("abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "fp-1", fingerprint)

	require.NoError(t, store.RecordOutputFingerprint("abc", "fp-2"))
	fingerprint, _, err = store.GetOutputFingerprint("abc")
	require.NoError(t, err)
	assert.Equal(t, "fp-2", fingerprint)
}

func TestRunningTasks_IsRunningReflectsProcessLiveness(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, "20.0.0")

	require.NoError(t, store.AddRunningTask("app:build", os.Getpid(), []string{"nx", "build", "app"}))
	running, err := store.IsTaskRunning("app:build")
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, store.RemoveRunningTask("app:build"))
	running, err = store.IsTaskRunning("app:build")
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRunningTaskTracker_ReleaseRemovesOnlySelfAdded(t *testing.T) {
	t.Parallel()

	store := openTestStore(t, "20.0.0")
	tracker := NewRunningTaskTracker(store)

	require.NoError(t, store.AddRunningTask("other:task", os.Getpid(), nil))
	require.NoError(t, tracker.Add("app:build", os.Getpid(), []string{"nx", "build"}))

	tracker.Release()

	running, err := store.IsTaskRunning("app:build")
	require.NoError(t, err)
	assert.False(t, running, "tracker must remove tasks it added")

	running, err = store.IsTaskRunning("other:task")
	require.NoError(t, err)
	assert.True(t, running, "tracker must not touch tasks it did not add")
}
