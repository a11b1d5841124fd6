package walker

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()

	p := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func setupFS(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, dir, "test.txt", "content")
	writeFile(t, dir, "foo.txt", "content1")
	writeFile(t, dir, "bar.txt", "content2")
	writeFile(t, dir, "baz/qux.txt", "content@qux")
	writeFile(t, dir, "node_modules/node-module-dep", "content")

	return dir
}

func statPaths(t *testing.T, stats []Stat) []string {
	t.Helper()

	paths := make([]string, len(stats))
	for i, s := range stats {
		paths[i] = s.Path
	}
	sort.Strings(paths)

	return paths
}

func TestWalkStat_EmptyWorkspaceReturnsNothing(t *testing.T) {
	t.Parallel()

	stats, err := WalkStat(filepath.Join(t.TempDir(), "does-not-exist"), Options{})
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestWalkStat_ExcludesNodeModulesAndGit(t *testing.T) {
	t.Parallel()

	dir := setupFS(t)

	stats, err := WalkStat(dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"bar.txt", "baz/qux.txt", "foo.txt", "test.txt"}, statPaths(t, stats))
}

func TestWalkStat_HandlesNxIgnore(t *testing.T) {
	t.Parallel()

	dir := setupFS(t)
	writeFile(t, dir, "nested/child.txt", "data")
	writeFile(t, dir, "nested/child-two/grand_child.txt", "data")
	writeFile(t, dir, ".nxignore", "baz/\nnested/child.txt\nnested/child-two/\n")

	stats, err := WalkStat(dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{".nxignore", "bar.txt", "foo.txt", "test.txt"}, statPaths(t, stats))
}

func TestWalkStat_HonorsGitignore(t *testing.T) {
	t.Parallel()

	dir := setupFS(t)
	writeFile(t, dir, ".gitignore", "*.log\n")
	writeFile(t, dir, "debug.log", "noise")

	stats, err := WalkStat(dir, Options{})
	require.NoError(t, err)

	assert.NotContains(t, statPaths(t, stats), "debug.log")
}

func TestWalkStat_DoesNotHideDotfiles(t *testing.T) {
	t.Parallel()

	dir := setupFS(t)
	writeFile(t, dir, ".env", "SECRET=1")

	stats, err := WalkStat(dir, Options{})
	require.NoError(t, err)

	assert.Contains(t, statPaths(t, stats), ".env")
}

func TestWalkStat_LogsUnreadableDirectoryAtDebug(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("chmod 0 does not block directory reads on windows")
	}

	dir := setupFS(t)
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Mkdir(locked, 0o755))
	writeFile(t, dir, "locked/secret.txt", "nope")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := WalkStat(dir, Options{Logger: logger})
	require.NoError(t, err, "an unreadable subdirectory must not fail the whole walk")

	assert.Contains(t, buf.String(), "skipping unreadable directory")
}

func TestReconcile_ReusesHashWhenModTimeUnchanged(t *testing.T) {
	t.Parallel()

	dir := setupFS(t)

	stats, err := WalkStat(dir, Options{})
	require.NoError(t, err)

	previous := Index{}
	for _, s := range stats {
		if s.Path == "foo.txt" {
			previous[s.Path] = Record{Hash: "stale-hash-should-be-reused", ModTime: s.ModTime}
		}
	}

	idx := Reconcile(stats, previous)
	assert.Equal(t, "stale-hash-should-be-reused", idx["foo.txt"].Hash)
	assert.NotEmpty(t, idx["bar.txt"].Hash)
}

func TestReconcile_RehashesOnModTimeChange(t *testing.T) {
	t.Parallel()

	dir := setupFS(t)

	stats, err := WalkStat(dir, Options{})
	require.NoError(t, err)

	previous := Index{}
	for _, s := range stats {
		previous[s.Path] = Record{Hash: "stale", ModTime: s.ModTime - int64(time.Hour)}
	}

	idx := Reconcile(stats, previous)
	for path, rec := range idx {
		assert.NotEqualf(t, "stale", rec.Hash, "path %s should have been rehashed", path)
	}
}

func TestReconcile_DropsEntriesAbsentFromFreshWalk(t *testing.T) {
	t.Parallel()

	previous := Index{"deleted.txt": Record{Hash: "x", ModTime: 1}}

	idx := Reconcile(nil, previous)
	assert.Empty(t, idx)
}

func TestSaveAndLoadIndex_RoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	idx := Index{"a.txt": Record{Hash: "123", ModTime: 456}}

	require.NoError(t, SaveIndex(dir, idx))

	loaded, err := LoadIndex(dir)
	require.NoError(t, err)
	assert.Equal(t, idx, loaded)
}

func TestLoadIndex_MissingFileReturnsEmpty(t *testing.T) {
	t.Parallel()

	idx, err := LoadIndex(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, idx)
}
