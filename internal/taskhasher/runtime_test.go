package taskhasher

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHashRuntime_EchoCommand exercises the real shell. The expected digest
// depends on the operating system's echo/shell producing exactly
// "runtime\n" on stdout, which does not hold on Windows (cmd /C echo
// differs) or in environments without /bin/sh.
func TestHashRuntime_EchoCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("cmd /C echo output differs from sh -c echo")
	}

	result, err := HashRuntime(t.TempDir(), "echo 'runtime'", map[string]string{}, NewStringCache[string]())
	require.NoError(t, err)
	assert.Equal(t, "1849324306034826762", result)
}

func TestHashRuntime_CachesByCommandAndEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("cmd /C semantics differ from sh -c")
	}

	cache := NewStringCache[string]()
	dir := t.TempDir()

	first, err := HashRuntime(dir, "date +%s%N", map[string]string{}, cache)
	require.NoError(t, err)

	second, err := HashRuntime(dir, "date +%s%N", map[string]string{}, cache)
	require.NoError(t, err)

	assert.Equal(t, first, second, "second call must hit the cache rather than re-running the clock command")
}
