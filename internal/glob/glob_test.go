package glob

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrwl-labs/nxcore/internal/nxerrors"
)

func TestContainsGlobPattern(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsGlobPattern("*.ts"))
	assert.True(t, ContainsGlobPattern("multi/*.{js,map,ts}"))
	assert.True(t, ContainsGlobPattern("!dist"))
	assert.False(t, ContainsGlobPattern("src/index.ts"))
}

func TestPartitionGlob(t *testing.T) {
	t.Parallel()

	root, tail, err := PartitionGlob("packages/nx/src/native/*.node")
	require.NoError(t, err)
	assert.Equal(t, "packages/nx/src/native", root)
	assert.Equal(t, "*.node", tail)

	root, tail, err = PartitionGlob("test.txt")
	require.NoError(t, err)
	assert.Equal(t, "test.txt", root)
	assert.Equal(t, "", tail)
}

func TestMatcher_BraceAlternation(t *testing.T) {
	t.Parallel()

	m, err := Compile([]string{"multi/*.{js,map,ts}"})
	require.NoError(t, err)

	assert.True(t, m.Match("multi/file.js"))
	assert.True(t, m.Match("multi/src.ts"))
	assert.False(t, m.Match("multi/file.txt"))
}

func TestMatcher_Negation(t *testing.T) {
	t.Parallel()

	m, err := Compile([]string{"apps/web/.next/**", "!apps/web/.next/cache/**"})
	require.NoError(t, err)

	assert.True(t, m.Match("apps/web/.next/static/contents"))
	assert.False(t, m.Match("apps/web/.next/cache/contents"))
}

func setupOutputsFS(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	touch := func(rel string) {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	touch("test.txt")
	touch("packages/nx/src/native/nx.darwin-arm64.node")
	touch("folder/nested-folder/.keep")
	touch("multi/file.js")
	touch("multi/src.ts")
	touch("multi/file.map")
	touch("multi/file.txt")
	touch("apps/web/.next/cache/contents")
	touch("apps/web/.next/static/contents")
	touch("apps/web/.next/content-file")

	return dir
}

func TestExpandOutputs_LiteralExistenceFilter(t *testing.T) {
	t.Parallel()

	dir := setupOutputsFS(t)

	result, err := ExpandOutputs(dir, []string{"test.txt", "does-not-exist.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"test.txt"}, result)
}

func TestExpandOutputs_GlobPattern(t *testing.T) {
	t.Parallel()

	dir := setupOutputsFS(t)

	result, err := ExpandOutputs(dir, []string{"multi/*.{js,map,ts}"})
	require.NoError(t, err)
	assert.Equal(t, []string{"multi/file.js", "multi/file.map", "multi/src.ts"}, result)
}

func TestExpandOutputs_NegationExcludesSubtree(t *testing.T) {
	t.Parallel()

	dir := setupOutputsFS(t)

	result, err := ExpandOutputs(dir, []string{"apps/web/.next/**", "!apps/web/.next/cache/**"})
	require.NoError(t, err)
	assert.NotContains(t, result, "apps/web/.next/cache/contents")
	assert.Contains(t, result, "apps/web/.next/content-file")
}

func TestValidateOutputs_RejectsMissingPrefix(t *testing.T) {
	t.Parallel()

	err := ValidateOutputs([]string{"dist"})
	require.Error(t, err)

	err = ValidateOutputs([]string{"{workspaceRoot}/dist", "{projectRoot}/build"})
	require.NoError(t, err)
}

func TestValidateOutputs_RejectsWorkspaceRootGlob(t *testing.T) {
	t.Parallel()

	err := ValidateOutputs([]string{"{workspaceRoot}/**/*.log"})
	require.Error(t, err)
}

func TestValidateOutputs_ReturnsInputError(t *testing.T) {
	t.Parallel()

	err := ValidateOutputs([]string{"dist"})
	require.Error(t, err)

	var inputErr *nxerrors.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Contains(t, inputErr.Input, "dist")
}

func TestGetTransformableOutputs(t *testing.T) {
	t.Parallel()

	out := GetTransformableOutputs([]string{"dist", "{projectRoot}/build", "!coverage"})
	assert.ElementsMatch(t, []string{"dist", "!coverage"}, out)
}
