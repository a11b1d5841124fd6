package taskhasher

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/nrwl-labs/nxcore/internal/contenthash"
	"github.com/nrwl-labs/nxcore/internal/glob"
	"github.com/nrwl-labs/nxcore/internal/nxerrors"
	"github.com/nrwl-labs/nxcore/internal/projectgraph"
)

// loggerOrDefault returns logger, or slog.Default() if it is nil - every
// hasher that takes an optional logger parameter defaults this way rather
// than reading a package-level logger.
func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// FileEntry is one workspace file available to the file-set and output
// hashers: its workspace-relative path and its last reconciled content hash.
type FileEntry struct {
	Path string
	Hash string
}

const workspaceRootPrefix = "{workspaceRoot}/"

// HashWorkspaceFiles hashes every indexed file matching workspaceFileSets,
// folding (hash, path) pairs in path order. Each fileset entry must carry
// the {workspaceRoot}/ prefix (optionally negated with a leading "!"); an
// entry missing it is dropped rather than rejected outright, matching the
// native layer's soft-deprecation warning rather than a hard error.
func HashWorkspaceFiles(workspaceFileSets []string, files []FileEntry, cache *StringCache[string], logger *slog.Logger) (string, error) {
	logger = loggerOrDefault(logger)
	globs := make([]string, 0, len(workspaceFileSets))

	for _, fs := range workspaceFileSets {
		negative := strings.HasPrefix(fs, "!")
		trimmed := fs
		if negative {
			trimmed = fs[1:]
		}

		rest, ok := strings.CutPrefix(trimmed, workspaceRootPrefix)
		if !ok {
			logger.Debug("dropping workspace fileset missing {workspaceRoot}/ prefix", "fileset", fs)
			continue
		}

		if negative {
			globs = append(globs, "!"+rest)
		} else {
			globs = append(globs, rest)
		}
	}

	if len(globs) == 0 {
		return contenthash.Hash(nil), nil
	}

	cacheKey := strings.Join(globs, ",")
	if cached, ok := cache.Get(cacheKey); ok {
		return cached, nil
	}

	matcher, err := glob.Compile(globs)
	if err != nil {
		return "", err
	}

	sorted := make([]FileEntry, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	parts := make([]string, 0, len(sorted)*2)
	for _, f := range sorted {
		if !matcher.Match(f.Path) {
			continue
		}
		parts = append(parts, f.Hash, f.Path)
	}

	result := contenthash.HashString(strings.Join(parts, ","))
	cache.Set(cacheKey, result)

	return result, nil
}

// HashProjectFiles hashes every indexed file under a project's root,
// filtered by the project's resolved file-set globs (already relativized
// against {projectRoot}). It is the project-scoped counterpart of
// HashWorkspaceFiles: the caller supplies only the files belonging to the
// project, already relative to the project root.
func HashProjectFiles(fileSets []string, files []FileEntry) (string, error) {
	if len(fileSets) == 0 {
		return contenthash.Hash(nil), nil
	}

	matcher, err := glob.Compile(fileSets)
	if err != nil {
		return "", err
	}

	sorted := make([]FileEntry, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	parts := make([]string, 0, len(sorted)*2)
	for _, f := range sorted {
		if !matcher.Match(f.Path) {
			continue
		}
		parts = append(parts, f.Hash, f.Path)
	}

	return contenthash.HashString(strings.Join(parts, ",")), nil
}

// HashRuntime executes command through the platform shell from
// workspaceRoot with env layered over the inherited environment, and hashes
// its combined stdout+stderr. A non-zero exit is not itself an error: only
// a failure to spawn the shell is. Results are memoized by (command, env).
func HashRuntime(workspaceRoot, command string, env map[string]string, cache *StringCache[string]) (string, error) {
	cacheKey := fmt.Sprintf("%s-%s", command, formatEnv(env))

	return cache.GetOrCompute(cacheKey, func() (string, error) {
		return runAndHash(workspaceRoot, command, env)
	})
}

func formatEnv(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s;", k, env[k])
	}

	return b.String()
}

func runAndHash(workspaceRoot, command string, env map[string]string) (string, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/C", command)
	} else {
		cmd = exec.Command("sh", "-c", command)
	}

	cmd.Dir = workspaceRoot
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, isExitErr := err.(*exec.ExitError); !isExitErr {
			return "", fmt.Errorf("executing %q: %w", command, err)
		}
	}

	combined := append(append([]byte{}, stdout.Bytes()...), stderr.Bytes()...)

	return contenthash.Hash(combined), nil
}

// HashEnvironment hashes an environment variable's value, or the empty
// string if it is unset in env.
func HashEnvironment(envName string, env map[string]string) string {
	return contenthash.Hash([]byte(env[envName]))
}

// HashCwd hashes a task's working directory, either as its absolute path or
// (when relative is true) as its path relative to workspaceRoot. A cwd that
// isn't under workspaceRoot falls back to its absolute path.
func HashCwd(workspaceRoot, cwd string, relative bool) string {
	if !relative {
		return contenthash.Hash([]byte(cwd))
	}

	rel, err := relPath(workspaceRoot, cwd)
	if err != nil {
		return contenthash.Hash([]byte(cwd))
	}

	return contenthash.Hash([]byte(rel))
}

func relPath(root, target string) (string, error) {
	if target == root {
		return "", nil
	}

	prefix := strings.TrimSuffix(root, "/") + "/"
	if !strings.HasPrefix(target, prefix) {
		return "", fmt.Errorf("%s is not under %s", target, root)
	}

	return strings.TrimPrefix(target, prefix), nil
}

// HashExternal hashes an external (non-workspace) dependency node: its
// explicit hash if it carries one, otherwise its version string. Results
// are memoized by external name.
func HashExternal(externalName string, externals map[string]projectgraph.ExternalNode, cache *StringCache[string]) (string, error) {
	external, ok := externals[externalName]
	if !ok {
		return "", &nxerrors.MissingExternalDependencyError{ID: externalName}
	}

	if cached, found := cache.Get(externalName); found {
		return cached, nil
	}

	var result string
	if external.Hash != "" {
		result = contenthash.Hash([]byte(external.Hash))
	} else {
		result = contenthash.Hash([]byte(external.Version))
	}

	cache.Set(externalName, result)

	return result, nil
}

// HashAllExternals hashes a set of external dependencies, folding their
// individual hashes in the order given. Callers must pass sortedExternals
// already sorted for a deterministic result.
func HashAllExternals(sortedExternals []string, externals map[string]projectgraph.ExternalNode, cache *StringCache[string]) (string, error) {
	hashes := make([]string, 0, len(sortedExternals))

	for _, name := range sortedExternals {
		h, err := HashExternal(name, externals, cache)
		if err != nil {
			return "", err
		}
		hashes = append(hashes, h)
	}

	return contenthash.HashArray(hashes), nil
}

// HashProjectConfiguration hashes the parts of a project's configuration
// that affect task behavior: its root, its tags, its targets (sorted by
// name so declaration order never matters, each emitting
// "name|executor|outputs.join|options|configurations|parallelism"), and its
// named inputs (sorted by name).
func HashProjectConfiguration(projectName string, graph projectgraph.ProjectGraph) (string, error) {
	project, ok := graph.Nodes[projectName]
	if !ok {
		return "", fmt.Errorf("could not find project '%s'", projectName)
	}

	targetKeys := make([]string, 0, len(project.Targets))
	for k := range project.Targets {
		targetKeys = append(targetKeys, k)
	}
	sort.Strings(targetKeys)

	var targets strings.Builder
	for _, k := range targetKeys {
		t := project.Targets[k]
		targets.WriteString(k)
		targets.WriteByte('|')
		targets.WriteString(t.Executor)
		targets.WriteByte('|')
		targets.WriteString(strings.Join(t.Outputs, ""))
		targets.WriteByte('|')
		targets.Write(t.Options)
		targets.WriteByte('|')
		targets.Write(t.Configurations)
		targets.WriteByte('|')
		targets.WriteString(strconv.FormatBool(t.Parallelism))
	}

	namedInputKeys := make([]string, 0, len(project.NamedInputs))
	for k := range project.NamedInputs {
		namedInputKeys = append(namedInputKeys, k)
	}
	sort.Strings(namedInputKeys)

	var inputs strings.Builder
	for _, k := range namedInputKeys {
		for _, raw := range project.NamedInputs[k] {
			inputs.WriteString(raw.ToInput().String())
		}
	}

	payload := project.Root + strings.Join(project.Tags, "") + targets.String() + inputs.String()

	return contenthash.Hash([]byte(payload)), nil
}

// rootTsConfigNames are tried in order from workspaceRoot; the first one
// present wins, matching the native layer's get_root_ts_config_path.
var rootTsConfigNames = []string{"tsconfig.base.json", "tsconfig.json"}

// HashTsConfiguration hashes the content of the workspace's root-most
// tsconfig: tsconfig.base.json if present, else tsconfig.json, else an
// empty content hash if neither exists. It is the same file for every
// project in the workspace, so results are memoized by workspaceRoot.
func HashTsConfiguration(workspaceRoot string, cache *StringCache[string], logger *slog.Logger) (string, error) {
	logger = loggerOrDefault(logger)

	return cache.GetOrCompute("tsconfig:"+workspaceRoot, func() (string, error) {
		for _, name := range rootTsConfigNames {
			content, err := os.ReadFile(filepath.Join(workspaceRoot, name))
			if err == nil {
				return contenthash.Hash(content), nil
			}
			if !os.IsNotExist(err) {
				return "", &nxerrors.IOError{Op: "read root tsconfig", Err: err}
			}
		}

		logger.Debug("no root tsconfig found, hashing empty content", "workspaceRoot", workspaceRoot, "tried", rootTsConfigNames)
		return contenthash.Hash(nil), nil
	})
}

// HashTaskOutput filters files by globPattern and folds the content hashes
// of the matched files, in path order. files is the file list the caller
// supplies, each entry carrying its content hash; this function does not
// list or read the filesystem itself.
func HashTaskOutput(globPattern string, files []FileEntry) (string, error) {
	matcher, err := glob.Compile([]string{globPattern})
	if err != nil {
		return "", err
	}

	sorted := make([]FileEntry, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	hashes := make([]string, 0, len(sorted))
	for _, f := range sorted {
		if matcher.Match(f.Path) {
			hashes = append(hashes, f.Hash)
		}
	}

	return contenthash.HashArray(hashes), nil
}

// FindAllProjectNodeDependencies returns every project reachable from
// projectName's dependency edges, excluding projectName itself, visited at
// most once regardless of how many paths reach it (the diamond-dependency
// guard). External (non-workspace) dependency names are omitted unless
// includeExternal is true.
func FindAllProjectNodeDependencies(projectName string, graph projectgraph.ProjectGraph, includeExternal bool) []string {
	visited := map[string]bool{projectName: true}
	var ordered []string

	var visit func(name string)
	visit = func(name string) {
		for _, dep := range graph.Dependencies[name] {
			if visited[dep] {
				continue
			}

			if _, isExternal := graph.ExternalNodes[dep]; isExternal && !includeExternal {
				visited[dep] = true
				continue
			}

			visited[dep] = true
			ordered = append(ordered, dep)
			visit(dep)
		}
	}

	visit(projectName)
	sort.Strings(ordered)

	return ordered
}
