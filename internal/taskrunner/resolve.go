// Package taskrunner is the glue layer the CLI commands exercise: it turns
// a task's hash instructions into a final fingerprint, and drives a task's
// execution through the PTY pool and process-tree killer while recording
// the outcome in the cache store. None of this is part of the core
// hashing/caching/execution packages themselves - it is the wiring a
// caller (here, cmd/nxcore) does to exercise them together, mirroring how
// the native layer's own task orchestrator glues the same pieces from
// outside this core's boundary.
package taskrunner

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nrwl-labs/nxcore/internal/pathutil"
	"github.com/nrwl-labs/nxcore/internal/projectgraph"
	"github.com/nrwl-labs/nxcore/internal/taskhasher"
)

// ResolveInputs bundles the external state BuildInstructions' resolved
// instructions need: the workspace's indexed files and environment, used
// to turn each HashInstruction into a concrete hash string. Logger receives
// the per-instruction hashers' debug-level fallback records; a nil Logger
// defaults to slog.Default() in the hashers that accept one.
type ResolveInputs struct {
	WorkspaceRoot string
	Files         []taskhasher.FileEntry
	Env           map[string]string
	Logger        *slog.Logger
}

// HashTask expands task's inputs into instructions, resolves each to a
// hash, sorts, and folds the result into the task's fingerprint.
func HashTask(task projectgraph.Task, graph projectgraph.ProjectGraph, nxJSON projectgraph.NxJson, inputs ResolveInputs) (string, error) {
	instructions, err := taskhasher.BuildInstructions(task, graph, nxJSON)
	if err != nil {
		return "", fmt.Errorf("build hash instructions: %w", err)
	}

	sorted := taskhasher.SortInstructions(instructions)

	cache := taskhasher.NewStringCache[string]()

	resolved := make([]string, 0, len(sorted))

	for _, instr := range sorted {
		hash, err := resolveInstruction(instr, graph, inputs, cache)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", instr, err)
		}

		resolved = append(resolved, hash)
	}

	return taskhasher.Fold(resolved), nil
}

func resolveInstruction(instr taskhasher.HashInstruction, graph projectgraph.ProjectGraph, inputs ResolveInputs, cache *taskhasher.StringCache[string]) (string, error) {
	switch instr.Kind {
	case taskhasher.KindAllExternalDependencies:
		return taskhasher.HashAllExternals(sortedExternalNames(graph), graph.ExternalNodes, cache)
	case taskhasher.KindProjectFileSet:
		return taskhasher.HashProjectFiles([]string{stripProjectRootPrefix(instr.FileSet)}, projectScopedFiles(instr.Project, graph, inputs.Files))
	case taskhasher.KindWorkspaceFileSet:
		return taskhasher.HashWorkspaceFiles([]string{instr.Value}, inputs.Files, cache, inputs.Logger)
	case taskhasher.KindRuntime:
		return taskhasher.HashRuntime(inputs.WorkspaceRoot, instr.Value, inputs.Env, cache)
	case taskhasher.KindEnvironment:
		return taskhasher.HashEnvironment(instr.Value, inputs.Env), nil
	case taskhasher.KindTaskOutput:
		return taskhasher.HashTaskOutput(instr.Value, inputs.Files)
	case taskhasher.KindExternal:
		return taskhasher.HashExternal(instr.Value, graph.ExternalNodes, cache)
	case taskhasher.KindProjectConfiguration:
		return taskhasher.HashProjectConfiguration(instr.Value, graph)
	case taskhasher.KindTsConfiguration:
		return taskhasher.HashTsConfiguration(inputs.WorkspaceRoot, cache, inputs.Logger)
	default:
		return "", fmt.Errorf("unsupported instruction kind %d", instr.Kind)
	}
}

const projectRootPrefix = "{projectRoot}/"

func stripProjectRootPrefix(fileset string) string {
	negative := strings.HasPrefix(fileset, "!")
	trimmed := fileset
	if negative {
		trimmed = fileset[1:]
	}

	rest, ok := strings.CutPrefix(trimmed, projectRootPrefix)
	if !ok {
		return fileset
	}

	if negative {
		return "!" + rest
	}

	return rest
}

// projectScopedFiles filters files down to those owned by projectName -
// resolved via projectgraph.ResolveOwningProject's nearest-ancestor-root
// rule, so a file under a nested project's root is attributed to that
// project rather than an enclosing one - and relativizes each kept path
// against the project's root, matching the {projectRoot}-relative glob
// patterns HashProjectFiles expects.
func projectScopedFiles(projectName string, graph projectgraph.ProjectGraph, files []taskhasher.FileEntry) []taskhasher.FileEntry {
	root := pathutil.Normalize(graph.Nodes[projectName].Root)

	scoped := make([]taskhasher.FileEntry, 0, len(files))
	for _, f := range files {
		owner, ok := projectgraph.ResolveOwningProject(f.Path, graph)
		if !ok || owner != projectName {
			continue
		}

		rel, err := pathutil.Relative(root, pathutil.Normalize(f.Path))
		if err != nil {
			continue
		}

		scoped = append(scoped, taskhasher.FileEntry{Path: rel, Hash: f.Hash})
	}

	return scoped
}

func sortedExternalNames(graph projectgraph.ProjectGraph) []string {
	names := make([]string, 0, len(graph.ExternalNodes))
	for name := range graph.ExternalNodes {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
