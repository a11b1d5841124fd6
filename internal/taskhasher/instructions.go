package taskhasher

import (
	"fmt"
	"sort"
)

// InstructionKind discriminates one HashInstruction variant. The zero
// value, KindAllExternalDependencies, sorts first; kinds are declared in
// the order the fingerprint's textual specification assigns them, which is
// authoritative here over the native layer's own (inconsistent) Ord
// implementation.
type InstructionKind int

const (
	KindAllExternalDependencies InstructionKind = iota
	KindProjectFileSet
	KindWorkspaceFileSet
	KindRuntime
	KindEnvironment
	KindTaskOutput
	KindExternal
	KindProjectConfiguration
	KindTsConfiguration
)

// HashInstruction is one contribution to a task's fingerprint: a named
// reference to a piece of state (a file set, an environment variable, a
// runtime command's output, ...), not yet resolved to its hash. Fold
// resolves a sorted slice of these into the task's final fingerprint.
type HashInstruction struct {
	Kind InstructionKind

	// KindProjectFileSet
	Project string
	FileSet string

	// KindWorkspaceFileSet / KindTaskOutput / KindExternal: Value
	// KindRuntime: Value holds the command
	// KindEnvironment: Value holds the variable name
	// KindProjectConfiguration / KindTsConfiguration: Value holds the project name
	Value string
}

// String renders the instruction the way the fingerprint identifies it in
// its resolved hash-array payload: a human-legible token distinct from its
// hashed value, matching the native layer's string conversion.
func (h HashInstruction) String() string {
	switch h.Kind {
	case KindAllExternalDependencies:
		return "AllExternalDependencies"
	case KindProjectFileSet:
		return fmt.Sprintf("%s:%s", h.Project, h.FileSet)
	case KindWorkspaceFileSet:
		return h.Value
	case KindRuntime:
		return fmt.Sprintf("runtime:%s", h.Value)
	case KindEnvironment:
		return fmt.Sprintf("env:%s", h.Value)
	case KindTaskOutput:
		return h.Value
	case KindExternal:
		return h.Value
	case KindProjectConfiguration:
		return fmt.Sprintf("%s:ProjectConfiguration", h.Value)
	case KindTsConfiguration:
		return fmt.Sprintf("%s:TsConfig", h.Value)
	default:
		return ""
	}
}

// sortKey is the secondary key used to order two instructions of the same
// kind, mirroring the native layer's per-variant string comparison.
func (h HashInstruction) sortKey() string {
	switch h.Kind {
	case KindProjectFileSet:
		return h.Project + "\x00" + h.FileSet
	default:
		return h.Value
	}
}

// SortInstructions orders instructions by kind (per the fingerprint's
// textual ordering: AllExternalDependencies, ProjectFileSet,
// WorkspaceFileSet, Runtime, Environment, TaskOutput, External,
// ProjectConfiguration, TsConfiguration), then by sort key within a kind,
// producing the canonical order Fold expects. This makes fingerprint
// computation invariant to the order a task's inputs were declared in.
func SortInstructions(instructions []HashInstruction) []HashInstruction {
	sorted := make([]HashInstruction, len(instructions))
	copy(sorted, instructions)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.sortKey() < b.sortKey()
	})

	return sorted
}
