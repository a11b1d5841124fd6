// Package projectgraph models the workspace's project graph and task graph:
// the project/target configuration nodes a task's inputs are resolved
// against, and the tagged Input variants a target's "inputs" array can
// contain (string shorthand, named-input reference, fileset, runtime,
// environment, external-dependency list, dependent-task-outputs, or a
// project-name selector).
package projectgraph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExternalNode describes a third-party package pulled in as a node of the
// project graph (e.g. from a lockfile), distinct from workspace projects.
type ExternalNode struct {
	Version string `json:"version"`
	Hash    string `json:"hash"`
}

// Target is one named target (e.g. "build", "test") of a project.
type Target struct {
	Executor string     `json:"executor"`
	Inputs   []RawInput `json:"inputs,omitempty"`
	Outputs  []string   `json:"outputs,omitempty"`

	// Options and Configurations are opaque JSON blobs (executor options
	// and named configuration variants); their exact shape is executor-
	// specific and never interpreted here, only hashed as part of the
	// project's configuration fingerprint.
	Options        json.RawMessage `json:"options,omitempty"`
	Configurations json.RawMessage `json:"configurations,omitempty"`

	// Parallelism declares whether this target may run concurrently with
	// sibling tasks of the same target across projects.
	Parallelism bool `json:"parallelism,omitempty"`
}

// ProjectNode is a single project in the workspace, keyed by project name in
// ProjectGraph.Nodes.
type ProjectNode struct {
	Root        string                `json:"root"`
	Tags        []string              `json:"tags,omitempty"`
	NamedInputs map[string][]RawInput `json:"namedInputs,omitempty"`
	Targets     map[string]Target     `json:"targets"`
}

// ProjectGraph is the full set of workspace projects, their dependency
// edges, and the external (non-workspace) nodes referenced by them.
type ProjectGraph struct {
	Nodes         map[string]ProjectNode  `json:"nodes"`
	Dependencies  map[string][]string     `json:"dependencies"`
	ExternalNodes map[string]ExternalNode `json:"externalNodes"`
}

// NxJson is the subset of the workspace's root configuration that the
// input-expansion algorithm needs: the workspace-wide named input
// definitions a project's own namedInputs layer over.
type NxJson struct {
	NamedInputs map[string][]RawInput `json:"namedInputs,omitempty"`
}

// TaskTarget identifies a runnable target: which project, which named
// target on it, and an optional configuration variant.
type TaskTarget struct {
	Project       string `json:"project"`
	Target        string `json:"target"`
	Configuration string `json:"configuration,omitempty"`
}

// Task is one scheduled unit of work: a target invocation with its CLI
// overrides serialized to a stable string and the project root it runs in.
type Task struct {
	ID          string     `json:"id"`
	Target      TaskTarget `json:"target"`
	Overrides   string     `json:"overrides"`
	ProjectRoot string     `json:"projectRoot,omitempty"`
}

// TaskGraph is the full set of tasks selected for a run, their dependency
// edges, and the subset with no unresolved dependency (Roots).
type TaskGraph struct {
	Roots        []string          `json:"roots"`
	Tasks        map[string]Task   `json:"tasks"`
	Dependencies map[string][]string `json:"dependencies"`
}

// InputKind discriminates the variant held by an Input value.
type InputKind int

const (
	// InputKindInputs references another named input, either local
	// (dependencies=false) or from project dependencies (dependencies=true).
	InputKindInputs InputKind = iota
	// InputKindString is a bare string entry whose meaning is not yet
	// resolved: it names a named input if one is registered under that
	// name, otherwise it is a literal fileset glob.
	InputKindString
	// InputKindFileSet is a raw glob pattern rooted at {projectRoot} or
	// {workspaceRoot}.
	InputKindFileSet
	// InputKindRuntime is the output of a shell command, captured at hash time.
	InputKindRuntime
	// InputKindEnvironment is the value of a named environment variable.
	InputKindEnvironment
	// InputKindExternalDependency lists external package ids whose hashes
	// feed into the fingerprint.
	InputKindExternalDependency
	// InputKindDepsOutputs references declared output files of dependency
	// tasks matching a glob, optionally transitively.
	InputKindDepsOutputs
	// InputKindProjects selects the configuration of one or more named
	// projects, independent of the current project's own dependency edges.
	InputKindProjects
)

// Input is the resolved, in-memory form of one entry of a target's "inputs"
// array or a named-input definition. Exactly the fields relevant to Kind
// are meaningful; it plays the role the Rust native layer gives to its
// Input<'a> enum, flattened into a single tagged struct because Go has no
// sum types.
type Input struct {
	Kind InputKind

	// InputKindInputs
	InputName    string
	Dependencies bool

	// InputKindString
	StringValue string

	// InputKindFileSet
	FileSet string

	// InputKindRuntime
	Runtime string

	// InputKindEnvironment
	Environment string

	// InputKindExternalDependency
	ExternalDependency []string

	// InputKindDepsOutputs
	DependentTasksOutputFiles string
	Transitive                bool

	// InputKindProjects
	Projects []string
}

func (i Input) String() string {
	switch i.Kind {
	case InputKindInputs:
		if i.Dependencies {
			return "^" + i.InputName
		}
		return i.InputName
	case InputKindString:
		return i.StringValue
	case InputKindFileSet:
		return i.FileSet
	case InputKindRuntime:
		return fmt.Sprintf("runtime:%s", i.Runtime)
	case InputKindEnvironment:
		return fmt.Sprintf("env:%s", i.Environment)
	case InputKindExternalDependency:
		return strings.Join(i.ExternalDependency, ",")
	case InputKindDepsOutputs:
		return i.DependentTasksOutputFiles
	case InputKindProjects:
		return strings.Join(i.Projects, ",")
	default:
		return ""
	}
}

// RawInput is the on-disk (JSON) shape of one entry in a target's "inputs"
// array or a named-input definition: either a bare string, or one of the
// seven object variants. It decodes from whichever shape is present and
// converts to the in-memory Input via ToInput.
type RawInput struct {
	raw string
	obj *rawInputObject
}

type rawInputObject struct {
	Input                     *string  `json:"input,omitempty"`
	Dependencies              *bool    `json:"dependencies,omitempty"`
	Fileset                   *string  `json:"fileset,omitempty"`
	RuntimeCmd                *string  `json:"runtime,omitempty"`
	Env                       *string  `json:"env,omitempty"`
	ExternalDependencies      []string `json:"externalDependencies,omitempty"`
	DependentTasksOutputFiles *string  `json:"dependentTasksOutputFiles,omitempty"`
	Transitive                *bool    `json:"transitive,omitempty"`
	Projects                  json.RawMessage `json:"projects,omitempty"`
}

// UnmarshalJSON accepts either a bare JSON string or one of the input
// object shapes, mirroring the TypeScript union type this config field has.
func (r *RawInput) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.raw = s
		r.obj = nil
		return nil
	}

	var obj rawInputObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decoding input entry: %w", err)
	}

	r.obj = &obj
	return nil
}

// MarshalJSON round-trips a RawInput back to whichever shape it decoded
// from.
func (r RawInput) MarshalJSON() ([]byte, error) {
	if r.obj == nil {
		return json.Marshal(r.raw)
	}

	return json.Marshal(r.obj)
}

// ToInput converts the decoded on-disk shape into the tagged in-memory
// Input, applying the "^" bare-string shorthand for a dependencies=true
// named-input reference the same way the native layer's From<&JsInputs>
// does.
func (r RawInput) ToInput() Input {
	if r.obj == nil {
		s := r.raw
		if strings.HasPrefix(s, "^") {
			return Input{Kind: InputKindInputs, InputName: s[1:], Dependencies: true}
		}
		return Input{Kind: InputKindString, StringValue: s}
	}

	o := r.obj
	switch {
	case o.Input != nil:
		deps := o.Dependencies != nil && *o.Dependencies
		return Input{Kind: InputKindInputs, InputName: *o.Input, Dependencies: deps}
	case o.Fileset != nil:
		return Input{Kind: InputKindFileSet, FileSet: *o.Fileset}
	case o.RuntimeCmd != nil:
		return Input{Kind: InputKindRuntime, Runtime: *o.RuntimeCmd}
	case o.Env != nil:
		return Input{Kind: InputKindEnvironment, Environment: *o.Env}
	case o.ExternalDependencies != nil:
		return Input{Kind: InputKindExternalDependency, ExternalDependency: o.ExternalDependencies}
	case o.DependentTasksOutputFiles != nil:
		transitive := o.Transitive != nil && *o.Transitive
		return Input{
			Kind:                       InputKindDepsOutputs,
			DependentTasksOutputFiles:  *o.DependentTasksOutputFiles,
			Transitive:                 transitive,
		}
	case o.Projects != nil:
		return Input{Kind: InputKindProjects, Projects: decodeProjectsField(o.Projects)}
	default:
		return Input{Kind: InputKindFileSet, FileSet: ""}
	}
}

func decodeProjectsField(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}

	return nil
}

// FileSetInstruction pairs a project name with the fileset patterns to hash
// for it, the payload of a ProjectFileSet HashInstruction.
type FileSetInstruction struct {
	Project  string
	FileSets []string
}
