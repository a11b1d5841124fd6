package projectgraph

import (
	"fmt"

	"github.com/nrwl-labs/nxcore/internal/nxerrors"
)

// SplitInputs is a target's resolved "inputs" array partitioned by how each
// entry is hashed: against the task's own project, against its
// dependencies' configuration, against a fixed set of other named
// projects, or against dependency tasks' declared outputs.
type SplitInputs struct {
	DepsInputs    []Input
	ProjectInputs []Input
	SelfInputs    []Input
	DepsOutputs   []Input
}

// namedInputTable maps a named-input name to its expanded definition,
// local to one project (a project's own namedInputs layered over the
// workspace's).
type namedInputTable map[string][]Input

// GetInputs resolves task's own inputs array (falling back to the default
// when the target declares none) and splits it into self/deps/project
// buckets, ready for per-instruction hashing.
func GetInputs(task Task, graph ProjectGraph, nxJSON NxJson) (SplitInputs, error) {
	project, ok := graph.Nodes[task.Target.Project]
	if !ok {
		return SplitInputs{}, fmt.Errorf("project %q not found in the project graph", task.Target.Project)
	}

	target, ok := project.Targets[task.Target.Target]
	if !ok {
		return SplitInputs{}, fmt.Errorf("project %q does not have a target %q", task.Target.Project, task.Target.Target)
	}

	named := GetNamedInputs(nxJSON, project)

	var inputs []Input
	if target.Inputs != nil {
		inputs = make([]Input, len(target.Inputs))
		for i, raw := range target.Inputs {
			inputs[i] = raw.ToInput()
		}
	}

	return splitInputsIntoSelfAndDeps(inputs, named)
}

// GetInputsForDependency resolves the inputs a dependency-task contributes
// to the hash of the task that depends on it, when named is a
// dependencies=true Inputs reference. It returns false when named is not
// such a reference (the caller should not recurse into this dependency).
func GetInputsForDependency(project ProjectNode, nxJSON NxJson, named Input) (SplitInputs, bool, error) {
	if named.Kind != InputKindInputs {
		return SplitInputs{}, false, nil
	}

	table := GetNamedInputs(nxJSON, project)

	expanded, err := ExpandNamedInput(named.InputName, table)
	if err != nil {
		return SplitInputs{}, false, err
	}

	var self, depsOutputs []Input
	for _, i := range expanded {
		if i.Kind == InputKindDepsOutputs {
			depsOutputs = append(depsOutputs, i)
		} else {
			self = append(self, i)
		}
	}

	return SplitInputs{
		DepsOutputs: depsOutputs,
		DepsInputs:  []Input{{Kind: InputKindInputs, InputName: named.InputName, Dependencies: true}},
		SelfInputs:  self,
	}, true, nil
}

// defaultInputs is what an unset target.inputs falls back to: every file
// under the project root, plus dependencies' "default" named input.
func defaultInputs() []Input {
	return []Input{
		{Kind: InputKindFileSet, FileSet: "{projectRoot}/**/*"},
		{Kind: InputKindInputs, InputName: "default", Dependencies: true},
	}
}

func splitInputsIntoSelfAndDeps(inputs []Input, named namedInputTable) (SplitInputs, error) {
	if inputs == nil {
		inputs = defaultInputs()
	}

	var depsInputs, selfish, projectInputs []Input

	for _, in := range inputs {
		switch {
		case in.Kind == InputKindInputs && in.Dependencies:
			depsInputs = append(depsInputs, in)
		case in.Kind == InputKindProjects:
			projectInputs = append(projectInputs, in)
		default:
			selfish = append(selfish, in)
		}
	}

	expanded, err := ExpandSingleProjectInputs(selfish, named)
	if err != nil {
		return SplitInputs{}, err
	}

	var self, depsOutputs []Input
	for _, i := range expanded {
		if i.Kind == InputKindDepsOutputs {
			depsOutputs = append(depsOutputs, i)
		} else {
			self = append(self, i)
		}
	}

	return SplitInputs{
		DepsInputs:    depsInputs,
		ProjectInputs: projectInputs,
		SelfInputs:    self,
		DepsOutputs:   depsOutputs,
	}, nil
}

// ExpandSingleProjectInputs resolves every entry of inputs to its terminal
// form (FileSet, Runtime, Environment, ExternalDependency, or DepsOutputs),
// recursively expanding any named-input references found along the way. A
// bare string that is not a registered named input is validated and
// treated as a literal fileset glob.
func ExpandSingleProjectInputs(inputs []Input, named namedInputTable) ([]Input, error) {
	var expanded []Input

	for _, in := range inputs {
		switch in.Kind {
		case InputKindFileSet:
			if err := validateFileSet(in.FileSet); err != nil {
				return nil, err
			}
			expanded = append(expanded, in)

		case InputKindInputs:
			if in.Dependencies {
				return nil, &nxerrors.InputError{
					Input:   in.InputName,
					Message: "namedInputs definitions can only refer to other namedInputs definitions within the same project",
				}
			}

			sub, err := ExpandNamedInput(in.InputName, named)
			if err != nil {
				return nil, err
			}
			expanded = append(expanded, sub...)

		case InputKindRuntime, InputKindEnvironment, InputKindExternalDependency, InputKindDepsOutputs:
			expanded = append(expanded, in)

		case InputKindProjects:
			return nil, &nxerrors.InputError{
				Message: "namedInputs definitions can only refer to other namedInputs definitions within the same project",
			}

		case InputKindString:
			s := in.StringValue
			if len(s) > 0 && s[0] == '^' {
				return nil, &nxerrors.InputError{Input: s, Message: "namedInputs definitions cannot start with ^"}
			}

			if sub, ok := named[s]; ok {
				more, err := ExpandSingleProjectInputs(sub, named)
				if err != nil {
					return nil, err
				}
				expanded = append(expanded, more...)
			} else {
				if err := validateFileSet(s); err != nil {
					return nil, err
				}
				expanded = append(expanded, Input{Kind: InputKindFileSet, FileSet: s})
			}
		}
	}

	return expanded, nil
}

func validateFileSet(s string) error {
	prefixed := hasAnyPrefix(s, "{projectRoot}", "!{projectRoot}", "{workspaceRoot}", "!{workspaceRoot}")
	if !prefixed {
		return &nxerrors.InputError{
			Input: s,
			Message: `invalid fileset: all filesets must start with either {workspaceRoot} or {projectRoot} ` +
				`(e.g. "!{projectRoot}/**/*.spec.ts" or "{workspaceRoot}/package.json"); ` +
				`if this is meant to be a named input, define it in nx.json`,
		}
	}

	return nil
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}

	return false
}

// ExpandNamedInput resolves the named-input definition registered under
// input, recursively expanding it. It fails with InputError if no such
// named input is defined.
func ExpandNamedInput(input string, named namedInputTable) ([]Input, error) {
	def, ok := named[input]
	if !ok {
		return nil, &nxerrors.InputError{Input: input, Message: "named input is not defined"}
	}

	return ExpandSingleProjectInputs(def, named)
}

// GetNamedInputs builds the effective named-input table for project: the
// implicit "default" (every file under the project root), layered with the
// workspace's nx.json named inputs, layered with the project's own
// namedInputs (project definitions win on name collision).
func GetNamedInputs(nxJSON NxJson, project ProjectNode) namedInputTable {
	table := namedInputTable{
		"default": {{Kind: InputKindFileSet, FileSet: "{projectRoot}/**/*"}},
	}

	for _, layer := range []map[string][]RawInput{nxJSON.NamedInputs, project.NamedInputs} {
		for key, raws := range layer {
			values := make([]Input, len(raws))
			for i, r := range raws {
				values[i] = r.ToInput()
			}
			table[key] = values
		}
	}

	return table
}
