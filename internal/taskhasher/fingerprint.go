package taskhasher

import (
	"sort"
	"strings"

	"github.com/pyr-sh/dag"

	"github.com/nrwl-labs/nxcore/internal/contenthash"
	"github.com/nrwl-labs/nxcore/internal/projectgraph"
)

// Fold combines a task's resolved per-instruction hashes into its final
// fingerprint.
func Fold(resolvedHashes []string) string {
	return contenthash.HashArray(resolvedHashes)
}

// BuildInstructions assembles the ordered HashInstruction set a task's
// fingerprint is built from: the task's own project inputs, plus - for
// every dependency project reachable through a dependencies=true named
// input - that dependency's own contributed inputs and configuration.
// A dependency project already visited on another path is not visited
// again, so a diamond dependency contributes its instructions exactly
// once regardless of how many paths reach it.
func BuildInstructions(task projectgraph.Task, graph projectgraph.ProjectGraph, nxJSON projectgraph.NxJson) ([]HashInstruction, error) {
	split, err := projectgraph.GetInputs(task, graph, nxJSON)
	if err != nil {
		return nil, err
	}

	var instructions []HashInstruction
	visited := map[string]bool{task.Target.Project: true}

	instructions = append(instructions, instructionsFromSelfInputs(task.Target.Project, split.SelfInputs)...)
	instructions = append(instructions, instructionsFromDepsOutputs(split.DepsOutputs, graph, task.Target.Project, visited)...)

	if len(split.ProjectInputs) > 0 {
		for _, projectName := range collectProjectNames(split.ProjectInputs) {
			instructions = append(instructions, HashInstruction{Kind: KindProjectConfiguration, Value: projectName})
		}
	}

	if len(split.DepsInputs) > 0 {
		deps, err := collectDependencyInstructions(task.Target.Project, split.DepsInputs, graph, nxJSON, visited)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, deps...)
	}

	return SortInstructions(instructions), nil
}

func collectProjectNames(projectInputs []projectgraph.Input) []string {
	var names []string
	for _, in := range projectInputs {
		names = append(names, in.Projects...)
	}
	sort.Strings(names)

	return names
}

// collectDependencyInstructions walks the dependency graph outward from
// projectName, resolving each depsInputs reference (a dependencies=true
// named-input) against every not-yet-visited dependency project, folding
// in that project's self inputs and recursing into its own further
// dependency references.
func collectDependencyInstructions(projectName string, depsInputs []projectgraph.Input, graph projectgraph.ProjectGraph, nxJSON projectgraph.NxJson, visited map[string]bool) ([]HashInstruction, error) {
	var instructions []HashInstruction

	deps := graph.Dependencies[projectName]
	sort.Strings(deps)

	for _, depName := range deps {
		if visited[depName] {
			continue
		}

		if _, external := graph.ExternalNodes[depName]; external {
			visited[depName] = true
			instructions = append(instructions, HashInstruction{Kind: KindExternal, Value: depName})
			continue
		}

		depProject, ok := graph.Nodes[depName]
		if !ok {
			continue
		}

		visited[depName] = true

		for _, named := range depsInputs {
			depSplit, applies, err := projectgraph.GetInputsForDependency(depProject, nxJSON, named)
			if err != nil {
				return nil, err
			}
			if !applies {
				continue
			}

			instructions = append(instructions, instructionsFromSelfInputs(depName, depSplit.SelfInputs)...)
			instructions = append(instructions, instructionsFromDepsOutputs(depSplit.DepsOutputs, graph, depName, visited)...)

			if len(depSplit.DepsInputs) > 0 {
				nested, err := collectDependencyInstructions(depName, depSplit.DepsInputs, graph, nxJSON, visited)
				if err != nil {
					return nil, err
				}
				instructions = append(instructions, nested...)
			}
		}
	}

	return instructions, nil
}

func instructionsFromSelfInputs(projectName string, inputs []projectgraph.Input) []HashInstruction {
	var instructions []HashInstruction

	for _, in := range inputs {
		switch in.Kind {
		case projectgraph.InputKindFileSet:
			instructions = append(instructions, fileSetInstruction(projectName, in.FileSet))

		case projectgraph.InputKindRuntime:
			instructions = append(instructions, HashInstruction{Kind: KindRuntime, Value: in.Runtime})

		case projectgraph.InputKindEnvironment:
			instructions = append(instructions, HashInstruction{Kind: KindEnvironment, Value: in.Environment})

		case projectgraph.InputKindExternalDependency:
			if len(in.ExternalDependency) == 0 {
				instructions = append(instructions, HashInstruction{Kind: KindAllExternalDependencies})
				continue
			}
			for _, ext := range in.ExternalDependency {
				instructions = append(instructions, HashInstruction{Kind: KindExternal, Value: ext})
			}
		}
	}

	// Every self-input set implicitly carries the project's own
	// configuration and its tsconfig: target definitions, named inputs,
	// and compiler options all affect behavior even when no file changes.
	instructions = append(instructions,
		HashInstruction{Kind: KindProjectConfiguration, Value: projectName},
		HashInstruction{Kind: KindTsConfiguration, Value: projectName},
	)

	return instructions
}

func fileSetInstruction(projectName, fileset string) HashInstruction {
	if strings.HasPrefix(fileset, "{workspaceRoot}") || strings.HasPrefix(fileset, "!{workspaceRoot}") {
		return HashInstruction{Kind: KindWorkspaceFileSet, Value: fileset}
	}

	return HashInstruction{Kind: KindProjectFileSet, Project: projectName, FileSet: fileset}
}

// instructionsFromDepsOutputs resolves dependentTasksOutputFiles inputs:
// each reachable dependency project - direct only, or (when Transitive)
// every transitive dependency visited at most once per the diamond-dedup
// rule - contributes one TaskOutput instruction carrying the declared
// output-files glob, with the dependency's name in Project.
func instructionsFromDepsOutputs(depsOutputs []projectgraph.Input, graph projectgraph.ProjectGraph, fromProject string, visited map[string]bool) []HashInstruction {
	if len(depsOutputs) == 0 {
		return nil
	}

	var instructions []HashInstruction

	for _, in := range depsOutputs {
		var deps []string
		if in.Transitive {
			seen := make(map[string]bool, len(visited))
			for k := range visited {
				seen[k] = true
			}
			deps = transitiveDependencyProjects(fromProject, graph, seen)
		} else {
			deps = append([]string(nil), graph.Dependencies[fromProject]...)
			sort.Strings(deps)
		}

		for _, dep := range deps {
			instructions = append(instructions, HashInstruction{
				Kind:    KindTaskOutput,
				Project: dep,
				Value:   in.DependentTasksOutputFiles,
			})
		}
	}

	return instructions
}

// dependencyDAG builds an acyclic graph of project-to-project edges from
// graph.Dependencies, skipping edges into external (non-workspace) nodes.
// It is rebuilt per call rather than cached on ProjectGraph: the project
// graph is already a per-run snapshot, and transitive expansion is only
// requested for the (uncommon) Transitive dependent-outputs input.
func dependencyDAG(graph projectgraph.ProjectGraph) dag.AcyclicGraph {
	var g dag.AcyclicGraph

	for name := range graph.Nodes {
		g.Add(name)
	}

	for from, deps := range graph.Dependencies {
		for _, to := range deps {
			if _, external := graph.ExternalNodes[to]; external {
				continue
			}
			g.Connect(dag.BasicEdge(from, to))
		}
	}

	return g
}

// transitiveDependencyProjects returns every workspace project reachable
// from projectName through dependency edges not already present in
// visited, which is updated in place (the diamond-dedup guard: a project
// reachable through more than one path is returned, and thus contributes
// its instructions, exactly once).
func transitiveDependencyProjects(projectName string, graph projectgraph.ProjectGraph, visited map[string]bool) []string {
	g := dependencyDAG(graph)

	reachable, err := g.Ancestors(projectName)
	if err != nil {
		return nil
	}

	var ordered []string
	for _, v := range reachable {
		name, ok := v.(string)
		if !ok || visited[name] {
			continue
		}

		visited[name] = true
		ordered = append(ordered, name)
	}

	sort.Strings(ordered)

	return ordered
}
