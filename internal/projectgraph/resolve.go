package projectgraph

import (
	"sort"

	"github.com/nrwl-labs/nxcore/internal/pathutil"
)

// ResolveOwningProject maps a workspace-relative file path to the project
// that owns it: the project whose root is the longest ancestor prefix of
// path. Ties (two projects at the same root depth - which a well-formed
// graph never has, since project roots don't nest at equal depth under the
// same parent) are broken by picking the lexicographically first project
// name, for a deterministic result. Returns "", false if no project's root
// is an ancestor of path.
func ResolveOwningProject(path string, graph ProjectGraph) (string, bool) {
	normalized := pathutil.Normalize(path)

	names := make([]string, 0, len(graph.Nodes))
	for name := range graph.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	bestRoot := ""
	found := false

	for _, name := range names {
		root := pathutil.Normalize(graph.Nodes[name].Root)

		if !pathutil.IsAncestor(root, normalized) {
			continue
		}

		if !found || len(root) > len(bestRoot) {
			found = true
			best = name
			bestRoot = root
		}
	}

	return best, found
}
