// Package pathutil normalizes filesystem paths to the forward-slash,
// workspace-relative form used as the identity key throughout nxcore.
package pathutil

import (
	"path"
	"path/filepath"
	"strings"
)

// Normalize converts an OS path to a forward-slash string and strips one
// trailing slash ("a/b//" becomes "a/b/"). An empty path normalizes to ".".
func Normalize(p string) string {
	s := strings.ReplaceAll(p, `\`, "/")
	s = strings.TrimSuffix(s, "/")

	if s == "" {
		return "."
	}

	return s
}

// Relative returns root-relative, normalized path for abs, assuming abs is
// rooted at root. Both inputs may use OS-native separators.
func Relative(root, abs string) (string, error) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}

	return Normalize(rel), nil
}

// Join joins normalized path segments with forward slashes and cleans the
// result the way path.Join does, never introducing backslashes.
func Join(segments ...string) string {
	return Normalize(path.Join(segments...))
}

// IsAncestor reports whether candidateRoot is root-prefix equal to or an
// ancestor directory of p, both already normalized. Used to resolve a file
// to its owning project by nearest-ancestor prefix.
func IsAncestor(candidateRoot, p string) bool {
	if candidateRoot == "." {
		return true
	}

	if p == candidateRoot {
		return true
	}

	return strings.HasPrefix(p, candidateRoot+"/")
}
