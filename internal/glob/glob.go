// Package glob compiles the brace/extglob patterns used in project and
// task configuration (inputs, outputs) into matchers, and implements the
// output-expansion and output-validation helpers the cache store relies on
// to copy task outputs and to reject slow, workspace-root-anchored globs.
package glob

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nrwl-labs/nxcore/internal/nxerrors"
	"github.com/nrwl-labs/nxcore/internal/pathutil"
)

// ContainsGlobPattern reports whether value contains any glob metacharacter:
// negation, alternation, character classes, or extglob group delimiters.
func ContainsGlobPattern(value string) bool {
	return strings.ContainsAny(value, "!?@+*|,{}[]()")
}

// PartitionGlob splits pattern into an anchored root prefix containing no
// wildcards and the remaining tail glob, so callers can scope a directory
// walk to the root instead of scanning the whole tree. A pattern with no
// wildcard segments partitions to (pattern, "").
func PartitionGlob(pattern string) (root, tail string, err error) {
	segments := strings.Split(pathutil.Normalize(pattern), "/")

	cut := len(segments)
	for i, seg := range segments {
		if ContainsGlobPattern(seg) {
			cut = i
			break
		}
	}

	root = strings.Join(segments[:cut], "/")
	tail = strings.Join(segments[cut:], "/")

	return root, tail, nil
}

// extglobGroup matches a single, non-nested extglob group: one of the five
// prefix operators followed by a parenthesized, pipe-separated alternation.
var extglobGroup = regexp.MustCompile(`([!@+*?])\(([^()]*)\)`)

// translateExtglob rewrites the subset of extglob groups this matcher
// supports into doublestar-native brace alternation. "@(...)" and "?(...)"
// (exactly-one and zero-or-one) both reduce to a brace group; "?(...)"
// additionally admits the empty alternative. "+(...)" and "*(...)"
// (one-or-more / zero-or-more repeats of the alternation) are approximated
// by their single-repetition form, which is exact for the common case of a
// fixed extension list and permissive rather than strict for the repeated
// case. "!(...)" (negated) groups are collected separately since doublestar
// has no per-segment negation; translateExtglob returns them as its second
// result and Compile applies them as exclusion patterns.
func translateExtglob(pattern string) (rewritten string, negated []string) {
	rewritten = extglobGroup.ReplaceAllStringFunc(pattern, func(m string) string {
		sub := extglobGroup.FindStringSubmatch(m)
		op, alts := sub[1], sub[2]

		switch op {
		case "!":
			negated = append(negated, strings.Split(alts, "|")...)
			return "*"
		case "?":
			return "{" + strings.ReplaceAll(alts, "|", ",") + ",}"
		default: // "@", "+", "*"
			return "{" + strings.ReplaceAll(alts, "|", ",") + "}"
		}
	})

	return rewritten, negated
}

// Matcher is a compiled set of include patterns minus a set of exclude
// patterns (entries prefixed with "!" in the original pattern list).
type Matcher struct {
	includes []string
	excludes []string
}

// Compile builds a Matcher from a mix of normal and "!"-prefixed negated
// patterns, translating extglob groups along the way.
func Compile(patterns []string) (*Matcher, error) {
	m := &Matcher{}

	for _, p := range patterns {
		negatedWhole := strings.HasPrefix(p, "!")
		body := strings.TrimPrefix(p, "!")

		rewritten, negatedAlts := translateExtglob(body)
		for _, alt := range negatedAlts {
			m.excludes = append(m.excludes, strings.TrimSpace(alt))
		}

		if negatedWhole {
			m.excludes = append(m.excludes, rewritten)
		} else {
			m.includes = append(m.includes, rewritten)
		}

		if !doublestar.ValidatePattern(rewritten) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	return m, nil
}

// Match reports whether path (forward-slash, workspace-relative) matches
// any include pattern and no exclude pattern.
func (m *Matcher) Match(path string) bool {
	matched := false

	for _, inc := range m.includes {
		if ok, _ := doublestar.Match(inc, path); ok {
			matched = true
			break
		}
	}

	if !matched {
		return false
	}

	for _, exc := range m.excludes {
		if ok, _ := doublestar.Match(exc, path); ok {
			return false
		}
	}

	return true
}

// ExpandOutputs expands entries (literal paths or glob patterns, optionally
// "!"-negated) rooted at directory into the list of files and directories
// that actually exist. When no entry contains a glob metacharacter, this
// reduces to an existence filter; otherwise it walks directory once and
// matches every visited path against the compiled pattern set.
func ExpandOutputs(directory string, entries []string) ([]string, error) {
	hasGlob := false
	for _, e := range entries {
		if ContainsGlobPattern(e) {
			hasGlob = true
			break
		}
	}

	if !hasGlob {
		var existing []string
		for _, e := range entries {
			if _, err := os.Stat(filepath.Join(directory, e)); err == nil {
				existing = append(existing, e)
			}
		}
		return existing, nil
	}

	var regular, negated []string
	for _, e := range entries {
		if strings.HasPrefix(e, "!") {
			negated = append(negated, strings.TrimPrefix(e, "!"))
			continue
		}

		if !strings.HasSuffix(e, "/") {
			if info, err := os.Stat(filepath.Join(directory, e)); err == nil && info.IsDir() {
				e += "/"
			}
		}
		regular = append(regular, e)
	}

	patterns := append(append([]string{}, regular...), prefixAll(negated, "!")...)
	matcher, err := Compile(patterns)
	if err != nil {
		return nil, err
	}

	var found []string
	err = filepath.WalkDir(directory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == directory {
			return nil
		}

		rel, relErr := pathutil.Relative(directory, path)
		if relErr != nil {
			return nil
		}

		candidate := rel
		if d.IsDir() {
			candidate += "/"
		}

		if matcher.Match(candidate) || matcher.Match(rel) {
			found = append(found, rel)
		}

		return nil
	})
	if err != nil {
		return nil, &ioWalkError{directory: directory, err: err}
	}

	sort.Strings(found)
	return found, nil
}

func prefixAll(ss []string, prefix string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = prefix + s
	}
	return out
}

type ioWalkError struct {
	directory string
	err       error
}

func (e *ioWalkError) Error() string {
	return fmt.Sprintf("walking %s: %v", e.directory, e.err)
}

func (e *ioWalkError) Unwrap() error { return e.err }

var missingPrefixRe = regexp.MustCompile(`^!?\{[\s\S]+\}`)

func isMissingPrefix(output string) bool {
	return !missingPrefixRe.MatchString(output)
}

var workspaceRootOutputPrefixes = []string{"!{workspaceRoot}", "{workspaceRoot}"}

// ValidateOutputs rejects an outputs list containing entries with no
// {workspaceRoot}/{projectRoot} prefix, or entries that are an
// unconstrained glob anchored directly at the workspace root (these force
// a full-tree scan and are slow).
func ValidateOutputs(outputs []string) error {
	var missingPrefix, workspaceGlobs []string

	for _, output := range outputs {
		if isMissingPrefix(output) {
			missingPrefix = append(missingPrefix, output)
			continue
		}

		for _, prefix := range workspaceRootOutputPrefixes {
			trimmed, ok := strings.CutPrefix(output, prefix)
			if !ok {
				continue
			}

			if ContainsGlobPattern(trimmed) {
				root, _, err := PartitionGlob(trimmed)
				if err == nil && root == "" {
					workspaceGlobs = append(workspaceGlobs, output)
				}
			}
		}
	}

	if len(missingPrefix) == 0 && len(workspaceGlobs) == 0 {
		return nil
	}

	var b strings.Builder
	if len(missingPrefix) > 0 {
		fmt.Fprintf(&b, "the following outputs are invalid:\n - %s\n\nrun the repair command to fix this.",
			strings.Join(missingPrefix, "\n - "))
	}
	if len(workspaceGlobs) > 0 {
		fmt.Fprintf(&b, "the following outputs are defined by a glob pattern from the workspace root:\n - %s\n\nthese can be slow, replace them with a more specific pattern.",
			strings.Join(workspaceGlobs, "\n - "))
	}

	return &nxerrors.InputError{
		Input:   strings.Join(append(append([]string{}, missingPrefix...), workspaceGlobs...), ", "),
		Message: b.String(),
	}
}

// GetTransformableOutputs returns the subset of outputs that lack a
// {workspaceRoot}/{projectRoot} prefix, the candidates an automatic repair
// pass could rewrite.
func GetTransformableOutputs(outputs []string) []string {
	var out []string
	for _, o := range outputs {
		if isMissingPrefix(o) {
			out = append(out, o)
		}
	}
	return out
}
