package pathutil

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"a/b/":      "a/b",
		"":          ".",
		"a\\b\\c":   "a/b/c",
		"a/b":       "a/b",
		".":         ".",
		"a/b//":     "a/b/",
	}

	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"a/b/", "", "a\\b\\c", "nested/deep/path/"} {
		once := Normalize(in)
		twice := Normalize(once)

		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestIsAncestor(t *testing.T) {
	t.Parallel()

	if !IsAncestor(".", "apps/web/src/main.ts") {
		t.Error("root '.' should be ancestor of everything")
	}

	if !IsAncestor("apps/web", "apps/web/src/main.ts") {
		t.Error("apps/web should be ancestor of apps/web/src/main.ts")
	}

	if IsAncestor("apps/web", "apps/webtools/main.ts") {
		t.Error("apps/web should not match apps/webtools by string prefix")
	}

	if !IsAncestor("apps/web", "apps/web") {
		t.Error("a root is its own ancestor")
	}
}
