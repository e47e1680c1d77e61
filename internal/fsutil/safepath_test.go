// Package fsutil tests validate path containment and exclusion precedence.
package fsutil

import (
	"errors"
	"path/filepath"
	"testing"
)

// TestResolveWithinRootRejectsTraversal blocks textual .. escapes.
func TestResolveWithinRootRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"../etc/passwd",
		"/../etc/passwd",
		"a/../../etc",
		"..",
		"docs/../../../../etc/shadow",
	} {
		if _, err := ResolveWithinRoot(root, "", p); !errors.Is(err, ErrPathEscape) {
			t.Fatalf("path %q: expected ErrPathEscape, got %v", p, err)
		}
	}
}

// TestResolveWithinRootAccepts joins contained paths under root.
func TestResolveWithinRootAccepts(t *testing.T) {
	root := t.TempDir()
	for req, want := range map[string]string{
		"":              root,
		"/":             root,
		"docs":          filepath.Join(root, "docs"),
		"/docs/a.txt":   filepath.Join(root, "docs", "a.txt"),
		"docs/../notes": filepath.Join(root, "notes"),
		"./x/./y":       filepath.Join(root, "x", "y"),
	} {
		got, err := ResolveWithinRoot(root, "", req)
		if err != nil {
			t.Fatalf("path %q: %v", req, err)
		}
		if got != want {
			t.Fatalf("path %q: got %q want %q", req, got, want)
		}
	}
}

// TestResolveWithinRootExcludedSubtree rejects the excluded directory and
// its descendants even though they sit under root.
func TestResolveWithinRootExcludedSubtree(t *testing.T) {
	root := t.TempDir()
	excluded := filepath.Join(root, ".shareview")

	for _, p := range []string{".shareview", ".shareview/app.db", "/.shareview/tls.key", "docs/../.shareview"} {
		if _, err := ResolveWithinRoot(root, excluded, p); !errors.Is(err, ErrExcludedSubtree) {
			t.Fatalf("path %q: expected ErrExcludedSubtree, got %v", p, err)
		}
	}

	// A sibling that merely shares the name prefix is allowed.
	got, err := ResolveWithinRoot(root, excluded, ".shareview-notes")
	if err != nil {
		t.Fatalf("sibling prefix: %v", err)
	}
	if got != filepath.Join(root, ".shareview-notes") {
		t.Fatalf("sibling prefix resolved to %q", got)
	}
}

// TestResolveWithinRootExcludedOutsideRoot keeps escape reporting first when
// the excluded subtree lives elsewhere.
func TestResolveWithinRootExcludedOutsideRoot(t *testing.T) {
	root := t.TempDir()
	excluded := t.TempDir()
	if _, err := ResolveWithinRoot(root, excluded, "../escape"); !errors.Is(err, ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got %v", err)
	}
	if _, err := ResolveWithinRoot(root, excluded, "fine.txt"); err != nil {
		t.Fatalf("contained path rejected: %v", err)
	}
}
