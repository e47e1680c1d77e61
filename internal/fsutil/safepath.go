// Package fsutil maps client-supplied paths into the shared root.
package fsutil

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrPathEscape is returned when a requested path resolves outside root.
	ErrPathEscape = errors.New("path escapes shared root")
	// ErrExcludedSubtree is returned when a requested path resolves into the
	// excluded subtree, even when that subtree sits under root.
	ErrExcludedSubtree = errors.New("path enters excluded subtree")
)

// ResolveWithinRoot maps a user-provided path to an absolute path under root.
// Resolution is purely textual: leading separators are stripped, "." and ".."
// segments are collapsed against root, and the result must stay inside root
// and outside excluded. Excluded may be empty. No filesystem calls are made;
// symlinks already present under root are an accepted boundary.
func ResolveWithinRoot(root, excluded, userPath string) (string, error) {
	if root == "" {
		return "", errors.New("root is required")
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	rootAbs = filepath.Clean(rootAbs)

	var exclAbs string
	if excluded != "" {
		exclAbs, err = filepath.Abs(excluded)
		if err != nil {
			return "", err
		}
		exclAbs = filepath.Clean(exclAbs)
	}

	// Force relative paths.
	p := strings.TrimLeft(userPath, "/\\")
	joined := filepath.Clean(filepath.Join(rootAbs, filepath.FromSlash(p)))

	if !isWithin(rootAbs, joined) {
		return "", ErrPathEscape
	}
	if exclAbs != "" && isWithin(exclAbs, joined) {
		return "", ErrExcludedSubtree
	}
	return joined, nil
}

// isWithin reports whether candidate equals base or sits beneath it.
func isWithin(base, candidate string) bool {
	base = filepath.Clean(base)
	candidate = filepath.Clean(candidate)
	if base == candidate {
		return true
	}
	sep := string(filepath.Separator)
	if !strings.HasSuffix(base, sep) {
		base += sep
	}
	return strings.HasPrefix(candidate, base)
}
