// Package paths provides the canonicalization used by C1 (FileAnalysis
// paths) and C3 (crate-root longest-prefix assignment): symlinks resolved,
// "." and ".." eliminated, forward slashes throughout.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Canonicalize resolves symlinks and returns an absolute, slash-normalized
// path. If the path does not exist (e.g. has already been deleted between
// discovery and analysis) the absolute, non-symlink-resolved form is
// returned instead of failing — canonicalization is best-effort.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = abs
		} else {
			return "", err
		}
	}
	return filepath.ToSlash(resolved), nil
}

// Relative returns path made relative to root, with forward slashes.
func Relative(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithin reports whether path (already canonical) lies within root
// (already canonical).
func IsWithin(root, path string) bool {
	if root == path {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, "/")+"/")
}

// LongestPrefixMatch returns the index into roots of the entry that is the
// longest matching prefix of path, or -1 if none matches. All inputs are
// assumed already canonical. Ties (equal-length prefixes, which cannot
// actually occur for distinct directories) are broken by first occurrence.
func LongestPrefixMatch(path string, roots []string) int {
	best := -1
	bestLen := -1
	for i, root := range roots {
		if !IsWithin(root, path) {
			continue
		}
		if len(root) > bestLen {
			bestLen = len(root)
			best = i
		}
	}
	return best
}
