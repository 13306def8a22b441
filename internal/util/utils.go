package util

import (
	"path"
	"path/filepath"
	"strings"
)

func ToRelativePath(rootPath, fullPath string) string {
	relPath, err := filepath.Rel(rootPath, fullPath)
	if err != nil {
		return fullPath
	}
	return relPath
}

// MatchesAny reports whether relPath, or any of its parent directories,
// matches one of the glob patterns
func MatchesAny(patterns []string, relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		pattern = normalizePattern(pattern)
		for p := relPath; p != "." && p != "/" && p != ""; p = parentOf(p) {
			if ok, _ := path.Match(pattern, p); ok {
				return true
			}
			if ok, _ := path.Match(pattern, path.Base(p)); ok {
				return true
			}
		}
	}
	return false
}

// ValidatePattern returns path.ErrBadPattern for a glob MatchesAny could
// never match
func ValidatePattern(pattern string) error {
	_, err := path.Match(normalizePattern(pattern), "")
	return err
}

func normalizePattern(pattern string) string {
	return strings.TrimSuffix(filepath.ToSlash(pattern), "/")
}

func parentOf(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

