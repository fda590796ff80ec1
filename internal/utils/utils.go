// Package utils contains path, formatting and logging helpers shared by the impromptu packages.
package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	pathSegmentSeparator = "/"
	currentDirectoryPath = "."
	parentDirectoryPath  = ".."
)

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept. Blank patterns are dropped.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		if _, exists := encounteredPatterns[trimmedPattern]; !exists {
			encounteredPatterns[trimmedPattern] = struct{}{}
			result = append(result, trimmedPattern)
		}
	}
	return result
}

// CanonicalPath converts path into the absolute, cleaned identifier used as a map key
// by the scanner and the selection store.
func CanonicalPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	absolutePath, absolutePathError := filepath.Abs(path)
	if absolutePathError != nil {
		return "", fmt.Errorf("abs failed for '%s': %w", path, absolutePathError)
	}
	return filepath.Clean(absolutePath), nil
}

// CanonicalRoot is CanonicalPath with symbolic links resolved, so a workspace opened
// through a link has the same identity as its target directory.
func CanonicalRoot(path string) (string, error) {
	absolutePath, absolutePathError := CanonicalPath(path)
	if absolutePathError != nil {
		return "", absolutePathError
	}
	resolvedPath, resolveError := filepath.EvalSymlinks(absolutePath)
	if resolveError != nil {
		return "", fmt.Errorf("resolve symlinks for '%s': %w", path, resolveError)
	}
	return resolvedPath, nil
}

// ResolveWorkspacePath interprets path relative to root unless it is already absolute.
func ResolveWorkspacePath(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(root, filepath.FromSlash(path)))
}

// RelativePathOrSelf calculates the forward-slash path from root to fullPath.
// Returns the cleaned fullPath if relative calculation fails.
// Returns "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	cleanRoot := filepath.Clean(root)

	if cleanPath == cleanRoot {
		return currentDirectoryPath
	}

	relativePath, relErr := filepath.Rel(cleanRoot, cleanPath)
	if relErr != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// IsWithinRoot reports whether path equals root or lies beneath it.
func IsWithinRoot(path, root string) bool {
	relativePath, relErr := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if relErr != nil {
		return false
	}
	if relativePath == currentDirectoryPath {
		return true
	}
	slashPath := filepath.ToSlash(relativePath)
	return slashPath != parentDirectoryPath && !strings.HasPrefix(slashPath, parentDirectoryPath+pathSegmentSeparator)
}
