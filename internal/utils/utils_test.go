package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/impromptu/internal/utils"
)

func TestDeduplicatePatterns(t *testing.T) {
	testCases := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "empty", input: nil, expected: []string{}},
		{name: "keeps first occurrence", input: []string{"*.log", "dist/", "*.log"}, expected: []string{"*.log", "dist/"}},
		{name: "drops blanks and trims", input: []string{" build/ ", "", "build/"}, expected: []string{"build/"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := utils.DeduplicatePatterns(testCase.input)
			if len(result) != len(testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, result)
			}
			for index := range result {
				if result[index] != testCase.expected[index] {
					t.Fatalf("expected %v, got %v", testCase.expected, result)
				}
			}
		})
	}
}

func TestRelativePathOrSelf(t *testing.T) {
	rootDirectory := t.TempDir()
	testCases := []struct {
		name     string
		fullPath string
		expected string
	}{
		{name: "root itself", fullPath: rootDirectory, expected: "."},
		{name: "direct child", fullPath: filepath.Join(rootDirectory, "a.txt"), expected: "a.txt"},
		{name: "nested child uses forward slashes", fullPath: filepath.Join(rootDirectory, "sub", "b.txt"), expected: "sub/b.txt"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result := utils.RelativePathOrSelf(testCase.fullPath, rootDirectory)
			if result != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, result)
			}
		})
	}
}

func TestIsWithinRoot(t *testing.T) {
	rootDirectory := filepath.Join(t.TempDir(), "proj")
	testCases := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "root", path: rootDirectory, expected: true},
		{name: "descendant", path: filepath.Join(rootDirectory, "sub", "b.txt"), expected: true},
		{name: "sibling with shared prefix", path: rootDirectory + "-other", expected: false},
		{name: "parent", path: filepath.Dir(rootDirectory), expected: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if result := utils.IsWithinRoot(testCase.path, rootDirectory); result != testCase.expected {
				t.Fatalf("expected %t for %s, got %t", testCase.expected, testCase.path, result)
			}
		})
	}
}

func TestResolveWorkspacePath(t *testing.T) {
	rootDirectory := t.TempDir()
	expected := filepath.Join(rootDirectory, "sub", "b.txt")
	if result := utils.ResolveWorkspacePath(rootDirectory, "sub/b.txt"); result != expected {
		t.Fatalf("expected %s, got %s", expected, result)
	}
	if result := utils.ResolveWorkspacePath(rootDirectory, expected); result != expected {
		t.Fatalf("expected absolute path to pass through, got %s", result)
	}
}

func TestCanonicalPathRejectsEmpty(t *testing.T) {
	if _, err := utils.CanonicalPath(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestCanonicalRootResolvesSymlinks(t *testing.T) {
	targetDirectory, resolveError := filepath.EvalSymlinks(t.TempDir())
	if resolveError != nil {
		t.Fatalf("resolve temp dir: %v", resolveError)
	}
	linkPath := filepath.Join(t.TempDir(), "link")
	if linkError := os.Symlink(targetDirectory, linkPath); linkError != nil {
		t.Skipf("symlinks unavailable: %v", linkError)
	}
	resolved, err := utils.CanonicalRoot(linkPath)
	if err != nil {
		t.Fatalf("canonical root: %v", err)
	}
	if resolved != targetDirectory {
		t.Fatalf("expected %s, got %s", targetDirectory, resolved)
	}
	if _, missingError := utils.CanonicalRoot(filepath.Join(targetDirectory, "missing")); missingError == nil {
		t.Fatalf("expected error for a missing root")
	}
}

func TestNewApplicationLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := utils.NewApplicationLogger("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	logger, err := utils.NewApplicationLogger("")
	if err != nil {
		t.Fatalf("NewApplicationLogger error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected logger")
	}
}
