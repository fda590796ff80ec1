package scanner

import (
	"os"
	"path/filepath"
	"sort"
)

// Cache is an immutable snapshot mapping every scanned directory to its ordered
// non-ignored descendant files. Directories appear only as keys.
type Cache struct {
	root        string
	descendants map[string][]string
	knownFiles  map[string]struct{}
}

// NewCache builds a snapshot from an explicit mapping. The known-file union is the
// set of files listed under root.
func NewCache(root string, descendants map[string][]string) *Cache {
	cleanRoot := filepath.Clean(root)
	copied := make(map[string][]string, len(descendants))
	for directory, files := range descendants {
		copied[filepath.Clean(directory)] = append([]string(nil), files...)
	}
	if _, exists := copied[cleanRoot]; !exists {
		copied[cleanRoot] = nil
	}
	knownFiles := make(map[string]struct{}, len(copied[cleanRoot]))
	for _, file := range copied[cleanRoot] {
		knownFiles[file] = struct{}{}
	}
	return &Cache{root: cleanRoot, descendants: copied, knownFiles: knownFiles}
}

// Root returns the directory the snapshot was built from.
func (cache *Cache) Root() string {
	return cache.root
}

// Descendants returns a copy of the descendant files of directory and whether the
// directory is present in the cache.
func (cache *Cache) Descendants(directory string) ([]string, bool) {
	files, exists := cache.descendants[filepath.Clean(directory)]
	if !exists {
		return nil, false
	}
	return append([]string(nil), files...), true
}

// HasDirectory reports whether directory was scanned.
func (cache *Cache) HasDirectory(directory string) bool {
	_, exists := cache.descendants[filepath.Clean(directory)]
	return exists
}

// IsKnownFile reports whether path is a non-ignored file in the snapshot.
func (cache *Cache) IsKnownFile(path string) bool {
	_, exists := cache.knownFiles[filepath.Clean(path)]
	return exists
}

// AllFiles returns every known file in depth-first order.
func (cache *Cache) AllFiles() []string {
	return append([]string(nil), cache.descendants[cache.root]...)
}

// FileCount returns the size of the known-file union.
func (cache *Cache) FileCount() int {
	return len(cache.knownFiles)
}

// Directories returns every cached directory in lexical order.
func (cache *Cache) Directories() []string {
	directories := make([]string, 0, len(cache.descendants))
	for directory := range cache.descendants {
		directories = append(directories, directory)
	}
	sort.Strings(directories)
	return directories
}

// Children lists the immediate cached subdirectories and known files of directory,
// each sorted by name.
func (cache *Cache) Children(directory string) ([]string, []string) {
	cleanDirectory := filepath.Clean(directory)
	var directories []string
	for candidate := range cache.descendants {
		if candidate != cleanDirectory && filepath.Dir(candidate) == cleanDirectory {
			directories = append(directories, candidate)
		}
	}
	var files []string
	for _, file := range cache.descendants[cleanDirectory] {
		if filepath.Dir(file) == cleanDirectory {
			files = append(files, file)
		}
	}
	sort.Strings(directories)
	sort.Strings(files)
	return directories, files
}

// Equal reports whether two snapshots hold the same mapping in the same order.
func (cache *Cache) Equal(other *Cache) bool {
	if cache == nil || other == nil {
		return cache == other
	}
	if cache.root != other.root || len(cache.descendants) != len(other.descendants) {
		return false
	}
	for directory, files := range cache.descendants {
		otherFiles, exists := other.descendants[directory]
		if !exists || len(files) != len(otherFiles) {
			return false
		}
		for index := range files {
			if files[index] != otherFiles[index] {
				return false
			}
		}
	}
	return true
}

func (cache *Cache) withoutSubtree(directory string) map[string][]string {
	prefix := directory + string(os.PathSeparator)
	remaining := make(map[string][]string, len(cache.descendants))
	for candidate, files := range cache.descendants {
		if candidate == directory || (len(candidate) > len(prefix) && candidate[:len(prefix)] == prefix) {
			continue
		}
		remaining[candidate] = files
	}
	return remaining
}
