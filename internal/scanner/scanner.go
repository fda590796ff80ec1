// Package scanner walks a workspace and maintains the descendant cache consulted by
// the selection store.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/impromptu/internal/utils"
)

const (
	warningReadDirectoryFormat = "reading directory %s: %v"
	warningStatEntryFormat     = "unable to stat %s: %v"
	errorRootNotDirectoryText  = "workspace root %s is not a directory"
	errorStatRootFormat        = "stat workspace root %s: %w"
)

// Matcher decides whether an entry is excluded from the cache.
type Matcher interface {
	ShouldIgnoreEntry(path string, isDirectory bool) bool
}

// BuildCache walks root depth-first and returns the descendant mapping. Ignored
// directories are pruned without being visited. A directory that cannot be read is
// reported through warn, recorded with an empty list, and its siblings are still scanned.
func BuildCache(root string, filter Matcher, warn func(string)) *Cache {
	cleanRoot := filepath.Clean(root)
	builder := newCacheBuilder(cleanRoot, filter, warn, map[string][]string{})
	builder.scanDirectory(cleanRoot)
	return NewCache(cleanRoot, builder.descendants)
}

type cacheBuilder struct {
	root        string
	filter      Matcher
	warn        func(string)
	descendants map[string][]string
}

func newCacheBuilder(root string, filter Matcher, warn func(string), descendants map[string][]string) *cacheBuilder {
	if warn == nil {
		warn = func(string) {}
	}
	return &cacheBuilder{root: root, filter: filter, warn: warn, descendants: descendants}
}

// scanDirectory records and returns the descendant files of directoryPath.
func (builder *cacheBuilder) scanDirectory(directoryPath string) []string {
	entries, readError := os.ReadDir(directoryPath)
	if readError != nil {
		builder.warn(fmt.Sprintf(warningReadDirectoryFormat, directoryPath, readError))
		builder.descendants[directoryPath] = []string{}
		return nil
	}
	collected := []string{}
	for _, entry := range entries {
		childPath := filepath.Join(directoryPath, entry.Name())
		kind := builder.classify(entry, childPath)
		if kind == entryKindOther || builder.filter.ShouldIgnoreEntry(childPath, kind == entryKindDirectory) {
			continue
		}
		if kind == entryKindDirectory {
			collected = append(collected, builder.scanDirectory(childPath)...)
			continue
		}
		collected = append(collected, childPath)
	}
	builder.descendants[directoryPath] = collected
	return collected
}

// collectDirectory recomputes directoryPath from its own listing, reusing cached
// lists of subdirectories and scanning any subdirectory the cache does not know yet.
func (builder *cacheBuilder) collectDirectory(directoryPath string) []string {
	entries, readError := os.ReadDir(directoryPath)
	if readError != nil {
		builder.warn(fmt.Sprintf(warningReadDirectoryFormat, directoryPath, readError))
		builder.descendants[directoryPath] = []string{}
		return nil
	}
	collected := []string{}
	for _, entry := range entries {
		childPath := filepath.Join(directoryPath, entry.Name())
		kind := builder.classify(entry, childPath)
		if kind == entryKindOther || builder.filter.ShouldIgnoreEntry(childPath, kind == entryKindDirectory) {
			continue
		}
		if kind == entryKindDirectory {
			childFiles, cached := builder.descendants[childPath]
			if !cached {
				childFiles = builder.scanDirectory(childPath)
			}
			collected = append(collected, childFiles...)
			continue
		}
		collected = append(collected, childPath)
	}
	builder.descendants[directoryPath] = collected
	return collected
}

type entryKind int

const (
	entryKindOther entryKind = iota
	entryKindFile
	entryKindDirectory
)

// classify resolves symlinks to regular files as files. Symlinked directories are not
// followed and special files are skipped.
func (builder *cacheBuilder) classify(entry fs.DirEntry, childPath string) entryKind {
	entryType := entry.Type()
	switch {
	case entryType.IsDir():
		return entryKindDirectory
	case entryType.IsRegular():
		return entryKindFile
	case entryType&fs.ModeSymlink != 0:
		targetInfo, statError := os.Stat(childPath)
		if statError != nil {
			builder.warn(fmt.Sprintf(warningStatEntryFormat, childPath, statError))
			return entryKindOther
		}
		if targetInfo.Mode().IsRegular() {
			return entryKindFile
		}
		return entryKindOther
	default:
		return entryKindOther
	}
}

// Scanner owns the descendant cache for one workspace root.
type Scanner struct {
	root   string
	filter Matcher
	logger *zap.Logger

	mutex sync.Mutex
	cache *Cache
}

// New constructs a Scanner. The cache is built lazily on first access.
func New(root string, filter Matcher, logger *zap.Logger) *Scanner {
	return &Scanner{
		root:   filepath.Clean(root),
		filter: filter,
		logger: utils.LoggerOrNop(logger),
	}
}

// Root returns the scanned workspace root.
func (scanner *Scanner) Root() string {
	return scanner.root
}

// Cache returns the current snapshot, building it first if needed.
func (scanner *Scanner) Cache() (*Cache, error) {
	scanner.mutex.Lock()
	defer scanner.mutex.Unlock()
	if scanner.cache != nil {
		return scanner.cache, nil
	}
	return scanner.rebuildLocked()
}

// Invalidate drops the snapshot; the next Cache call rebuilds it.
func (scanner *Scanner) Invalidate() {
	scanner.mutex.Lock()
	scanner.cache = nil
	scanner.mutex.Unlock()
}

// Rebuild performs a full scan and replaces the snapshot.
func (scanner *Scanner) Rebuild() (*Cache, error) {
	scanner.mutex.Lock()
	defer scanner.mutex.Unlock()
	return scanner.rebuildLocked()
}

// RebuildPath refreshes the cache after a create or delete of path. The nearest cached
// ancestor that still exists is rescanned, then every directory on the chain up to the
// root is recomputed. The result equals a full rebuild of the same tree.
func (scanner *Scanner) RebuildPath(path string) (*Cache, error) {
	scanner.mutex.Lock()
	defer scanner.mutex.Unlock()

	cleanPath := filepath.Clean(path)
	if !utils.IsWithinRoot(cleanPath, scanner.root) || (cleanPath != scanner.root && scanner.excludedLocked(cleanPath)) {
		return scanner.currentLocked()
	}
	if scanner.cache == nil || cleanPath == scanner.root {
		return scanner.rebuildLocked()
	}

	anchor := filepath.Dir(cleanPath)
	for anchor != scanner.root && !(scanner.cache.HasDirectory(anchor) && directoryExists(anchor)) {
		anchor = filepath.Dir(anchor)
	}
	if anchor == scanner.root {
		return scanner.rebuildLocked()
	}

	builder := newCacheBuilder(scanner.root, scanner.filter, scanner.warn, scanner.cache.withoutSubtree(anchor))
	builder.scanDirectory(anchor)
	for directory := filepath.Dir(anchor); ; directory = filepath.Dir(directory) {
		builder.collectDirectory(directory)
		if directory == scanner.root {
			break
		}
	}
	scanner.cache = NewCache(scanner.root, builder.descendants)
	scanner.logger.Debug("rebuilt cache branch", zap.String("directory", anchor), zap.Int("files", scanner.cache.FileCount()))
	return scanner.cache, nil
}

func (scanner *Scanner) currentLocked() (*Cache, error) {
	if scanner.cache != nil {
		return scanner.cache, nil
	}
	return scanner.rebuildLocked()
}

func (scanner *Scanner) rebuildLocked() (*Cache, error) {
	info, statError := os.Stat(scanner.root)
	if statError != nil {
		return nil, fmt.Errorf(errorStatRootFormat, scanner.root, statError)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf(errorRootNotDirectoryText, scanner.root)
	}
	scanner.cache = BuildCache(scanner.root, scanner.filter, scanner.warn)
	scanner.logger.Debug("built file cache", zap.String("root", scanner.root), zap.Int("files", scanner.cache.FileCount()))
	return scanner.cache, nil
}

func (scanner *Scanner) warn(message string) {
	scanner.logger.Warn(message)
}

// excludedLocked reports whether path lies under an ignored directory or is itself
// ignored whether it is a file or a directory; such events never change the cache.
func (scanner *Scanner) excludedLocked(path string) bool {
	for directory := filepath.Dir(path); directory != scanner.root && utils.IsWithinRoot(directory, scanner.root); directory = filepath.Dir(directory) {
		if scanner.filter.ShouldIgnoreEntry(directory, true) {
			return true
		}
	}
	return scanner.filter.ShouldIgnoreEntry(path, false) && scanner.filter.ShouldIgnoreEntry(path, true)
}

func directoryExists(path string) bool {
	info, statError := os.Stat(path)
	return statError == nil && info.IsDir()
}
