// Package selection holds the set of selected workspace files and the cascading
// folder operations over it. Folder state is never stored: a folder reads as selected
// only when it has descendant files and every one of them is selected.
package selection

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/impromptu/internal/scanner"
	"github.com/temirov/impromptu/internal/utils"
)

const (
	errorMissingCacheSource = "selection store requires a cache source"
	errorLoadSelectionText  = "load persisted selection: %w"
	errorSaveSelectionText  = "persist selection: %w"
	errorResolveCacheText   = "resolve file cache: %w"
	errorPathFormat         = "%w: %s"
)

// Options configures a Store.
type Options struct {
	Cache     CacheSource
	Persister Persister
	Measurer  Measurer
	Logger    *zap.Logger
}

// Store is the SelectionStore. Every mutation persists the new set, measures it and
// notifies listeners before the lock is released, so observers only see complete states.
type Store struct {
	cacheSource CacheSource
	persister   Persister
	measurer    Measurer
	logger      *zap.Logger

	mutex     sync.Mutex
	selected  map[string]struct{}
	listeners []Listener
}

// NewStore restores the persisted selection. Stale entries are kept until the next read.
func NewStore(options Options) (*Store, error) {
	if options.Cache == nil {
		return nil, errors.New(errorMissingCacheSource)
	}
	store := &Store{
		cacheSource: options.Cache,
		persister:   options.Persister,
		measurer:    options.Measurer,
		logger:      utils.LoggerOrNop(options.Logger),
		selected:    map[string]struct{}{},
	}
	if store.persister != nil {
		persisted, loadError := store.persister.Load()
		if loadError != nil {
			return nil, fmt.Errorf(errorLoadSelectionText, loadError)
		}
		for _, path := range persisted {
			if path == "" {
				continue
			}
			store.selected[filepath.Clean(path)] = struct{}{}
		}
	}
	return store, nil
}

// Subscribe registers listener for Change notifications.
func (store *Store) Subscribe(listener Listener) {
	if listener == nil {
		return
	}
	store.mutex.Lock()
	store.listeners = append(store.listeners, listener)
	store.mutex.Unlock()
}

// SetFileState selects or unselects one file. Selecting a path the cache does not know
// as a file fails with ErrUnknownFile; unselecting an unselected path is a no-op.
func (store *Store) SetFileState(path string, selected bool) (bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	cache, cacheError := store.currentCache()
	if cacheError != nil {
		return false, cacheError
	}
	return store.setFileStateLocked(cache, filepath.Clean(path), selected)
}

// SetFolderState cascades a folder toggle to its cached descendants. Unselecting only
// proceeds when every descendant is currently selected; a partially selected folder is
// left untouched so a redraw of its unchecked box cannot wipe the user's partial choice.
func (store *Store) SetFolderState(folder string, selected bool) (bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	cache, cacheError := store.currentCache()
	if cacheError != nil {
		return false, cacheError
	}
	return store.setFolderStateLocked(cache, filepath.Clean(folder), selected)
}

// Toggle flips a file, or selects a folder unless it is already fully selected, in
// which case the folder is unselected.
func (store *Store) Toggle(path string) (bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	cache, cacheError := store.currentCache()
	if cacheError != nil {
		return false, cacheError
	}
	cleanPath := filepath.Clean(path)
	_, isSelected := store.selected[cleanPath]
	switch {
	case cache.IsKnownFile(cleanPath):
		return store.setFileStateLocked(cache, cleanPath, !isSelected)
	case cache.HasDirectory(cleanPath):
		descendants, _ := cache.Descendants(cleanPath)
		return store.setFolderStateLocked(cache, cleanPath, !store.allSelectedLocked(descendants))
	case isSelected:
		return store.setFileStateLocked(cache, cleanPath, false)
	default:
		return false, fmt.Errorf(errorPathFormat, ErrUnknownFile, cleanPath)
	}
}

// SelectAll adds every known file.
func (store *Store) SelectAll() (bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	cache, cacheError := store.currentCache()
	if cacheError != nil {
		return false, cacheError
	}
	next := store.cloneLocked()
	added := 0
	for _, file := range cache.AllFiles() {
		if _, present := next[file]; !present {
			next[file] = struct{}{}
			added++
		}
	}
	if added == 0 {
		return false, nil
	}
	return true, store.commitLocked(cache, next)
}

// Clear empties the selection. It reports false when nothing was selected.
func (store *Store) Clear() (bool, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if len(store.selected) == 0 {
		return false, nil
	}
	cache, cacheError := store.currentCache()
	if cacheError != nil {
		return false, cacheError
	}
	return true, store.commitLocked(cache, map[string]struct{}{})
}

// AddPaths resolves each path to its files (a file itself, a directory its cached
// descendants) and selects those not yet selected. Ignored or unknown paths are skipped.
func (store *Store) AddPaths(paths []string) (AddResult, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	cache, cacheError := store.currentCache()
	if cacheError != nil {
		return AddResult{}, cacheError
	}
	var result AddResult
	next := store.cloneLocked()
	seen := map[string]struct{}{}
	for _, path := range paths {
		cleanPath := filepath.Clean(path)
		var files []string
		if cache.IsKnownFile(cleanPath) {
			files = []string{cleanPath}
		} else if descendants, found := cache.Descendants(cleanPath); found {
			files = descendants
		} else {
			result.Skipped++
			continue
		}
		for _, file := range files {
			if _, duplicate := seen[file]; duplicate {
				continue
			}
			seen[file] = struct{}{}
			if _, present := next[file]; present {
				result.AlreadyPresent++
				continue
			}
			next[file] = struct{}{}
			result.Added++
		}
	}
	if result.Added == 0 {
		return result, nil
	}
	return result, store.commitLocked(cache, next)
}

// SelectedFiles returns the selection in cache order after pruning identifiers that are
// no longer known files. Pruning is persisted but not announced.
func (store *Store) SelectedFiles() ([]string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	cache, cacheError := store.currentCache()
	if cacheError != nil {
		return nil, cacheError
	}
	ordered := store.orderedLocked(cache)
	if len(ordered) != len(store.selected) {
		pruned := make(map[string]struct{}, len(ordered))
		for _, file := range ordered {
			pruned[file] = struct{}{}
		}
		store.logger.Debug("pruned stale selection entries", zap.Int("removed", len(store.selected)-len(ordered)))
		if saveError := store.persistLocked(pruned); saveError != nil {
			store.logger.Warn("failed to persist pruned selection", zap.Error(saveError))
		}
		store.selected = pruned
	}
	return ordered, nil
}

// IsSelected reports whether path is in the selection set.
func (store *Store) IsSelected(path string) bool {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	_, selected := store.selected[filepath.Clean(path)]
	return selected
}

// IsFolderSelected reports the derived folder state.
func (store *Store) IsFolderSelected(folder string) (bool, error) {
	selectedCount, total, coverageError := store.Coverage(folder)
	if coverageError != nil {
		return false, coverageError
	}
	return total > 0 && selectedCount == total, nil
}

// Coverage returns how many of the folder's descendant files are selected.
func (store *Store) Coverage(folder string) (int, int, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	cache, cacheError := store.currentCache()
	if cacheError != nil {
		return 0, 0, cacheError
	}
	cleanFolder := filepath.Clean(folder)
	descendants, found := cache.Descendants(cleanFolder)
	if !found {
		return 0, 0, fmt.Errorf(errorPathFormat, ErrUnknownDirectory, cleanFolder)
	}
	selectedCount := 0
	for _, file := range descendants {
		if _, selected := store.selected[file]; selected {
			selectedCount++
		}
	}
	return selectedCount, len(descendants), nil
}

// Len returns the number of stored identifiers, including stale ones not yet pruned.
func (store *Store) Len() int {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return len(store.selected)
}

// Recount re-measures the current selection and notifies listeners without mutating it.
func (store *Store) Recount() (Change, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	cache, cacheError := store.currentCache()
	if cacheError != nil {
		return Change{}, cacheError
	}
	return store.notifyLocked(cache)
}

func (store *Store) setFileStateLocked(cache *scanner.Cache, path string, selected bool) (bool, error) {
	_, present := store.selected[path]
	if selected {
		if !cache.IsKnownFile(path) {
			return false, fmt.Errorf(errorPathFormat, ErrUnknownFile, path)
		}
		if present {
			return false, nil
		}
		next := store.cloneLocked()
		next[path] = struct{}{}
		return true, store.commitLocked(cache, next)
	}
	if !present {
		return false, nil
	}
	next := store.cloneLocked()
	delete(next, path)
	return true, store.commitLocked(cache, next)
}

func (store *Store) setFolderStateLocked(cache *scanner.Cache, folder string, selected bool) (bool, error) {
	descendants, found := cache.Descendants(folder)
	if !found {
		return false, fmt.Errorf(errorPathFormat, ErrUnknownDirectory, folder)
	}
	if len(descendants) == 0 {
		return false, nil
	}
	if !selected && !store.allSelectedLocked(descendants) {
		store.logger.Debug("ignored unselect of partially selected folder", zap.String("folder", folder))
		return false, nil
	}
	next := store.cloneLocked()
	changed := false
	for _, file := range descendants {
		_, present := next[file]
		if selected && !present {
			next[file] = struct{}{}
			changed = true
		} else if !selected && present {
			delete(next, file)
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	return true, store.commitLocked(cache, next)
}

func (store *Store) allSelectedLocked(files []string) bool {
	if len(files) == 0 {
		return false
	}
	for _, file := range files {
		if _, selected := store.selected[file]; !selected {
			return false
		}
	}
	return true
}

// commitLocked persists next, installs it and notifies. On a persistence failure the
// previous set stays in place.
func (store *Store) commitLocked(cache *scanner.Cache, next map[string]struct{}) error {
	if saveError := store.persistLocked(next); saveError != nil {
		return saveError
	}
	store.selected = next
	_, _ = store.notifyLocked(cache)
	return nil
}

func (store *Store) persistLocked(set map[string]struct{}) error {
	if store.persister == nil {
		return nil
	}
	paths := make([]string, 0, len(set))
	for path := range set {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	if saveError := store.persister.Save(paths); saveError != nil {
		return fmt.Errorf(errorSaveSelectionText, saveError)
	}
	return nil
}

func (store *Store) notifyLocked(cache *scanner.Cache) (Change, error) {
	ordered := store.orderedLocked(cache)
	change := Change{Files: len(ordered)}
	var measureError error
	if store.measurer != nil {
		totals, err := store.measurer.Measure(ordered)
		if err != nil {
			measureError = err
			store.logger.Warn("failed to measure selection", zap.Error(err))
		} else {
			change.Characters = totals.Characters
			change.Tokens = totals.Tokens
			change.TokensCounted = totals.TokensCounted
		}
	}
	for _, listener := range store.listeners {
		listener(change)
	}
	return change, measureError
}

func (store *Store) orderedLocked(cache *scanner.Cache) []string {
	ordered := make([]string, 0, len(store.selected))
	for _, file := range cache.AllFiles() {
		if _, selected := store.selected[file]; selected {
			ordered = append(ordered, file)
		}
	}
	return ordered
}

func (store *Store) cloneLocked() map[string]struct{} {
	cloned := make(map[string]struct{}, len(store.selected)+1)
	for path := range store.selected {
		cloned[path] = struct{}{}
	}
	return cloned
}

func (store *Store) currentCache() (*scanner.Cache, error) {
	cache, cacheError := store.cacheSource.Cache()
	if cacheError != nil {
		return nil, fmt.Errorf(errorResolveCacheText, cacheError)
	}
	return cache, nil
}
