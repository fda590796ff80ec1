package storage

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/temirov/impromptu/internal/utils"
)

// SelectionPrefix namespaces persisted selections in the state database.
const SelectionPrefix = "selection"

// SelectionPersister stores one workspace's selected file list, keyed by the workspace root.
type SelectionPersister struct {
	store *BadgerStore
	root  string
}

// NewSelectionPersister returns a persister for the workspace at root. An existing root
// is keyed by its symlink-resolved path.
func NewSelectionPersister(store *BadgerStore, root string) *SelectionPersister {
	key := filepath.Clean(root)
	if resolvedRoot, resolveError := utils.CanonicalRoot(root); resolveError == nil {
		key = resolvedRoot
	}
	return &SelectionPersister{store: store, root: key}
}

// Load returns the persisted list, or nil when nothing was saved for the workspace.
func (persister *SelectionPersister) Load() ([]string, error) {
	var paths []string
	found, err := persister.store.Get(persister.root, &paths)
	if err != nil {
		return nil, fmt.Errorf("load selection for %s: %w", persister.root, err)
	}
	if !found {
		return nil, nil
	}
	return paths, nil
}

// Save replaces the persisted list.
func (persister *SelectionPersister) Save(paths []string) error {
	if paths == nil {
		paths = []string{}
	}
	if err := persister.store.Put(persister.root, paths); err != nil {
		return fmt.Errorf("save selection for %s: %w", persister.root, err)
	}
	return nil
}

// Forget removes the persisted list for the workspace.
func (persister *SelectionPersister) Forget() error {
	if err := persister.store.Delete(persister.root); err != nil {
		return fmt.Errorf("forget selection for %s: %w", persister.root, err)
	}
	return nil
}

// SavedSelectionRoots lists the workspace roots with a persisted selection, sorted.
func SavedSelectionRoots(store *BadgerStore) ([]string, error) {
	roots, err := store.Keys()
	if err != nil {
		return nil, err
	}
	sort.Strings(roots)
	return roots, nil
}
