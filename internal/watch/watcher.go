// Package watch turns fsnotify notifications under a workspace root into workspace file events.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/temirov/impromptu/internal/utils"
	"github.com/temirov/impromptu/internal/workspace"
)

const (
	errorCreateWatcherFormat = "creating file watcher: %w"
	errorWatchRootFormat     = "watching %s: %w"

	warningWalkMessage     = "unable to walk directory for watching"
	warningAddWatchMessage = "adding directory to watcher"
	warningWatcherMessage  = "watcher error"
	debugWatchingMessage   = "watching directories"
	debugEventMessage      = "filesystem event"
	debugIgnoredDirectory  = "not watching ignored directory"
)

// Matcher reports whether an entry is excluded from the workspace.
type Matcher interface {
	ShouldIgnoreEntry(path string, isDirectory bool) bool
}

// Watcher watches every non-ignored directory under a root.
type Watcher struct {
	root    string
	filter  Matcher
	logger  *zap.Logger
	watcher *fsnotify.Watcher
}

// New creates the fsnotify watcher and registers the root and every non-ignored
// directory below it. Events are delivered by Run.
func New(root string, filter Matcher, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, createError := fsnotify.NewWatcher()
	if createError != nil {
		return nil, fmt.Errorf(errorCreateWatcherFormat, createError)
	}
	watcher := &Watcher{
		root:    filepath.Clean(root),
		filter:  filter,
		logger:  utils.LoggerOrNop(logger),
		watcher: fsWatcher,
	}
	if addError := fsWatcher.Add(watcher.root); addError != nil {
		_ = fsWatcher.Close()
		return nil, fmt.Errorf(errorWatchRootFormat, watcher.root, addError)
	}
	watcher.addTree(watcher.root)
	watcher.logger.Debug(debugWatchingMessage, zap.Int("directories", len(fsWatcher.WatchList())))
	return watcher, nil
}

// Run delivers events to handler until ctx is cancelled, then closes the watcher.
func (watcher *Watcher) Run(ctx context.Context, handler func(workspace.FileEvent)) error {
	defer watcher.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.watcher.Events:
			if !ok {
				return nil
			}
			watcher.handle(event, handler)
		case watchError, ok := <-watcher.watcher.Errors:
			if !ok {
				return nil
			}
			watcher.logger.Warn(warningWatcherMessage, zap.Error(watchError))
		}
	}
}

// Close stops watching without running the loop.
func (watcher *Watcher) Close() error {
	return watcher.watcher.Close()
}

func (watcher *Watcher) handle(event fsnotify.Event, handler func(workspace.FileEvent)) {
	path := filepath.Clean(event.Name)
	kind, relevant := classify(event.Op)
	if !relevant {
		return
	}
	watcher.logger.Debug(debugEventMessage, zap.String("path", path), zap.Stringer("kind", kind))
	if kind == workspace.FileCreated {
		if info, statError := os.Stat(path); statError == nil && info.IsDir() {
			watcher.addTree(path)
		}
	}
	handler(workspace.FileEvent{Path: path, Kind: kind})
}

func classify(operation fsnotify.Op) (workspace.FileEventKind, bool) {
	switch {
	case operation.Has(fsnotify.Create):
		return workspace.FileCreated, true
	case operation.Has(fsnotify.Remove), operation.Has(fsnotify.Rename):
		return workspace.FileDeleted, true
	case operation.Has(fsnotify.Write), operation.Has(fsnotify.Chmod):
		return workspace.FileChanged, true
	default:
		return workspace.FileChanged, false
	}
}

// addTree registers directory and its non-ignored subdirectories. Unreadable
// subdirectories are logged and skipped.
func (watcher *Watcher) addTree(directory string) {
	_ = filepath.WalkDir(directory, func(path string, entry fs.DirEntry, walkError error) error {
		if walkError != nil {
			watcher.logger.Warn(warningWalkMessage, zap.String("path", path), zap.Error(walkError))
			if entry != nil && entry.IsDir() && path != directory {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != watcher.root && watcher.filter != nil && watcher.filter.ShouldIgnoreEntry(path, true) {
			watcher.logger.Debug(debugIgnoredDirectory, zap.String("path", path))
			return filepath.SkipDir
		}
		if path == watcher.root {
			return nil
		}
		if addError := watcher.watcher.Add(path); addError != nil {
			watcher.logger.Warn(warningAddWatchMessage, zap.String("path", path), zap.Error(addError))
		}
		return nil
	})
}
