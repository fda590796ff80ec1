package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/impromptu/internal/workspace"
)

type nameMatcher map[string]bool

func (matcher nameMatcher) ShouldIgnoreEntry(path string, isDirectory bool) bool {
	return matcher[filepath.Base(path)]
}

const eventTimeout = 5 * time.Second

func waitForEvent(t *testing.T, events <-chan workspace.FileEvent, path string, kind workspace.FileEventKind) {
	t.Helper()
	deadline := time.After(eventTimeout)
	for {
		select {
		case event := <-events:
			if event.Path == path && event.Kind == kind {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event on %s", kind, path)
		}
	}
}

func startWatcher(t *testing.T, root string, matcher Matcher) (<-chan workspace.FileEvent, <-chan error) {
	t.Helper()
	watcher, err := New(root, matcher, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan workspace.FileEvent, 256)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx, func(event workspace.FileEvent) { events <- event })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return events, done
}

func TestWatcherReportsCreateChangeDelete(t *testing.T) {
	root := t.TempDir()
	events, _ := startWatcher(t, root, nameMatcher{})

	filePath := filepath.Join(root, "a.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("X"), 0o644))
	waitForEvent(t, events, filePath, workspace.FileCreated)

	require.NoError(t, os.WriteFile(filePath, []byte("XY"), 0o644))
	waitForEvent(t, events, filePath, workspace.FileChanged)

	require.NoError(t, os.Remove(filePath))
	waitForEvent(t, events, filePath, workspace.FileDeleted)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	events, _ := startWatcher(t, root, nameMatcher{})

	directory := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(directory, 0o755))
	waitForEvent(t, events, directory, workspace.FileCreated)

	nested := filepath.Join(directory, "b.txt")
	require.NoError(t, os.WriteFile(nested, []byte("Y"), 0o644))
	waitForEvent(t, events, nested, workspace.FileCreated)
}

func TestWatcherSkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "src"), 0o755))

	watcher, err := New(root, nameMatcher{"node_modules": true}, nil)
	require.NoError(t, err)
	defer watcher.Close()

	watched := strings.Join(watcher.watcher.WatchList(), "\n")
	assert.Contains(t, watched, filepath.Join(root, "src"))
	assert.NotContains(t, watched, "node_modules")
}

func TestWatcherStopsOnCancel(t *testing.T) {
	watcher, err := New(t.TempDir(), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, watcher.Run(ctx, func(workspace.FileEvent) {}))
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		operation fsnotify.Op
		kind      workspace.FileEventKind
	}{
		{operation: fsnotify.Create, kind: workspace.FileCreated},
		{operation: fsnotify.Remove, kind: workspace.FileDeleted},
		{operation: fsnotify.Rename, kind: workspace.FileDeleted},
		{operation: fsnotify.Write, kind: workspace.FileChanged},
		{operation: fsnotify.Chmod, kind: workspace.FileChanged},
	}
	for _, testCase := range testCases {
		kind, relevant := classify(testCase.operation)
		assert.True(t, relevant)
		assert.Equal(t, testCase.kind, kind, testCase.operation.String())
	}
}
