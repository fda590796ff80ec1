package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/impromptu/internal/workspace"
)

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	root := filepath.Join(t.TempDir(), "proj")
	files := map[string]string{
		"a.txt":       "X",
		"sub/b.txt":   "Y",
		"sub/c.txt":   "Z",
		".prepend.md": "",
		".append.md":  "",
	}
	for relativePath, content := range files {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		require.NoError(t, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(t, os.WriteFile(absolutePath, []byte(content), 0o644))
	}
	opened, err := workspace.Open(workspace.Options{Root: root})
	require.NoError(t, err)
	return opened
}

func press(t *testing.T, model Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	var command tea.Cmd
	for _, keyMsg := range keys {
		updated, nextCommand := model.Update(keyMsg)
		next, ok := updated.(Model)
		require.True(t, ok)
		model = next
		command = nextCommand
	}
	return model, command
}

func runeKey(value string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(value)}
}

var spaceKey = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}

func rowPaths(model Model) []string {
	paths := make([]string, 0, len(model.rows))
	for _, entry := range model.rows {
		paths = append(paths, relativeRowPath(model, entry.path))
	}
	return paths
}

func relativeRowPath(model Model, path string) string {
	relativePath, _ := filepath.Rel(model.host.Root(), path)
	return filepath.ToSlash(relativePath)
}

func TestModelExpandsAndCollapsesDirectories(t *testing.T) {
	model := NewModel(newTestWorkspace(t))
	assert.Equal(t, []string{"sub", "a.txt"}, rowPaths(model))

	model, _ = press(t, model, runeKey("l"))
	assert.Equal(t, []string{"sub", "sub/b.txt", "sub/c.txt", "a.txt"}, rowPaths(model))

	model, _ = press(t, model, runeKey("j"), runeKey("j"), runeKey("h"))
	assert.Equal(t, 0, model.cursor)

	model, _ = press(t, model, runeKey("h"))
	assert.Equal(t, []string{"sub", "a.txt"}, rowPaths(model))
}

func TestModelTogglesWithPartialMarker(t *testing.T) {
	host := newTestWorkspace(t)
	model := NewModel(host)
	store := host.Store()
	bPath := filepath.Join(host.Root(), "sub", "b.txt")
	cPath := filepath.Join(host.Root(), "sub", "c.txt")

	model, _ = press(t, model, runeKey("l"), runeKey("j"), spaceKey)
	assert.True(t, store.IsSelected(bPath))
	assert.Contains(t, model.View(), markerPartial+" sub/")

	model, _ = press(t, model, runeKey("k"), spaceKey)
	assert.True(t, store.IsSelected(cPath))
	assert.Contains(t, model.View(), markerSelected+" sub/")

	model, _ = press(t, model, spaceKey)
	assert.False(t, store.IsSelected(bPath))
	assert.False(t, store.IsSelected(cPath))
	assert.Contains(t, model.View(), markerUnselected+" sub/")
}

func TestModelSelectAllClearAndFooter(t *testing.T) {
	host := newTestWorkspace(t)
	model := NewModel(host)

	model, _ = press(t, model, runeKey("a"))
	assert.Equal(t, 3, host.Store().Len())
	assert.Equal(t, 3, model.totals.Files)
	assert.Positive(t, model.totals.Characters)
	assert.Contains(t, model.View(), "characters")

	model, _ = press(t, model, runeKey("c"))
	assert.Zero(t, host.Store().Len())
	assert.Zero(t, model.totals.Files)
}

func TestModelGenerateReportsArtifact(t *testing.T) {
	host := newTestWorkspace(t)
	model := NewModel(host)

	model, _ = press(t, model, runeKey("a"))
	model, command := press(t, model, runeKey("g"))
	require.NotNil(t, command)

	updated, _ := model.Update(command())
	model = updated.(Model)
	require.NoError(t, model.err)
	assert.True(t, strings.HasPrefix(model.status, "Wrote impromptu_prompt_"))

	entries, err := os.ReadDir(host.Root())
	require.NoError(t, err)
	found := false
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "impromptu_prompt_") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestModelGenerateWithEmptySelectionShowsError(t *testing.T) {
	model := NewModel(newTestWorkspace(t))
	model, command := press(t, model, runeKey("g"))
	updated, _ := model.Update(command())
	model = updated.(Model)
	assert.ErrorIs(t, model.err, workspace.ErrEmptySelection)
	assert.Contains(t, model.View(), "no files selected")
}

func TestModelQuits(t *testing.T) {
	model := NewModel(newTestWorkspace(t))
	model, command := press(t, model, runeKey("q"))
	require.NotNil(t, command)
	assert.IsType(t, tea.QuitMsg{}, command())
	assert.Empty(t, model.View())
}

func TestVisibleRangeFollowsCursor(t *testing.T) {
	model := Model{rows: make([]row, 20), height: chromeLines + 4, cursor: 10}
	start, end := model.visibleRange()
	assert.Equal(t, 4, end-start)
	assert.True(t, start <= 10 && 10 < end)
}
