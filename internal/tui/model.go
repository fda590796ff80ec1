// Package tui is an interactive checkbox tree over a workspace's descendant cache.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/temirov/impromptu/internal/output"
	"github.com/temirov/impromptu/internal/scanner"
	"github.com/temirov/impromptu/internal/selection"
	"github.com/temirov/impromptu/internal/workspace"
)

const (
	refreshInterval = time.Second / 2

	markerSelected   = "[x]"
	markerUnselected = "[ ]"
	markerPartial    = "[~]"
	indentUnit       = "  "
	cursorMarker     = "> "
	noCursorMarker   = "  "
	directorySuffix  = "/"
	helpSeparator    = " • "
	emptyTreeMessage = "No files to show."

	generatedStatusFormat = "Wrote %s (%d files)"
	errorStatusFormat     = "Error: %v"
	chromeLines           = 5
)

// Host is the workspace surface the model drives.
type Host interface {
	Root() string
	Cache() (*scanner.Cache, error)
	Store() *selection.Store
	Generate(options workspace.GenerateOptions) (workspace.GenerateResult, error)
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6")).Bold(true)
	directoryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type tickMsg time.Time

type recountMsg struct {
	change selection.Change
	err    error
}

type generatedMsg struct {
	result workspace.GenerateResult
	err    error
}

// changeTracker keeps the latest size notification. The store invokes listeners
// while locked, so the model polls this instead of being sent messages.
type changeTracker struct {
	mutex  sync.Mutex
	latest selection.Change
}

func (tracker *changeTracker) record(change selection.Change) {
	tracker.mutex.Lock()
	tracker.latest = change
	tracker.mutex.Unlock()
}

func (tracker *changeTracker) current() selection.Change {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()
	return tracker.latest
}

type row struct {
	path        string
	name        string
	depth       int
	isDirectory bool
}

// Model is the bubbletea model for the selection tree.
type Model struct {
	host     Host
	keys     keyMap
	tracker  *changeTracker
	expanded map[string]bool

	rows   []row
	cursor int
	totals selection.Change
	status string
	err    error

	width    int
	height   int
	quitting bool
}

// NewModel builds a model over host and subscribes to its size notifications.
func NewModel(host Host) Model {
	tracker := &changeTracker{}
	host.Store().Subscribe(tracker.record)
	model := Model{
		host:     host,
		keys:     defaultKeyMap(),
		tracker:  tracker,
		expanded: map[string]bool{},
	}
	model.rebuildRows()
	return model
}

// Init starts the refresh ticker and an initial recount.
func (model Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), recountCmd(model.host.Store()))
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(moment time.Time) tea.Msg {
		return tickMsg(moment)
	})
}

func recountCmd(store *selection.Store) tea.Cmd {
	return func() tea.Msg {
		change, err := store.Recount()
		return recountMsg{change: change, err: err}
	}
}

func generateCmd(host Host) tea.Cmd {
	return func() tea.Msg {
		result, err := host.Generate(workspace.GenerateOptions{IncludeTree: true})
		return generatedMsg{result: result, err: err}
	}
}

// Update handles key presses, ticks and command results.
func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		model.width = msg.Width
		model.height = msg.Height
		return model, nil
	case tickMsg:
		model.rebuildRows()
		model.totals = model.tracker.current()
		return model, tickCmd()
	case recountMsg:
		model.err = msg.err
		if msg.err == nil {
			model.totals = msg.change
		}
		return model, nil
	case generatedMsg:
		if msg.err != nil {
			model.err = msg.err
			return model, nil
		}
		model.err = nil
		model.status = fmt.Sprintf(generatedStatusFormat, filepath.Base(msg.result.Path), msg.result.FileCount)
		return model, nil
	case tea.KeyMsg:
		return model.handleKey(msg)
	}
	return model, nil
}

func (model Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	store := model.host.Store()
	switch {
	case key.Matches(msg, model.keys.Quit):
		model.quitting = true
		return model, tea.Quit
	case key.Matches(msg, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}
	case key.Matches(msg, model.keys.Down):
		if model.cursor < len(model.rows)-1 {
			model.cursor++
		}
	case key.Matches(msg, model.keys.Expand):
		if current, ok := model.currentRow(); ok && current.isDirectory {
			model.expanded[current.path] = true
			model.rebuildRows()
		}
	case key.Matches(msg, model.keys.Collapse):
		model.collapse()
	case key.Matches(msg, model.keys.Toggle):
		if current, ok := model.currentRow(); ok {
			_, model.err = store.Toggle(current.path)
		}
	case key.Matches(msg, model.keys.SelectAll):
		_, model.err = store.SelectAll()
	case key.Matches(msg, model.keys.Clear):
		_, model.err = store.Clear()
	case key.Matches(msg, model.keys.Generate):
		model.status = ""
		return model, generateCmd(model.host)
	default:
		return model, nil
	}
	model.totals = model.tracker.current()
	return model, nil
}

func (model *Model) collapse() {
	current, ok := model.currentRow()
	if !ok {
		return
	}
	if current.isDirectory && model.expanded[current.path] {
		delete(model.expanded, current.path)
		model.rebuildRows()
		return
	}
	parent := filepath.Dir(current.path)
	for index, candidate := range model.rows {
		if candidate.path == parent {
			model.cursor = index
			return
		}
	}
}

func (model Model) currentRow() (row, bool) {
	if model.cursor < 0 || model.cursor >= len(model.rows) {
		return row{}, false
	}
	return model.rows[model.cursor], true
}

// rebuildRows flattens the expanded part of the cache, keeping the cursor on the same path.
func (model *Model) rebuildRows() {
	var selectedPath string
	if current, ok := model.currentRow(); ok {
		selectedPath = current.path
	}
	cache, cacheError := model.host.Cache()
	if cacheError != nil {
		model.err = cacheError
		return
	}
	model.rows = nil
	model.appendRows(cache, cache.Root(), 0)

	model.cursor = 0
	for index, candidate := range model.rows {
		if candidate.path == selectedPath {
			model.cursor = index
			break
		}
	}
}

func (model *Model) appendRows(cache *scanner.Cache, directory string, depth int) {
	directories, files := cache.Children(directory)
	for _, child := range directories {
		model.rows = append(model.rows, row{path: child, name: filepath.Base(child), depth: depth, isDirectory: true})
		if model.expanded[child] {
			model.appendRows(cache, child, depth+1)
		}
	}
	for _, child := range files {
		model.rows = append(model.rows, row{path: child, name: filepath.Base(child), depth: depth})
	}
}

func (model Model) marker(entry row) string {
	store := model.host.Store()
	if !entry.isDirectory {
		if store.IsSelected(entry.path) {
			return markerSelected
		}
		return markerUnselected
	}
	selectedCount, totalCount, coverageError := store.Coverage(entry.path)
	switch {
	case coverageError != nil || totalCount == 0 || selectedCount == 0:
		return markerUnselected
	case selectedCount == totalCount:
		return markerSelected
	default:
		return markerPartial
	}
}

// View renders the tree, the live size and the key help.
func (model Model) View() string {
	if model.quitting {
		return ""
	}
	var builder strings.Builder
	builder.WriteString(titleStyle.Render(filepath.Base(model.host.Root())+directorySuffix) + "\n\n")

	if len(model.rows) == 0 {
		builder.WriteString(emptyTreeMessage + "\n")
	}
	start, end := model.visibleRange()
	for index := start; index < end; index++ {
		builder.WriteString(model.renderRow(index) + "\n")
	}

	builder.WriteString("\n" + footerStyle.Render(output.FormatTotals(model.totals)) + "\n")
	if model.err != nil {
		builder.WriteString(errorStyle.Render(fmt.Sprintf(errorStatusFormat, model.err)) + "\n")
	} else if model.status != "" {
		builder.WriteString(model.status + "\n")
	}
	builder.WriteString(helpStyle.Render(model.helpLine()))
	return builder.String()
}

func (model Model) renderRow(index int) string {
	entry := model.rows[index]
	name := entry.name
	if entry.isDirectory {
		name = directoryStyle.Render(name + directorySuffix)
	}
	line := strings.Repeat(indentUnit, entry.depth) + model.marker(entry) + " " + name
	if index == model.cursor {
		return cursorMarker + cursorStyle.Render(line)
	}
	return noCursorMarker + line
}

func (model Model) visibleRange() (int, int) {
	total := len(model.rows)
	available := model.height - chromeLines
	if model.height <= 0 || available <= 0 || total <= available {
		return 0, total
	}
	start := model.cursor - available/2
	if start < 0 {
		start = 0
	}
	if start+available > total {
		start = total - available
	}
	return start, start + available
}

func (model Model) helpLine() string {
	bindings := model.keys.helpBindings()
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, helpSeparator)
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(host Host, options ...tea.ProgramOption) error {
	_, err := tea.NewProgram(NewModel(host), options...).Run()
	return err
}
