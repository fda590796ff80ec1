// Package workspace ties the ignore filter, scanner, selection store and assembler
// together for one root directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/impromptu/internal/assemble"
	"github.com/temirov/impromptu/internal/boundary"
	"github.com/temirov/impromptu/internal/ignore"
	"github.com/temirov/impromptu/internal/output"
	"github.com/temirov/impromptu/internal/scanner"
	"github.com/temirov/impromptu/internal/selection"
	"github.com/temirov/impromptu/internal/tokenizer"
	"github.com/temirov/impromptu/internal/utils"
)

// ErrEmptySelection is returned by Generate when no file is selected.
var ErrEmptySelection = errors.New("no files selected")

const (
	errorResolveRootFormat      = "resolve workspace root: %w"
	errorRootNotDirectoryFormat = "workspace root %s is not a directory"
	errorInitializeFilterFormat = "initialize ignore rules: %w"
	errorCreateAssemblerFormat  = "create assembler: %w"
	errorCreateStoreFormat      = "restore selection: %w"
	errorReadSelectionFormat    = "read selection: %w"
	errorLoadBoundaryFormat     = "load boundary files: %w"
	errorAssembleFormat         = "assemble prompt: %w"
	errorWriteFormat            = "write prompt: %w"
	errorRebuildCacheFormat     = "rebuild workspace cache: %w"

	warningClipboardMessage = "unable to copy prompt to clipboard"
	warningClipboardFormat  = "clipboard copy failed: %v"
)

// Options configures Open.
type Options struct {
	Root      string
	Logger    *zap.Logger
	Persister selection.Persister
	// Formatting defaults to assemble.DefaultFormattingConfig when its template is empty.
	Formatting       assemble.FormattingConfig
	ExcludePatterns  []string
	DisableGitignore bool
	// IncludeTree makes size notifications account for the tree diagram.
	IncludeTree bool
	Counter     tokenizer.Counter
	Concurrency int
	Copier      output.Copier
}

// GenerateOptions controls one Generate call.
type GenerateOptions struct {
	IncludeTree bool
	Suffix      string
	Copy        bool
	// Now stamps the artifact name. Defaults to time.Now.
	Now func() time.Time
}

// GenerateResult describes a written prompt.
type GenerateResult struct {
	Path      string
	Document  assemble.Document
	FileCount int
	Copied    bool
	Warnings  []string
}

// Workspace owns the mutable state for one root.
type Workspace struct {
	root        string
	logger      *zap.Logger
	formatting  assemble.FormattingConfig
	includeTree bool
	copier      output.Copier

	filter    *ignore.Filter
	scanner   *scanner.Scanner
	assembler *assemble.Assembler
	boundary  boundary.Files
	store     *selection.Store

	mutex sync.Mutex
}

// Open validates the formatting configuration, loads the ignore rules and restores the
// persisted selection. The descendant cache is built lazily on first use.
func Open(options Options) (*Workspace, error) {
	formatting := options.Formatting
	if formatting.FileContentTemplate == utils.EmptyString {
		formatting.FileContentTemplate = assemble.DefaultFileContentTemplate
	}
	if validationError := formatting.Validate(); validationError != nil {
		return nil, validationError
	}

	root, rootError := utils.CanonicalRoot(options.Root)
	if rootError != nil {
		return nil, fmt.Errorf(errorResolveRootFormat, rootError)
	}
	info, statError := os.Stat(root)
	if statError != nil {
		return nil, fmt.Errorf(errorResolveRootFormat, statError)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf(errorRootNotDirectoryFormat, root)
	}

	logger := utils.LoggerOrNop(options.Logger)
	workspace := &Workspace{
		root:        root,
		logger:      logger,
		formatting:  formatting,
		includeTree: options.IncludeTree,
		copier:      options.Copier,
		boundary:    boundary.Files{Root: root, Logger: logger},
	}

	workspace.filter = ignore.NewFilter(root, ignore.Options{
		Logger:             logger,
		AdditionalPatterns: options.ExcludePatterns,
		DisableGitignore:   options.DisableGitignore,
	})
	if initializeError := workspace.filter.Initialize(); initializeError != nil {
		return nil, fmt.Errorf(errorInitializeFilterFormat, initializeError)
	}
	workspace.scanner = scanner.New(root, workspace.filter, logger)

	assembler, assemblerError := assemble.NewAssembler(root, assemble.Options{
		Logger:      logger,
		Concurrency: options.Concurrency,
		Counter:     options.Counter,
	})
	if assemblerError != nil {
		return nil, fmt.Errorf(errorCreateAssemblerFormat, assemblerError)
	}
	workspace.assembler = assembler

	store, storeError := selection.NewStore(selection.Options{
		Cache:     workspace.scanner,
		Persister: options.Persister,
		Measurer:  selection.MeasurerFunc(workspace.measure),
		Logger:    logger,
	})
	if storeError != nil {
		return nil, fmt.Errorf(errorCreateStoreFormat, storeError)
	}
	workspace.store = store
	return workspace, nil
}

// Root returns the canonical workspace root.
func (workspace *Workspace) Root() string {
	return workspace.root
}

// Store returns the selection store.
func (workspace *Workspace) Store() *selection.Store {
	return workspace.store
}

// Cache returns the current descendant cache, building it when needed.
func (workspace *Workspace) Cache() (*scanner.Cache, error) {
	return workspace.scanner.Cache()
}

// Filter returns the ignore filter.
func (workspace *Workspace) Filter() *ignore.Filter {
	return workspace.filter
}

// BoundaryFiles returns the prepend and append file locator.
func (workspace *Workspace) BoundaryFiles() boundary.Files {
	return workspace.boundary
}

// ResolvePath turns a user-supplied path into a workspace identifier. Relative paths
// are taken relative to the root.
func (workspace *Workspace) ResolvePath(path string) string {
	return utils.ResolveWorkspacePath(workspace.root, path)
}

// Refresh reloads the ignore rules and rebuilds the cache from scratch.
func (workspace *Workspace) Refresh() error {
	workspace.mutex.Lock()
	defer workspace.mutex.Unlock()
	return workspace.refreshLocked()
}

func (workspace *Workspace) refreshLocked() error {
	if initializeError := workspace.filter.Initialize(); initializeError != nil {
		return fmt.Errorf(errorInitializeFilterFormat, initializeError)
	}
	workspace.scanner.Invalidate()
	if _, rebuildError := workspace.scanner.Rebuild(); rebuildError != nil {
		return fmt.Errorf(errorRebuildCacheFormat, rebuildError)
	}
	workspace.assembler.Purge()
	_, recountError := workspace.store.Recount()
	return recountError
}

// HandleFileEvent applies one filesystem notification. Creating or deleting the root
// .gitignore reloads everything; other creates and deletes rebuild the affected part of
// the cache; a change to a selected or boundary file only triggers a recount.
func (workspace *Workspace) HandleFileEvent(event FileEvent) error {
	path := filepath.Clean(event.Path)
	if !utils.IsWithinRoot(path, workspace.root) || path == workspace.root {
		return nil
	}
	workspace.mutex.Lock()
	defer workspace.mutex.Unlock()

	switch event.Kind {
	case FileCreated, FileDeleted:
		if path == filepath.Join(workspace.root, utils.GitIgnoreFileName) {
			return workspace.refreshLocked()
		}
		workspace.assembler.Evict(path)
		if workspace.boundary.IsBoundaryPath(path) {
			_, recountError := workspace.store.Recount()
			return recountError
		}
		if event.Kind == FileCreated && workspace.filter.ShouldIgnore(path) {
			return nil
		}
		if _, rebuildError := workspace.scanner.RebuildPath(path); rebuildError != nil {
			return fmt.Errorf(errorRebuildCacheFormat, rebuildError)
		}
		_, recountError := workspace.store.Recount()
		return recountError
	case FileChanged:
		if !workspace.IsRelevantToSelection(path) {
			return nil
		}
		workspace.assembler.Evict(path)
		_, recountError := workspace.store.Recount()
		return recountError
	default:
		return nil
	}
}

// IsRelevantToSelection reports whether a content change at path alters the prompt size.
func (workspace *Workspace) IsRelevantToSelection(path string) bool {
	return workspace.boundary.IsBoundaryPath(path) || workspace.store.IsSelected(path)
}

// Estimate recounts the current selection and notifies subscribers.
func (workspace *Workspace) Estimate() (selection.Change, error) {
	return workspace.store.Recount()
}

// Tree renders the selected files as an ASCII tree.
func (workspace *Workspace) Tree() (string, error) {
	selectedFiles, selectionError := workspace.store.SelectedFiles()
	if selectionError != nil {
		return utils.EmptyString, fmt.Errorf(errorReadSelectionFormat, selectionError)
	}
	return output.RenderTree(selectedFiles, workspace.root), nil
}

// Generate assembles the selected files, writes the artifact at the root and optionally
// copies the document to the clipboard. Clipboard failures are reported as warnings.
func (workspace *Workspace) Generate(options GenerateOptions) (GenerateResult, error) {
	workspace.mutex.Lock()
	defer workspace.mutex.Unlock()

	selectedFiles, selectionError := workspace.store.SelectedFiles()
	if selectionError != nil {
		return GenerateResult{}, fmt.Errorf(errorReadSelectionFormat, selectionError)
	}
	if len(selectedFiles) == 0 {
		return GenerateResult{}, ErrEmptySelection
	}
	boundaryContent, boundaryError := workspace.boundary.Load()
	if boundaryError != nil {
		return GenerateResult{}, fmt.Errorf(errorLoadBoundaryFormat, boundaryError)
	}
	document, assembleError := workspace.assembler.Assemble(assemble.Request{
		Files:       selectedFiles,
		Boundary:    boundaryContent,
		Formatting:  workspace.formatting,
		IncludeTree: options.IncludeTree,
		Suffix:      options.Suffix,
	})
	if assembleError != nil {
		return GenerateResult{}, fmt.Errorf(errorAssembleFormat, assembleError)
	}

	now := time.Now
	if options.Now != nil {
		now = options.Now
	}
	artifactPath, writeError := output.WriteArtifact(workspace.root, document.Text, now())
	if writeError != nil {
		return GenerateResult{}, fmt.Errorf(errorWriteFormat, writeError)
	}

	result := GenerateResult{
		Path:      artifactPath,
		Document:  document,
		FileCount: len(selectedFiles),
		Warnings:  append([]string(nil), document.Warnings...),
	}
	if options.Copy {
		workspace.copyToClipboard(document.Text, &result)
	}
	return result, nil
}

func (workspace *Workspace) copyToClipboard(text string, result *GenerateResult) {
	copier := workspace.copier
	if copier == nil {
		copier = output.NewClipboardPublisher()
	}
	if copyError := copier.Copy(text); copyError != nil {
		workspace.logger.Warn(warningClipboardMessage, zap.Error(copyError))
		result.Warnings = append(result.Warnings, fmt.Sprintf(warningClipboardFormat, copyError))
		return
	}
	result.Copied = true
}

// measure feeds the store's size notifications with the assembler's estimate.
func (workspace *Workspace) measure(selectedFiles []string) (selection.Totals, error) {
	boundaryContent, boundaryError := workspace.boundary.Load()
	if boundaryError != nil {
		return selection.Totals{}, fmt.Errorf(errorLoadBoundaryFormat, boundaryError)
	}
	estimate, estimateError := workspace.assembler.Estimate(assemble.Request{
		Files:       selectedFiles,
		Boundary:    boundaryContent,
		Formatting:  workspace.formatting,
		IncludeTree: workspace.includeTree,
	})
	if estimateError != nil {
		return selection.Totals{}, estimateError
	}
	return selection.Totals{
		Characters:    estimate.Characters,
		Tokens:        estimate.Tokens,
		TokensCounted: estimate.TokensCounted,
	}, nil
}
