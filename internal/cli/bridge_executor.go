package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/temirov/impromptu/internal/config"
	"github.com/temirov/impromptu/internal/output"
	"github.com/temirov/impromptu/internal/selection"
	"github.com/temirov/impromptu/internal/services/bridge"
	"github.com/temirov/impromptu/internal/utils"
	"github.com/temirov/impromptu/internal/workspace"
)

const (
	bridgeCommandSelect    = "select"
	bridgeCommandUnselect  = "unselect"
	bridgeCommandToggle    = "toggle"
	bridgeCommandAdd       = "add"
	bridgeCommandSelectAll = "select_all"
	bridgeCommandClear     = "clear"
	bridgeCommandStatus    = "status"
	bridgeCommandTree      = "tree"
	bridgeCommandGenerate  = "generate"

	errorPathsRequired     = "paths are required"
	errorPathRequired      = "path is required"
	errorUnknownPathFormat = "%s: %w"
)

type pathsRequest struct {
	Paths []string `json:"paths"`
}

type pathRequest struct {
	Path string `json:"path"`
}

type generateRequest struct {
	IncludeTree *bool  `json:"includeTree"`
	Copy        *bool  `json:"copy"`
	Suffix      string `json:"suffix"`
}

type totalsPayload struct {
	Files         int  `json:"files"`
	Characters    int  `json:"characters"`
	Tokens        int  `json:"tokens,omitempty"`
	TokensCounted bool `json:"tokensCounted"`
}

type statusPayload struct {
	Files  []string      `json:"files"`
	Totals totalsPayload `json:"totals"`
}

type addPayload struct {
	Added          int           `json:"added"`
	AlreadyPresent int           `json:"alreadyPresent"`
	Skipped        int           `json:"skipped"`
	Totals         totalsPayload `json:"totals"`
}

type generatePayload struct {
	Path       string   `json:"path"`
	Files      int      `json:"files"`
	Characters int      `json:"characters"`
	Copied     bool     `json:"copied"`
	Warnings   []string `json:"warnings,omitempty"`
}

// bridgeExecutors adapts workspace operations to bridge commands.
type bridgeExecutors struct {
	workspace     *workspace.Workspace
	configuration config.ApplicationConfiguration
	now           func() time.Time
}

func newBridgeExecutors(activeWorkspace *workspace.Workspace, configuration config.ApplicationConfiguration, now func() time.Time) bridgeExecutors {
	return bridgeExecutors{workspace: activeWorkspace, configuration: configuration, now: now}
}

func bridgeCapabilities() []bridge.Capability {
	return []bridge.Capability{
		{Name: bridgeCommandSelect, Description: "Select files or whole folders: {\"paths\": [...]}"},
		{Name: bridgeCommandUnselect, Description: "Unselect files or whole folders: {\"paths\": [...]}"},
		{Name: bridgeCommandToggle, Description: "Toggle one file or folder: {\"path\": \"...\"}"},
		{Name: bridgeCommandAdd, Description: "Add files and folder contents, skipping ignored paths: {\"paths\": [...]}"},
		{Name: bridgeCommandSelectAll, Description: "Select every workspace file"},
		{Name: bridgeCommandClear, Description: "Unselect every file"},
		{Name: bridgeCommandStatus, Description: "List selected files with the prompt size"},
		{Name: bridgeCommandTree, Description: "Render the selected files as a tree"},
		{Name: bridgeCommandGenerate, Description: "Write the prompt file: {\"includeTree\": bool, \"copy\": bool, \"suffix\": \"...\"}"},
	}
}

func (executors bridgeExecutors) commandExecutors() map[string]bridge.CommandExecutor {
	return map[string]bridge.CommandExecutor{
		bridgeCommandSelect:    bridge.CommandExecutorFunc(executors.executeSelect),
		bridgeCommandUnselect:  bridge.CommandExecutorFunc(executors.executeUnselect),
		bridgeCommandToggle:    bridge.CommandExecutorFunc(executors.executeToggle),
		bridgeCommandAdd:       bridge.CommandExecutorFunc(executors.executeAdd),
		bridgeCommandSelectAll: bridge.CommandExecutorFunc(executors.executeSelectAll),
		bridgeCommandClear:     bridge.CommandExecutorFunc(executors.executeClear),
		bridgeCommandStatus:    bridge.CommandExecutorFunc(executors.executeStatus),
		bridgeCommandTree:      bridge.CommandExecutorFunc(executors.executeTree),
		bridgeCommandGenerate:  bridge.CommandExecutorFunc(executors.executeGenerate),
	}
}

func (executors bridgeExecutors) executeSelect(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	return executors.setPathStates(request, true)
}

func (executors bridgeExecutors) executeUnselect(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	return executors.setPathStates(request, false)
}

// setPathStates applies the checkbox semantics: a file changes alone and a folder
// cascades to every file below it. Selecting an unknown path rejects the whole request
// before any state changes.
func (executors bridgeExecutors) setPathStates(request bridge.CommandRequest, selected bool) (bridge.CommandResponse, error) {
	paths, decodeError := executors.decodePaths(request)
	if decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	cache, cacheError := executors.workspace.Cache()
	if cacheError != nil {
		return bridge.CommandResponse{}, bridge.NewCommandExecutionError(http.StatusInternalServerError, cacheError)
	}
	if selected {
		for _, path := range paths {
			if !cache.HasDirectory(path) && !cache.IsKnownFile(path) {
				relativePath := utils.RelativePathOrSelf(path, executors.workspace.Root())
				return bridge.CommandResponse{}, executionError(fmt.Errorf(errorUnknownPathFormat, relativePath, selection.ErrUnknownFile))
			}
		}
	}
	store := executors.workspace.Store()
	for _, path := range paths {
		var updateError error
		if cache.HasDirectory(path) {
			_, updateError = store.SetFolderState(path, selected)
		} else {
			_, updateError = store.SetFileState(path, selected)
		}
		if updateError != nil {
			return bridge.CommandResponse{}, executionError(updateError)
		}
	}
	return executors.totalsResponse()
}

func (executors bridgeExecutors) executeToggle(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	var payload pathRequest
	if decodeError := request.Decode(&payload); decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	if strings.TrimSpace(payload.Path) == utils.EmptyString {
		return bridge.CommandResponse{}, bridge.NewCommandExecutionError(http.StatusBadRequest, errors.New(errorPathRequired))
	}
	if _, toggleError := executors.workspace.Store().Toggle(executors.workspace.ResolvePath(payload.Path)); toggleError != nil {
		return bridge.CommandResponse{}, executionError(toggleError)
	}
	return executors.totalsResponse()
}

func (executors bridgeExecutors) executeAdd(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	paths, decodeError := executors.decodePaths(request)
	if decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	result, addError := executors.workspace.Store().AddPaths(paths)
	if addError != nil {
		return bridge.CommandResponse{}, executionError(addError)
	}
	change, estimateError := executors.workspace.Estimate()
	if estimateError != nil {
		return bridge.CommandResponse{}, executionError(estimateError)
	}
	return bridge.CommandResponse{
		Output: fmt.Sprintf(selectedSummaryFormat, result.Added, result.AlreadyPresent, result.Skipped),
		Data: addPayload{
			Added:          result.Added,
			AlreadyPresent: result.AlreadyPresent,
			Skipped:        result.Skipped,
			Totals:         totalsFromChange(change),
		},
	}, nil
}

func (executors bridgeExecutors) executeSelectAll(_ context.Context, _ bridge.CommandRequest) (bridge.CommandResponse, error) {
	if _, selectError := executors.workspace.Store().SelectAll(); selectError != nil {
		return bridge.CommandResponse{}, executionError(selectError)
	}
	return executors.totalsResponse()
}

func (executors bridgeExecutors) executeClear(_ context.Context, _ bridge.CommandRequest) (bridge.CommandResponse, error) {
	if _, clearError := executors.workspace.Store().Clear(); clearError != nil {
		return bridge.CommandResponse{}, executionError(clearError)
	}
	return executors.totalsResponse()
}

func (executors bridgeExecutors) executeStatus(_ context.Context, _ bridge.CommandRequest) (bridge.CommandResponse, error) {
	selectedFiles, selectionError := executors.workspace.Store().SelectedFiles()
	if selectionError != nil {
		return bridge.CommandResponse{}, executionError(selectionError)
	}
	change, estimateError := executors.workspace.Estimate()
	if estimateError != nil {
		return bridge.CommandResponse{}, executionError(estimateError)
	}
	relativePaths := make([]string, 0, len(selectedFiles))
	for _, selectedFile := range selectedFiles {
		relativePaths = append(relativePaths, utils.RelativePathOrSelf(selectedFile, executors.workspace.Root()))
	}
	return bridge.CommandResponse{
		Output: output.FormatTotals(change),
		Data:   statusPayload{Files: relativePaths, Totals: totalsFromChange(change)},
	}, nil
}

func (executors bridgeExecutors) executeTree(_ context.Context, _ bridge.CommandRequest) (bridge.CommandResponse, error) {
	tree, treeError := executors.workspace.Tree()
	if treeError != nil {
		return bridge.CommandResponse{}, executionError(treeError)
	}
	return bridge.CommandResponse{Output: tree}, nil
}

func (executors bridgeExecutors) executeGenerate(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	var payload generateRequest
	if decodeError := request.Decode(&payload); decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	includeTree := config.BoolOrDefault(payload.IncludeTree, config.BoolOrDefault(executors.configuration.Formatting.IncludeTree, false))
	copyToClipboard := config.BoolOrDefault(payload.Copy, config.BoolOrDefault(executors.configuration.Clipboard.Enabled, false))
	result, generateError := executors.workspace.Generate(workspace.GenerateOptions{
		IncludeTree: includeTree,
		Suffix:      payload.Suffix,
		Copy:        copyToClipboard,
		Now:         executors.now,
	})
	if generateError != nil {
		return bridge.CommandResponse{}, executionError(generateError)
	}
	return bridge.CommandResponse{
		Output:   result.Path,
		Warnings: result.Warnings,
		Data: generatePayload{
			Path:       result.Path,
			Files:      result.FileCount,
			Characters: result.Document.Characters,
			Copied:     result.Copied,
			Warnings:   result.Warnings,
		},
	}, nil
}

func (executors bridgeExecutors) decodePaths(request bridge.CommandRequest) ([]string, error) {
	var payload pathsRequest
	if decodeError := request.Decode(&payload); decodeError != nil {
		return nil, decodeError
	}
	resolved := make([]string, 0, len(payload.Paths))
	for _, path := range payload.Paths {
		if strings.TrimSpace(path) == utils.EmptyString {
			continue
		}
		resolved = append(resolved, executors.workspace.ResolvePath(path))
	}
	if len(resolved) == 0 {
		return nil, bridge.NewCommandExecutionError(http.StatusBadRequest, errors.New(errorPathsRequired))
	}
	return resolved, nil
}

func (executors bridgeExecutors) totalsResponse() (bridge.CommandResponse, error) {
	change, estimateError := executors.workspace.Estimate()
	if estimateError != nil {
		return bridge.CommandResponse{}, executionError(estimateError)
	}
	return bridge.CommandResponse{Output: output.FormatTotals(change), Data: totalsFromChange(change)}, nil
}

func totalsFromChange(change selection.Change) totalsPayload {
	return totalsPayload{
		Files:         change.Files,
		Characters:    change.Characters,
		Tokens:        change.Tokens,
		TokensCounted: change.TokensCounted,
	}
}

// executionError maps workspace errors onto HTTP statuses.
func executionError(err error) error {
	switch {
	case errors.Is(err, selection.ErrUnknownFile), errors.Is(err, selection.ErrUnknownDirectory):
		return bridge.NewCommandExecutionError(http.StatusNotFound, err)
	case errors.Is(err, workspace.ErrEmptySelection):
		return bridge.NewCommandExecutionError(http.StatusConflict, err)
	default:
		return bridge.NewCommandExecutionError(http.StatusInternalServerError, err)
	}
}
