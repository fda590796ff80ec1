package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/temirov/impromptu/internal/output"
	"github.com/temirov/impromptu/internal/utils"
)

const (
	selectUse                   = "select <paths...>"
	selectShortDescription      = "add files and directories to the selection"
	unselectUse                 = "unselect <paths...>"
	unselectShortDescription    = "remove files and directories from the selection"
	toggleUse                   = "toggle <path>"
	toggleShortDescription      = "flip the selection state of a file or directory"
	selectAllUse                = "select-all"
	selectAllShortDescription   = "select every file in the workspace"
	clearUse                    = "clear"
	clearShortDescription       = "unselect every file"
	statusUse                   = "status"
	statusShortDescription      = "list the selected files and the prompt size"
	treeUse                     = "tree"
	treeShortDescription        = "render the selected files as a tree"
	countUse                    = "count"
	countShortDescription       = "print the size of the prompt the selection would produce"
	refreshUse                  = "refresh"
	refreshShortDescription     = "reload the ignore rules and rescan the workspace"
	selectedSummaryFormat       = "Selected %d files (%d already selected, %d skipped)"
	unselectedPathFormat        = "Unselected %s"
	unchangedPathFormat         = "%s was not selected"
	toggledPathFormat           = "Toggled %s"
	selectAllMessage            = "Selected every workspace file"
	clearMessage                = "Cleared the selection"
	nothingToChangeMessage      = "Selection unchanged"
	ignoreRulesUse              = "ignore-rules"
	ignoreRulesShortDescription = "print the ignore patterns in effect, in evaluation order"
	rescannedFormat             = "Rescanned %d files in %d directories"
	warningUnknownPathFormat    = "Skipping %s: not a workspace file or directory"
	warningStatFailedFormat     = "Skipping %s: %v"
	errorReadSelectionFormat    = "read selection: %w"
	errorUpdateSelectionFormat  = "update selection for %s: %w"
	errorReadCacheFormat        = "scan workspace: %w"
	errorRefreshWorkspaceFormat = "refresh workspace: %w"
)

func createSelectCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   selectUse,
		Short: selectShortDescription,
		Long: `Add files and directories to the selection. A directory adds every file below it
that the ignore rules keep. Relative paths are resolved against the workspace root.`,
		Args: cobra.MinimumNArgs(1),
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, arguments []string) error {
			paths := make([]string, 0, len(arguments))
			for _, argument := range arguments {
				paths = append(paths, activeSession.workspace.ResolvePath(argument))
			}
			result, addError := activeSession.workspace.Store().AddPaths(paths)
			if addError != nil {
				return fmt.Errorf(errorUpdateSelectionFormat, activeSession.workspace.Root(), addError)
			}
			activeSession.printer.Success(selectedSummaryFormat, result.Added, result.AlreadyPresent, result.Skipped)
			return activeSession.printTotals()
		}),
	}
}

func createUnselectCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   unselectUse,
		Short: unselectShortDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, arguments []string) error {
			cache, cacheError := activeSession.workspace.Cache()
			if cacheError != nil {
				return fmt.Errorf(errorReadCacheFormat, cacheError)
			}
			store := activeSession.workspace.Store()
			for _, argument := range arguments {
				path := activeSession.workspace.ResolvePath(argument)
				var changed bool
				var updateError error
				switch {
				case cache.IsKnownFile(path) || store.IsSelected(path):
					changed, updateError = store.SetFileState(path, false)
				case cache.HasDirectory(path):
					changed, updateError = store.SetFolderState(path, false)
				default:
					activeSession.printer.Warning(warningUnknownPathFormat, argument)
					continue
				}
				if updateError != nil {
					return fmt.Errorf(errorUpdateSelectionFormat, argument, updateError)
				}
				if changed {
					activeSession.printer.Success(unselectedPathFormat, argument)
				} else {
					activeSession.printer.Plain(unchangedPathFormat, argument)
				}
			}
			return activeSession.printTotals()
		}),
	}
}

func createToggleCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   toggleUse,
		Short: toggleShortDescription,
		Long: `Flip the selection state of a file. A directory is selected unless every file
below it is already selected, in which case the whole directory is unselected.`,
		Args: cobra.ExactArgs(1),
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, arguments []string) error {
			path := activeSession.workspace.ResolvePath(arguments[0])
			if _, toggleError := activeSession.workspace.Store().Toggle(path); toggleError != nil {
				return fmt.Errorf(errorUpdateSelectionFormat, arguments[0], toggleError)
			}
			activeSession.printer.Success(toggledPathFormat, arguments[0])
			return activeSession.printTotals()
		}),
	}
}

func createSelectAllCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   selectAllUse,
		Short: selectAllShortDescription,
		Args:  cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			changed, selectError := activeSession.workspace.Store().SelectAll()
			if selectError != nil {
				return fmt.Errorf(errorUpdateSelectionFormat, activeSession.workspace.Root(), selectError)
			}
			reportChange(activeSession, changed, selectAllMessage)
			return activeSession.printTotals()
		}),
	}
}

func createClearCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   clearUse,
		Short: clearShortDescription,
		Args:  cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			changed, clearError := activeSession.workspace.Store().Clear()
			if clearError != nil {
				return fmt.Errorf(errorUpdateSelectionFormat, activeSession.workspace.Root(), clearError)
			}
			reportChange(activeSession, changed, clearMessage)
			return activeSession.printTotals()
		}),
	}
}

func reportChange(activeSession *session, changed bool, message string) {
	if changed {
		activeSession.printer.Success("%s", message)
		return
	}
	activeSession.printer.Plain(nothingToChangeMessage)
}

func createStatusCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   statusUse,
		Short: statusShortDescription,
		Args:  cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			selectedFiles, selectionError := activeSession.workspace.Store().SelectedFiles()
			if selectionError != nil {
				return fmt.Errorf(errorReadSelectionFormat, selectionError)
			}
			rows := make([]output.StatusRow, 0, len(selectedFiles))
			for _, selectedFile := range selectedFiles {
				relativePath := utils.RelativePathOrSelf(selectedFile, activeSession.workspace.Root())
				info, statError := os.Stat(selectedFile)
				if statError != nil {
					activeSession.printer.Warning(warningStatFailedFormat, relativePath, statError)
					continue
				}
				rows = append(rows, output.StatusRow{RelativePath: relativePath, SizeBytes: info.Size()})
			}
			change, estimateError := activeSession.workspace.Estimate()
			if estimateError != nil {
				return fmt.Errorf(errorWorkspaceEstimateText, estimateError)
			}
			output.RenderStatusTable(command.OutOrStdout(), rows, change)
			return nil
		}),
	}
}

func createTreeCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   treeUse,
		Short: treeShortDescription,
		Args:  cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			tree, treeError := activeSession.workspace.Tree()
			if treeError != nil {
				return treeError
			}
			fmt.Fprint(command.OutOrStdout(), tree)
			return nil
		}),
	}
}

func createCountCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   countUse,
		Short: countShortDescription,
		Args:  cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			change, estimateError := activeSession.workspace.Estimate()
			if estimateError != nil {
				return fmt.Errorf(errorWorkspaceEstimateText, estimateError)
			}
			activeSession.printer.Plain("%s", output.FormatTotals(change))
			return nil
		}),
	}
}

func createRefreshCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   refreshUse,
		Short: refreshShortDescription,
		Args:  cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			if refreshError := activeSession.workspace.Refresh(); refreshError != nil {
				return fmt.Errorf(errorRefreshWorkspaceFormat, refreshError)
			}
			cache, cacheError := activeSession.workspace.Cache()
			if cacheError != nil {
				return fmt.Errorf(errorReadCacheFormat, cacheError)
			}
			activeSession.printer.Success(rescannedFormat, cache.FileCount(), len(cache.Directories()))
			return activeSession.printTotals()
		}),
	}
}

func createIgnoreRulesCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   ignoreRulesUse,
		Short: ignoreRulesShortDescription,
		Long: `Print the built-in patterns, then paths.exclude, then the root .gitignore. A later
pattern overrides an earlier one, so a "!" line re-includes what came before it.`,
		Args: cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			for _, pattern := range activeSession.workspace.Filter().Patterns() {
				fmt.Fprintln(command.OutOrStdout(), pattern)
			}
			return nil
		}),
	}
}
