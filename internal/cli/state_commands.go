package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/impromptu/internal/storage"
)

const (
	stateUse                     = "state"
	stateShortDescription        = "inspect the persisted selections in the state directory"
	stateListUse                 = "list"
	stateListShortDescription    = "print every workspace root with a saved selection"
	stateForgetUse               = "forget"
	stateForgetShortDescription  = "delete the saved selection of the current workspace"
	noSavedSelectionsMessage     = "No saved selections"
	forgottenSelectionFormat     = "Forgot the saved selection for %s"
	errorListSavedRootsFormat    = "list saved selections: %w"
	errorForgetSelectionFormat   = "forget selection: %w"
	currentWorkspaceMarkerFormat = "%s (current)"
)

func createStateCommand(app *application) *cobra.Command {
	stateCommand := &cobra.Command{
		Use:   stateUse,
		Short: stateShortDescription,
	}
	stateCommand.AddCommand(
		&cobra.Command{
			Use:   stateListUse,
			Short: stateListShortDescription,
			Args:  cobra.NoArgs,
			RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
				roots, listError := storage.SavedSelectionRoots(storage.NewBadgerStore(activeSession.database, storage.SelectionPrefix))
				if listError != nil {
					return fmt.Errorf(errorListSavedRootsFormat, listError)
				}
				if len(roots) == 0 {
					activeSession.printer.Info(noSavedSelectionsMessage)
					return nil
				}
				for _, root := range roots {
					if root == activeSession.workspace.Root() {
						root = fmt.Sprintf(currentWorkspaceMarkerFormat, root)
					}
					fmt.Fprintln(command.OutOrStdout(), root)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   stateForgetUse,
			Short: stateForgetShortDescription,
			Args:  cobra.NoArgs,
			RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
				if forgetError := activeSession.persister.Forget(); forgetError != nil {
					return fmt.Errorf(errorForgetSelectionFormat, forgetError)
				}
				activeSession.printer.Success(forgottenSelectionFormat, activeSession.workspace.Root())
				return nil
			}),
		},
	)
	return stateCommand
}
