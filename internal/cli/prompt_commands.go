package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/impromptu/internal/boundary"
	"github.com/temirov/impromptu/internal/config"
	"github.com/temirov/impromptu/internal/utils"
	"github.com/temirov/impromptu/internal/workspace"
)

const (
	initUse                    = "init"
	initShortDescription       = "write a default configuration file"
	globalFlagName             = "global"
	globalFlagDescription      = "write ~/.impromptu/config.yaml instead of <root>/.impromptu.yaml"
	forceFlagName              = "force"
	forceFlagDescription       = "overwrite an existing configuration file"
	initializedFormat          = "Wrote configuration to %s"
	generateUse                = "generate"
	generateAlias              = "gen"
	generateShortDescription   = "assemble the selected files into a prompt file"
	treeFlagName               = "tree"
	treeFlagDescription        = "include the project structure diagram (default from formatting.include_tree)"
	copyFlagName               = "copy"
	copyFlagDescription        = "copy the generated prompt to the clipboard (default from clipboard.enabled)"
	suffixFlagName             = "suffix"
	suffixFlagDescription      = "free text appended after the append block"
	generatedFormat            = "Wrote %s (%d files, %s characters)"
	copiedMessage              = "Copied prompt to clipboard"
	emptySelectionHint         = "Select files with 'impromptu select' or 'impromptu ui' first"
	boundaryUse                = "boundary prepend|append"
	boundaryShortDescription   = "create the prepend or append file if needed and print its path"
	errorInitializeConfigText  = "initialize configuration: %w"
	errorGeneratePromptFormat  = "generate prompt: %w"
	errorEnsureBoundaryFormat  = "ensure %s file: %w"
	errorParseBoundaryKindText = "parse boundary kind: %w"
)

func createInitCommand(app *application) *cobra.Command {
	var globalSwitch *switchFlag
	var forceSwitch *switchFlag
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			root, rootError := app.resolveRoot()
			if rootError != nil {
				return rootError
			}
			target := config.InitTargetLocal
			if globalSwitch.Resolve(nil) {
				target = config.InitTargetGlobal
			}
			path, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            forceSwitch.Resolve(nil),
				WorkingDirectory: root,
			})
			if initError != nil {
				return fmt.Errorf(errorInitializeConfigText, initError)
			}
			fmt.Fprintf(command.OutOrStdout(), initializedFormat+"\n", path)
			return nil
		},
	}
	globalSwitch = registerSwitchFlag(initCommand.Flags(), globalFlagName, globalFlagDescription)
	forceSwitch = registerSwitchFlag(initCommand.Flags(), forceFlagName, forceFlagDescription)
	return initCommand
}

func createGenerateCommand(app *application) *cobra.Command {
	var treeSwitch *switchFlag
	var copySwitch *switchFlag
	var suffix string
	generateCommand := &cobra.Command{
		Use:     generateUse,
		Aliases: []string{generateAlias},
		Short:   generateShortDescription,
		Long: `Assemble the prepend block, the optional project structure, every selected file and
the append block into impromptu_prompt_<timestamp>.md at the workspace root.`,
		Example: `  # Write the prompt with a tree diagram and copy it
  impromptu generate --tree --copy

  # Finish the prompt with an instruction
  impromptu generate --suffix "Explain the failing test"`,
		Args: cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			result, generateError := activeSession.workspace.Generate(workspace.GenerateOptions{
				IncludeTree: treeSwitch.Resolve(activeSession.configuration.Formatting.IncludeTree),
				Suffix:      suffix,
				Copy:        copySwitch.Resolve(activeSession.configuration.Clipboard.Enabled),
				Now:         app.now,
			})
			if errors.Is(generateError, workspace.ErrEmptySelection) {
				activeSession.printer.Warning(emptySelectionHint)
			}
			if generateError != nil {
				return fmt.Errorf(errorGeneratePromptFormat, generateError)
			}
			for _, warning := range result.Warnings {
				activeSession.printer.Warning("%s", warning)
			}
			activeSession.printer.Success(generatedFormat, result.Path, result.FileCount, utils.FormatCount(result.Document.Characters))
			if result.Copied {
				activeSession.printer.Info(copiedMessage)
			}
			return nil
		}),
	}
	treeSwitch = registerSwitchFlag(generateCommand.Flags(), treeFlagName, treeFlagDescription)
	copySwitch = registerSwitchFlag(generateCommand.Flags(), copyFlagName, copyFlagDescription)
	generateCommand.Flags().StringVar(&suffix, suffixFlagName, utils.EmptyString, suffixFlagDescription)
	return generateCommand
}

func createBoundaryCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:       boundaryUse,
		Short:     boundaryShortDescription,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(boundary.KindPrepend), string(boundary.KindAppend)},
		RunE: func(command *cobra.Command, arguments []string) error {
			kind, kindError := boundary.ParseKind(arguments[0])
			if kindError != nil {
				return fmt.Errorf(errorParseBoundaryKindText, kindError)
			}
			root, rootError := app.resolveRoot()
			if rootError != nil {
				return rootError
			}
			path, ensureError := boundary.Files{Root: root, Logger: app.logger}.Ensure(kind)
			if ensureError != nil {
				return fmt.Errorf(errorEnsureBoundaryFormat, kind, ensureError)
			}
			fmt.Fprintln(command.OutOrStdout(), path)
			return nil
		},
	}
}
