// Package cli provides the impromptu command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/temirov/impromptu/internal/config"
	"github.com/temirov/impromptu/internal/output"
	"github.com/temirov/impromptu/internal/storage"
	"github.com/temirov/impromptu/internal/tokenizer"
	"github.com/temirov/impromptu/internal/utils"
	"github.com/temirov/impromptu/internal/workspace"
)

const (
	rootFlagName            = "root"
	configFlagName          = "config"
	stateDirectoryFlagName  = "state-dir"
	rootFlagDescription     = "workspace root directory"
	configFlagDescription   = "configuration file overriding <root>/.impromptu.yaml"
	stateDirectoryFlagUsage = "directory holding persisted selections"
	defaultRootPath         = "."
	stateSubdirectoryName   = "state"
	versionTemplate         = "impromptu version: {{.Version}}\n"
	rootUse                 = "impromptu"
	rootShortDescription    = "Select workspace files and assemble them into an LLM prompt"
	rootLongDescription     = `impromptu keeps a persistent selection of files in a workspace and assembles
them into a single prompt document framed by .prepend.md and .append.md.
Files excluded by the built-in rules or the root .gitignore are never offered.`
	rootUsageExample = `  # Select a directory and a file, then write the prompt with a tree diagram
  impromptu select internal/cli README.md
  impromptu generate --tree --copy

  # Browse and select interactively
  impromptu ui`

	errorResolveRootFormat     = "resolve workspace root: %w"
	errorLoadConfigFormat      = "load configuration: %w"
	errorResolveStateFormat    = "resolve state directory: %w"
	errorOpenStateFormat       = "open selection state: %w"
	errorCreateCounterFormat   = "create token counter: %w"
	errorOpenWorkspaceFormat   = "open workspace: %w"
	warningCloseStateMessage   = "unable to close selection state"
	debugSessionOpenedMessage  = "workspace session opened"
	debugTokenizerMessage      = "token counting enabled"
	selectionTotalsFormat      = "%d files selected, %s"
	errorWorkspaceEstimateText = "estimate prompt size: %w"
)

// dependencies are the process-level collaborators, replaced in tests.
type dependencies struct {
	logger     *zap.Logger
	stdout     io.Writer
	stderr     io.Writer
	copier     output.Copier
	now        func() time.Time
	isTerminal func() bool
}

type globalOptions struct {
	root           string
	configPath     string
	stateDirectory string
}

type application struct {
	dependencies
	options globalOptions
}

type session struct {
	workspace     *workspace.Workspace
	persister     *storage.SelectionPersister
	database      *badger.DB
	configuration config.ApplicationConfiguration
	logger        *zap.Logger
	printer       *output.Printer
}

// Execute runs the impromptu application with the process arguments.
func Execute(ctx context.Context, logger *zap.Logger) error {
	rootCommand := createRootCommand(dependencies{
		logger:     logger,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		now:        time.Now,
		isTerminal: stdoutIsTerminal,
	})
	rootCommand.SetArgs(normalizeSwitchFlagArguments(os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// createRootCommand builds the root Cobra command.
func createRootCommand(deps dependencies) *cobra.Command {
	deps.logger = utils.LoggerOrNop(deps.logger)
	if deps.now == nil {
		deps.now = time.Now
	}
	if deps.isTerminal == nil {
		deps.isTerminal = stdoutIsTerminal
	}
	app := &application{dependencies: deps}

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		Version:      utils.GetApplicationVersion(),
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)
	if deps.stdout != nil {
		rootCommand.SetOut(deps.stdout)
	}
	if deps.stderr != nil {
		rootCommand.SetErr(deps.stderr)
	}
	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringVar(&app.options.root, rootFlagName, defaultRootPath, rootFlagDescription)
	persistentFlags.StringVar(&app.options.configPath, configFlagName, utils.EmptyString, configFlagDescription)
	persistentFlags.StringVar(&app.options.stateDirectory, stateDirectoryFlagName, utils.EmptyString, stateDirectoryFlagUsage)

	rootCommand.AddCommand(
		createInitCommand(app),
		createSelectCommand(app),
		createUnselectCommand(app),
		createToggleCommand(app),
		createSelectAllCommand(app),
		createClearCommand(app),
		createStatusCommand(app),
		createTreeCommand(app),
		createCountCommand(app),
		createGenerateCommand(app),
		createBoundaryCommand(app),
		createRefreshCommand(app),
		createIgnoreRulesCommand(app),
		createStateCommand(app),
		createWatchCommand(app),
		createUICommand(app),
		createServeCommand(app),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// withSession opens the workspace for the duration of action.
func (app *application) withSession(action func(command *cobra.Command, activeSession *session, arguments []string) error) func(*cobra.Command, []string) error {
	return func(command *cobra.Command, arguments []string) error {
		activeSession, openError := app.openSession(command.OutOrStdout())
		if openError != nil {
			return openError
		}
		defer activeSession.close()
		return action(command, activeSession, arguments)
	}
}

func (app *application) resolveRoot() (string, error) {
	root, rootError := utils.CanonicalRoot(app.options.root)
	if rootError != nil {
		return utils.EmptyString, fmt.Errorf(errorResolveRootFormat, rootError)
	}
	return root, nil
}

func (app *application) openSession(writer io.Writer) (*session, error) {
	root, rootError := app.resolveRoot()
	if rootError != nil {
		return nil, rootError
	}
	configuration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: root,
		ExplicitFilePath: app.options.configPath,
	})
	if configurationError != nil {
		return nil, fmt.Errorf(errorLoadConfigFormat, configurationError)
	}
	logger := app.logger
	if configuration.Logging.Level != utils.EmptyString {
		configuredLogger, loggerError := utils.NewApplicationLogger(configuration.Logging.Level)
		if loggerError != nil {
			return nil, fmt.Errorf(errorLoadConfigFormat, loggerError)
		}
		logger = configuredLogger
	}

	stateDirectory, stateError := app.resolveStateDirectory(configuration)
	if stateError != nil {
		return nil, stateError
	}
	database, databaseError := storage.OpenDatabase(stateDirectory, logger)
	if databaseError != nil {
		return nil, fmt.Errorf(errorOpenStateFormat, databaseError)
	}

	var counter tokenizer.Counter
	if config.BoolOrDefault(configuration.Tokens.Enabled, false) {
		createdCounter, counterError := tokenizer.NewCounter(tokenizer.Config{Model: configuration.Tokens.Model})
		if counterError != nil {
			_ = database.Close()
			return nil, fmt.Errorf(errorCreateCounterFormat, counterError)
		}
		logger.Debug(debugTokenizerMessage, zap.String("encoding", createdCounter.Name()))
		counter = createdCounter
	}

	persister := storage.NewSelectionPersister(storage.NewBadgerStore(database, storage.SelectionPrefix), root)
	openedWorkspace, workspaceError := workspace.Open(workspace.Options{
		Root:             root,
		Logger:           logger,
		Persister:        persister,
		Formatting:       configuration.Formatting.FormattingConfig(),
		ExcludePatterns:  configuration.Paths.Exclude,
		DisableGitignore: !config.BoolOrDefault(configuration.Paths.UseGitignore, true),
		IncludeTree:      config.BoolOrDefault(configuration.Formatting.IncludeTree, false),
		Counter:          counter,
		Concurrency:      config.IntOrDefault(configuration.Assembly.Concurrency, 0),
		Copier:           app.copier,
	})
	if workspaceError != nil {
		_ = database.Close()
		return nil, fmt.Errorf(errorOpenWorkspaceFormat, workspaceError)
	}
	logger.Debug(debugSessionOpenedMessage, zap.String("root", root), zap.String("state", stateDirectory))
	return &session{
		workspace:     openedWorkspace,
		persister:     persister,
		database:      database,
		configuration: configuration,
		logger:        logger,
		printer:       output.NewPrinter(writer),
	}, nil
}

// resolveStateDirectory prefers the flag, then the configuration, then the user cache directory.
func (app *application) resolveStateDirectory(configuration config.ApplicationConfiguration) (string, error) {
	if app.options.stateDirectory != utils.EmptyString {
		return app.options.stateDirectory, nil
	}
	if configuration.State.Directory != utils.EmptyString {
		return configuration.State.Directory, nil
	}
	cacheDirectory, cacheError := os.UserCacheDir()
	if cacheError != nil {
		return utils.EmptyString, fmt.Errorf(errorResolveStateFormat, cacheError)
	}
	return filepath.Join(cacheDirectory, utils.StateDirectoryName, stateSubdirectoryName), nil
}

func (activeSession *session) close() {
	if closeError := activeSession.database.Close(); closeError != nil {
		activeSession.logger.Warn(warningCloseStateMessage, zap.Error(closeError))
	}
}

// printTotals reports the current size of the prompt the selection would produce.
func (activeSession *session) printTotals() error {
	change, estimateError := activeSession.workspace.Estimate()
	if estimateError != nil {
		return fmt.Errorf(errorWorkspaceEstimateText, estimateError)
	}
	activeSession.printer.Info(selectionTotalsFormat, change.Files, output.FormatTotals(change))
	return nil
}
