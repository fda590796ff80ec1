package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/impromptu/internal/output"
	"github.com/temirov/impromptu/internal/selection"
	"github.com/temirov/impromptu/internal/services/bridge"
	"github.com/temirov/impromptu/internal/tui"
	"github.com/temirov/impromptu/internal/utils"
	"github.com/temirov/impromptu/internal/watch"
	"github.com/temirov/impromptu/internal/workspace"
)

const (
	watchUse                 = "watch"
	watchShortDescription    = "keep the selection and prompt size in sync with the filesystem"
	uiUse                    = "ui"
	uiShortDescription       = "browse the workspace and select files interactively"
	serveUse                 = "serve"
	serveShortDescription    = "expose workspace commands over a local HTTP bridge"
	addressFlagName          = "address"
	addressFlagDescription   = "listen address for the bridge"
	watchingFormat           = "Watching %s (press Ctrl+C to stop)"
	bridgeListeningFormat    = "Bridge listening on %s"
	errorNotTerminalMessage  = "the ui command requires an interactive terminal"
	errorCreateWatcherFormat = "start watcher: %w"
	errorRunInterfaceFormat  = "run interface: %w"
	warningFileEventMessage  = "unable to apply file event"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// fileEventHandler applies watcher events to the workspace, logging failures.
func fileEventHandler(activeWorkspace *workspace.Workspace, logger *zap.Logger) func(workspace.FileEvent) {
	return func(event workspace.FileEvent) {
		if handleError := activeWorkspace.HandleFileEvent(event); handleError != nil {
			logger.Warn(warningFileEventMessage, zap.String("path", event.Path), zap.Stringer("kind", event.Kind), zap.Error(handleError))
		}
	}
}

func createWatchCommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   watchUse,
		Short: watchShortDescription,
		Args:  cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			ctx, stop := signalContext(command.Context())
			defer stop()
			watcher, watcherError := watch.New(activeSession.workspace.Root(), activeSession.workspace.Filter(), activeSession.logger)
			if watcherError != nil {
				return fmt.Errorf(errorCreateWatcherFormat, watcherError)
			}
			activeSession.workspace.Store().Subscribe(func(change selection.Change) {
				activeSession.printer.Info(selectionTotalsFormat, change.Files, output.FormatTotals(change))
			})
			activeSession.printer.Info(watchingFormat, activeSession.workspace.Root())
			if totalsError := activeSession.printTotals(); totalsError != nil {
				_ = watcher.Close()
				return totalsError
			}
			return watcher.Run(ctx, fileEventHandler(activeSession.workspace, activeSession.logger))
		}),
	}
}

func createUICommand(app *application) *cobra.Command {
	return &cobra.Command{
		Use:   uiUse,
		Short: uiShortDescription,
		Long: `Browse the workspace as a checkbox tree. Space toggles the highlighted entry,
g writes the prompt and the footer shows the live prompt size.`,
		Args: cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			if !app.isTerminal() {
				return errors.New(errorNotTerminalMessage)
			}
			watcher, watcherError := watch.New(activeSession.workspace.Root(), activeSession.workspace.Filter(), zap.NewNop())
			if watcherError != nil {
				return fmt.Errorf(errorCreateWatcherFormat, watcherError)
			}
			ctx, cancel := context.WithCancel(command.Context())
			defer cancel()
			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(func() error {
				return watcher.Run(groupCtx, fileEventHandler(activeSession.workspace, zap.NewNop()))
			})
			runError := tui.Run(activeSession.workspace, tea.WithAltScreen())
			cancel()
			if waitError := group.Wait(); waitError != nil && runError == nil {
				runError = waitError
			}
			if runError != nil {
				return fmt.Errorf(errorRunInterfaceFormat, runError)
			}
			return nil
		}),
	}
}

func createServeCommand(app *application) *cobra.Command {
	var address string
	serveCommand := &cobra.Command{
		Use:   serveUse,
		Short: serveShortDescription,
		Long: `Serve the workspace over HTTP on the loopback interface for editor plugins.
GET /capabilities lists the commands and POST /commands/<name> runs one with a JSON payload.`,
		Args: cobra.NoArgs,
		RunE: app.withSession(func(command *cobra.Command, activeSession *session, _ []string) error {
			if !command.Flags().Changed(addressFlagName) && activeSession.configuration.Bridge.Address != utils.EmptyString {
				address = activeSession.configuration.Bridge.Address
			}
			ctx, stop := signalContext(command.Context())
			defer stop()
			watcher, watcherError := watch.New(activeSession.workspace.Root(), activeSession.workspace.Filter(), activeSession.logger)
			if watcherError != nil {
				return fmt.Errorf(errorCreateWatcherFormat, watcherError)
			}
			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(func() error {
				return watcher.Run(groupCtx, fileEventHandler(activeSession.workspace, activeSession.logger))
			})
			group.Go(func() error {
				return startBridgeServer(groupCtx, activeSession, app, address, command.OutOrStdout())
			})
			return group.Wait()
		}),
	}
	serveCommand.Flags().StringVar(&address, addressFlagName, bridge.DefaultListenAddress, addressFlagDescription)
	return serveCommand
}

// startBridgeServer serves the bridge executors until ctx is cancelled and reports the
// bound address on writer.
func startBridgeServer(ctx context.Context, activeSession *session, app *application, address string, writer io.Writer) error {
	executors := newBridgeExecutors(activeSession.workspace, activeSession.configuration, app.now)
	server := bridge.NewServer(bridge.Config{
		Address:      address,
		Capabilities: bridgeCapabilities(),
		Executors:    executors.commandExecutors(),
		Logger:       activeSession.logger,
	})
	printer := output.NewPrinter(writer)
	return server.Run(ctx, func(boundAddress string) {
		printer.Info(bridgeListeningFormat, boundAddress)
	})
}
