// Package cli provides the command-line interface of the lot matcher.
package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taxlot-matcher-go/internal/config"
	"taxlot-matcher-go/internal/database"
	"taxlot-matcher-go/internal/matcher"
)

// App holds the dependencies shared by all commands.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *database.Store
	Engine *matcher.Engine
}

// NewApp wires the engine from the configuration.
func NewApp(cfg *config.Config, logger *zap.Logger, store *database.Store) *App {
	return &App{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Engine: matcher.NewEngine(logger, cfg.Pairing),
	}
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taxlots",
		Short:         "Match closing trades to tax lots and reconcile positions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newPairCmd(app))
	rootCmd.AddCommand(newReconcileCmd(app))
	rootCmd.AddCommand(newRenamesCmd(app))
	rootCmd.AddCommand(newSummaryCmd(app))
	return rootCmd
}

// prepare loads everything stored and runs it through the engine.
func (a *App) prepare(ctx context.Context) (*matcher.Prepared, error) {
	trades, err := a.Store.LoadTrades(ctx)
	if err != nil {
		return nil, err
	}
	actions, err := a.Store.LoadActions(ctx)
	if err != nil {
		return nil, err
	}
	mappings, err := a.Store.LoadMappings(ctx)
	if err != nil {
		return nil, err
	}
	return a.Engine.Prepare(trades, actions, mappings), nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
