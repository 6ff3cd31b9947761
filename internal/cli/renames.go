package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taxlot-matcher-go/internal/config"
	"taxlot-matcher-go/internal/symbols"
)

// historySource picks the rename history source: a file wins over a URL.
func historySource(cfg config.Renames, logger *zap.Logger) (symbols.Source, error) {
	switch {
	case cfg.File != "":
		return symbols.FileSource{Path: cfg.File}, nil
	case cfg.URL != "":
		return symbols.NewRestClient(&cfg, logger), nil
	}
	return nil, symbols.ErrHistoryUnavailable
}

func newRenamesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renames",
		Short: "Maintain symbol rename mappings",
	}
	cmd.AddCommand(newRenamesSyncCmd(app))
	cmd.AddCommand(newRenamesListCmd(app))
	return cmd
}

func newRenamesSyncCmd(app *App) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Merge rename history into the stored mappings",
		Long:  "Fetch rename history from renames.file or renames.url and fill automatic mappings for traded symbols. Manual mappings are never changed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := app.Config.Renames
			if file != "" {
				cfg.File = file
			}
			src, err := historySource(cfg, app.Logger)
			if err != nil {
				return err
			}

			trades, err := app.Store.LoadTrades(ctx)
			if err != nil {
				return err
			}
			traded := make(map[string]bool)
			for _, t := range trades {
				traded[t.Symbol] = true
			}
			existing, err := app.Store.LoadMappings(ctx)
			if err != nil {
				return err
			}

			merged, err := symbols.Sync(ctx, src, existing, traded)
			if err != nil {
				return err
			}
			if err := app.Store.SaveMappings(ctx, merged); err != nil {
				return err
			}
			app.Logger.Info("Rename history merged", zap.Int("before", len(existing)), zap.Int("after", len(merged)))
			printf(cmd.OutOrStdout(), "%d symbol mappings stored\n", len(merged))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "rename history CSV (overrides renames.file)")
	return cmd
}

func newRenamesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored symbol mappings",
		RunE: func(cmd *cobra.Command, args []string) error {
			mappings, err := app.Store.LoadMappings(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			printf(tw, "SYMBOL\tTICKER\tCHANGE DATE\tMANUAL\n")
			for _, m := range mappings {
				change := "-"
				if m.ChangeDate != nil {
					change = m.ChangeDate.Format("2006-01-02")
				}
				printf(tw, "%s\t%s\t%s\t%t\n", m.Symbol, m.Ticker, change, m.Manual)
			}
			return tw.Flush()
		},
	}
}
