package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taxlot-matcher-go/internal/importer"
)

func newImportCmd(app *App) *cobra.Command {
	var tradesPath, actionsPath, snapshotsPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import trades, corporate actions and position snapshots",
		Long:  "Read normalized CSV exports and store them. Trades already imported are skipped by identity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tradesPath == "" && actionsPath == "" && snapshotsPath == "" {
				return fmt.Errorf("nothing to import: pass --trades, --actions or --snapshots")
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if tradesPath != "" {
				f, err := os.Open(tradesPath)
				if err != nil {
					return fmt.Errorf("failed to open trades: %w", err)
				}
				defer f.Close()

				seq, err := app.Store.NextSeq(ctx)
				if err != nil {
					return err
				}
				trades, diags, err := importer.ReadTrades(f, seq)
				if err != nil {
					return err
				}
				inserted, err := app.Store.SaveTrades(ctx, trades)
				if err != nil {
					return err
				}
				for _, d := range diags {
					app.Logger.Warn("Unclassified trade",
						zap.String("account", d.Account),
						zap.String("symbol", d.Symbol),
						zap.Time("time", d.Time),
						zap.String("code", d.Code))
				}
				printf(out, "trades: %d read, %d new, %d unclassified\n", len(trades), inserted, len(diags))
			}

			if actionsPath != "" {
				f, err := os.Open(actionsPath)
				if err != nil {
					return fmt.Errorf("failed to open corporate actions: %w", err)
				}
				defer f.Close()

				actions, err := importer.ReadActions(f)
				if err != nil {
					return err
				}
				inserted, err := app.Store.SaveActions(ctx, actions)
				if err != nil {
					return err
				}
				printf(out, "corporate actions: %d read, %d new\n", len(actions), inserted)
			}

			if snapshotsPath != "" {
				f, err := os.Open(snapshotsPath)
				if err != nil {
					return fmt.Errorf("failed to open snapshots: %w", err)
				}
				defer f.Close()

				snapshots, err := importer.ReadSnapshots(f)
				if err != nil {
					return err
				}
				if err := app.Store.SaveSnapshots(ctx, snapshots); err != nil {
					return err
				}
				printf(out, "snapshots: %d stored\n", len(snapshots))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tradesPath, "trades", "", "trades CSV file")
	cmd.Flags().StringVar(&actionsPath, "actions", "", "corporate actions CSV file")
	cmd.Flags().StringVar(&snapshotsPath, "snapshots", "", "position snapshots CSV file")
	return cmd
}
