package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"taxlot-matcher-go/internal/matcher"
	"taxlot-matcher-go/internal/models"
	"taxlot-matcher-go/internal/report"
)

func newPairCmd(app *App) *cobra.Command {
	var strategy, exportPath string
	var fromYear int

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Match closing trades against opening lots",
		Long: "Pair every closing trade with the lots it closes. Pairs closing before --from-year " +
			"are kept as stored; later ones are recomputed with the chosen strategy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			prepared, err := app.prepare(ctx)
			if err != nil {
				return err
			}
			pctx := app.Engine.Context(strategy, fromYear, nil)
			if pctx.FromYear > 0 {
				if pctx.Retained, err = app.Store.LoadPairs(ctx); err != nil {
					return err
				}
			}

			run, err := app.Engine.Pair(ctx, prepared.Trades, pctx)
			if err != nil {
				return err
			}
			pairs := run.Stamped()
			if err := persistRun(cmd, app, run, pairs, pctx.FromYear); err != nil {
				return err
			}

			res := run.Result
			printf(out, "run %s: strategy %s, %d pairs, %d unpaired closes, %d open lots, %d stale pairs\n",
				run.ID, res.Strategy, len(res.Pairs), len(res.Unpaired), len(res.OpenLots), len(res.Stale))
			if len(res.Unpaired) > 0 {
				tw := newTable(out)
				printf(tw, "UNPAIRED\tACCOUNT\tTIME\tQUANTITY\tUNCOVERED\n")
				for _, u := range res.Unpaired {
					printf(tw, "%s\t%s\t%s\t%g\t%g\n", u.DisplayName, u.Account, u.Time.Format(time.DateOnly), u.Quantity, u.Uncovered)
				}
				_ = tw.Flush()
			}

			if exportPath != "" {
				f, err := os.Create(exportPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", exportPath, err)
				}
				defer f.Close()
				if err := report.WritePairs(f, pairs); err != nil {
					return err
				}
				printf(out, "pairs written to %s\n", exportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "", "pairing strategy (default from config)")
	cmd.Flags().IntVar(&fromYear, "from-year", 0, "first closing year to recompute (default from config)")
	cmd.Flags().StringVar(&exportPath, "export", "", "write the pairs to this CSV file")
	return cmd
}

func persistRun(cmd *cobra.Command, app *App, run *matcher.Run, pairs []models.Pair, fromYear int) error {
	if run.Cached {
		return nil
	}
	return app.Store.ReplacePairsFrom(cmd.Context(), fromYear, pairs, models.PairingRun{
		ID:            run.ID,
		Strategy:      run.Result.Strategy,
		FromYear:      fromYear,
		UnpairedCount: len(run.Result.Unpaired),
		CreatedAt:     time.Now().UTC(),
	})
}
