package cli

import (
	"errors"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"taxlot-matcher-go/internal/pairing"
	"taxlot-matcher-go/internal/report"
)

var errNoRun = errors.New("no pairing run stored, run the pair command first")

func newSummaryCmd(app *App) *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show taxable results per year",
		Long:  "Summarize the stored pairs per close year and currency. Unpaired closes are counted by replaying the latest pairing run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			last, err := app.Store.LatestRun(ctx)
			if err != nil {
				return err
			}
			if last == nil {
				return errNoRun
			}
			stored, err := app.Store.LoadPairs(ctx)
			if err != nil {
				return err
			}
			prepared, err := app.prepare(ctx)
			if err != nil {
				return err
			}

			// Unpaired closes are not stored; replaying the latest run yields them.
			run, err := app.Engine.Pair(ctx, prepared.Trades, pairing.Context{
				Strategy:        last.Strategy,
				FromYear:        last.FromYear,
				Retained:        stored,
				ExemptAfterDays: app.Config.Pairing.ExemptAfterDays,
			})
			if err != nil {
				return err
			}
			s := report.Summarize(stored, run.Result.Unpaired)

			if csvPath != "" {
				f, err := os.Create(csvPath)
				if err != nil {
					return err
				}
				defer f.Close()
				return report.WriteSummary(f, s)
			}

			printf(out, "strategy %s, run %s\n", last.Strategy, last.ID)
			tw := newTable(out)
			printf(tw, "YEAR\tCURRENCY\tPAIRS\tTAXABLE\tEXEMPT\tCOST\tPROCEEDS\tTAXABLE REVENUE\tEXEMPT REVENUE\n")
			for _, y := range s.Years {
				printf(tw, "%d\t%s\t%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
					y.Year, y.Currency, y.Pairs, y.TaxablePairs, y.ExemptPairs,
					y.TaxableCost.StringFixed(2), y.TaxableProceeds.StringFixed(2),
					y.TaxableRevenue.StringFixed(2), y.ExemptRevenue.StringFixed(2))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			years := make([]int, 0, len(s.UnpairedByYear))
			for y := range s.UnpairedByYear {
				years = append(years, y)
			}
			sort.Ints(years)
			for _, y := range years {
				printf(out, "%d: %d unpaired closes\n", y, s.UnpairedByYear[y])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "write the summary to this CSV file instead")
	return cmd
}
