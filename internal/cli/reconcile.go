package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taxlot-matcher-go/internal/importer"
	"taxlot-matcher-go/internal/models"
	"taxlot-matcher-go/internal/reconcile"
)

// acceptance is a user decision of the form OLD:NEW@DATE.
type acceptance struct {
	from, to string
	date     time.Time
}

func parseAcceptance(value string) (acceptance, error) {
	symbols, date, ok := strings.Cut(value, "@")
	if !ok {
		return acceptance{}, fmt.Errorf("invalid rename %q, want OLD:NEW@DATE", value)
	}
	old, next, ok := strings.Cut(symbols, ":")
	if !ok || old == "" || next == "" {
		return acceptance{}, fmt.Errorf("invalid rename %q, want OLD:NEW@DATE", value)
	}
	at, err := importer.ParseTime(date)
	if err != nil {
		return acceptance{}, fmt.Errorf("invalid rename %q: %w", value, err)
	}
	return acceptance{from: strings.TrimSpace(old), to: strings.TrimSpace(next), date: at}, nil
}

func (a acceptance) matches(r reconcile.Rename) bool {
	ay, am, ad := a.date.Date()
	ry, rm, rd := r.Date.Date()
	return a.from == r.Old && a.to == r.New && ay == ry && am == rm && ad == rd
}

// accept picks the proposals named by the acceptances. Every acceptance must
// match at least one proposal.
func accept(proposals []reconcile.Rename, acceptances []acceptance) ([]reconcile.Rename, error) {
	var accepted []reconcile.Rename
	for _, a := range acceptances {
		found := false
		for _, p := range proposals {
			if a.matches(p) {
				accepted = append(accepted, p)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("no rename proposal %s:%s on %s", a.from, a.to, a.date.Format(time.DateOnly))
		}
	}
	return accepted, nil
}

func newReconcileCmd(app *App) *cobra.Command {
	var accepts []string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare computed positions with broker snapshots",
		Long: "Report every difference between computed and reported positions and propose " +
			"symbol renames that explain pairs of differences. Accepted renames are stored as mappings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			acceptances := make([]acceptance, 0, len(accepts))
			for _, v := range accepts {
				a, err := parseAcceptance(v)
				if err != nil {
					return err
				}
				acceptances = append(acceptances, a)
			}

			prepared, err := app.prepare(ctx)
			if err != nil {
				return err
			}
			snapshots, err := app.Store.LoadSnapshots(ctx)
			if err != nil {
				return err
			}
			rep := app.Engine.Reconcile(prepared, snapshots)

			accepted, err := accept(rep.Proposals, acceptances)
			if err != nil {
				return err
			}
			if len(accepted) > 0 {
				mappings := make([]models.SymbolMapping, 0, len(accepted))
				for _, r := range accepted {
					mappings = append(mappings, r.Mapping())
				}
				if err := app.Store.SaveMappings(ctx, mappings); err != nil {
					return err
				}
				app.Logger.Info("Renames accepted", zap.Int("count", len(accepted)))
			}

			mismatches := rep.Unexplained(accepted)
			for _, m := range mismatches {
				app.Logger.Warn("Position mismatch",
					zap.Time("date", m.Date),
					zap.String("account", m.Account),
					zap.String("ticker", m.Ticker),
					zap.Float64("difference", m.Difference))
			}

			tw := newTable(out)
			printf(tw, "DATE\tACCOUNT\tTICKER\tCURRENCY\tCOMPUTED\tREPORTED\tDIFFERENCE\n")
			for _, m := range mismatches {
				printf(tw, "%s\t%s\t%s\t%s\t%g\t%g\t%g\n",
					m.Date.Format(time.DateOnly), m.Account, m.Ticker, m.Currency, m.Computed, m.Reported, m.Difference)
			}
			_ = tw.Flush()

			pending := 0
			for _, p := range rep.Proposals {
				if isAccepted(p, accepted) {
					continue
				}
				if pending == 0 {
					printf(out, "\nproposed renames (accept with --accept OLD:NEW@DATE):\n")
				}
				pending++
				printf(out, "  %s:%s@%s  account %s, %g units\n", p.Old, p.New, p.Date.Format(time.DateOnly), p.Account, p.Quantity)
			}
			printf(out, "\n%d mismatches, %d proposals, %d accepted\n", len(mismatches), pending, len(accepted))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&accepts, "accept", nil, "accept a proposed rename, OLD:NEW@DATE (repeatable)")
	return cmd
}

func isAccepted(r reconcile.Rename, accepted []reconcile.Rename) bool {
	for _, a := range accepted {
		if a == r {
			return true
		}
	}
	return false
}
