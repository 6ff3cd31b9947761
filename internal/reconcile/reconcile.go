// Package reconcile cross-checks computed positions against broker-reported snapshots.
package reconcile

import (
	"math"
	"sort"
	"time"

	"taxlot-matcher-go/internal/corpactions"
	"taxlot-matcher-go/internal/models"
	"taxlot-matcher-go/internal/normalize"
	"taxlot-matcher-go/internal/position"
)

// Mismatch is a difference between the computed and the reported position of
// one instrument in one account at the end of a report day.
type Mismatch struct {
	Date       time.Time
	Account    string
	Ticker     string
	Currency   string
	Computed   float64
	Reported   float64
	Difference float64 // Computed - Reported
}

// Report is the outcome of a reconciliation.
type Report struct {
	Mismatches []Mismatch
	Proposals  []Rename
}

type dayKey struct {
	y int
	m time.Month
	d int
}

// Reconcile compares stock positions at the end of every snapshot day. trades
// must be accumulated; snapshots must already be split adjusted. Only accounts
// that reported on a given day are checked for that day. resolver may be nil.
func Reconcile(trades []models.Trade, snapshots []models.PositionSnapshot, resolver *normalize.Resolver) Report {
	var stocks []models.Trade
	currencies := make(map[string]string)
	for _, t := range trades {
		if t.DisplaySuffix != "" {
			continue
		}
		stocks = append(stocks, t)
		currencies[t.Ticker] = t.Currency
	}

	byDay := make(map[dayKey][]models.PositionSnapshot)
	var days []time.Time
	for _, s := range snapshots {
		y, m, d := s.Date.Date()
		k := dayKey{y, m, d}
		if _, ok := byDay[k]; !ok {
			days = append(days, time.Date(y, m, d, 0, 0, 0, 0, s.Date.Location()))
		}
		byDay[k] = append(byDay[k], s)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var report Report
	for _, day := range days {
		y, m, d := day.Date()
		eod := corpactions.EndOfDay(day)

		reported := make(map[position.AccountKey]float64)
		reportedCurrency := make(map[position.AccountKey]string)
		accounts := make(map[string]bool)
		for _, s := range byDay[dayKey{y, m, d}] {
			ticker := s.Symbol
			if resolver != nil {
				ticker = resolver.Ticker(s.Symbol, eod)
			}
			k := position.AccountKey{Account: s.Account, DisplayName: ticker}
			reported[k] += s.Quantity
			reportedCurrency[k] = s.Currency
			accounts[s.Account] = true
		}

		computed := position.AccountPositions(stocks, eod)
		keys := make(map[position.AccountKey]struct{})
		for k := range reported {
			keys[k] = struct{}{}
		}
		for k := range computed {
			if accounts[k.Account] {
				keys[k] = struct{}{}
			}
		}

		var found []Mismatch
		for k := range keys {
			diff := computed[k] - reported[k]
			if math.Abs(diff) < position.Epsilon {
				continue
			}
			currency := reportedCurrency[k]
			if currency == "" {
				currency = currencies[k.DisplayName]
			}
			found = append(found, Mismatch{
				Date:       day,
				Account:    k.Account,
				Ticker:     k.DisplayName,
				Currency:   currency,
				Computed:   computed[k],
				Reported:   reported[k],
				Difference: diff,
			})
		}
		sort.Slice(found, func(i, j int) bool {
			if found[i].Account != found[j].Account {
				return found[i].Account < found[j].Account
			}
			return found[i].Ticker < found[j].Ticker
		})
		report.Mismatches = append(report.Mismatches, found...)
	}

	report.Proposals = ProposeRenames(report.Mismatches, activityWindows(stocks))
	return report
}

// Unexplained drops the mismatches that an accepted rename accounts for.
func (r Report) Unexplained(accepted []Rename) []Mismatch {
	var out []Mismatch
	for _, m := range r.Mismatches {
		explained := false
		for _, a := range accepted {
			if a.Explains(m) {
				explained = true
				break
			}
		}
		if !explained {
			out = append(out, m)
		}
	}
	return out
}
