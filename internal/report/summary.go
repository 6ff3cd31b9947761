// Package report aggregates pairing results into yearly tax figures and
// exports them as CSV.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"taxlot-matcher-go/internal/models"
	"taxlot-matcher-go/internal/pairing"
)

const places = 2

// YearSummary aggregates the pairs closed in one year and currency. Money
// columns only include taxable pairs and are rounded half to even.
type YearSummary struct {
	Year            int
	Currency        string
	Pairs           int
	TaxablePairs    int
	ExemptPairs     int
	TaxableCost     decimal.Decimal
	TaxableProceeds decimal.Decimal
	TaxableRevenue  decimal.Decimal
	ExemptRevenue   decimal.Decimal
}

// Summary is the yearly view of a pairing run.
type Summary struct {
	Years []YearSummary
	// UnpairedByYear counts closing trades left uncovered, by close year.
	UnpairedByYear map[int]int
}

type yearKey struct {
	year     int
	currency string
}

// Summarize adds up pairs per close year and currency. Sums are taken on
// unrounded values and rounded once at the end.
func Summarize(pairs []models.Pair, unpaired []pairing.Unpaired) Summary {
	rows := make(map[yearKey]*YearSummary)
	for _, p := range pairs {
		k := yearKey{year: p.CloseYear, currency: p.Currency}
		row, ok := rows[k]
		if !ok {
			row = &YearSummary{Year: k.year, Currency: k.currency}
			rows[k] = row
		}
		row.Pairs++
		revenue := decimal.NewFromFloat(p.Revenue)
		if !p.Taxable {
			row.ExemptPairs++
			row.ExemptRevenue = row.ExemptRevenue.Add(revenue)
			continue
		}
		row.TaxablePairs++
		row.TaxableCost = row.TaxableCost.Add(decimal.NewFromFloat(p.Cost))
		row.TaxableProceeds = row.TaxableProceeds.Add(decimal.NewFromFloat(p.Proceeds))
		row.TaxableRevenue = row.TaxableRevenue.Add(revenue)
	}

	out := Summary{UnpairedByYear: make(map[int]int)}
	for _, row := range rows {
		row.TaxableCost = row.TaxableCost.RoundBank(places)
		row.TaxableProceeds = row.TaxableProceeds.RoundBank(places)
		row.TaxableRevenue = row.TaxableRevenue.RoundBank(places)
		row.ExemptRevenue = row.ExemptRevenue.RoundBank(places)
		out.Years = append(out.Years, *row)
	}
	sort.Slice(out.Years, func(i, j int) bool {
		if out.Years[i].Year != out.Years[j].Year {
			return out.Years[i].Year < out.Years[j].Year
		}
		return out.Years[i].Currency < out.Years[j].Currency
	})

	for _, u := range unpaired {
		out.UnpairedByYear[u.Time.Year()]++
	}
	return out
}
