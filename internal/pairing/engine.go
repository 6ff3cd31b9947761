package pairing

import (
	"math"
	"sort"
	"time"

	"taxlot-matcher-go/internal/models"
	"taxlot-matcher-go/internal/position"
)

// Unpaired is a closing trade that could not be fully matched, usually
// because part of the account history was never imported.
type Unpaired struct {
	Hash        string
	Account     string
	DisplayName string
	Time        time.Time
	Quantity    float64
	Uncovered   float64 // negative
}

// OpenLot is an opening trade with quantity left after all sales.
type OpenLot struct {
	Hash        string
	Account     string
	DisplayName string
	Time        time.Time
	Uncovered   float64
}

// StalePair is a retained pair that no longer fits the trade set.
type StalePair struct {
	Pair   models.Pair
	Reason string
}

// Job is the unit of work for one display-name group. Jobs share no mutable
// state and may run concurrently.
type Job struct {
	DisplayName string
	Trades      []models.Trade
	Context     Context
}

// GroupResult is the outcome of one Job.
type GroupResult struct {
	DisplayName string
	Trades      []models.Trade
	Pairs       []models.Pair
	Unpaired    []Unpaired
	OpenLots    []OpenLot
	Stale       []StalePair
}

// Result is the merged outcome of a pairing run.
type Result struct {
	Strategy string
	FromYear int
	Trades   []models.Trade
	Pairs    []models.Pair
	Unpaired []Unpaired
	OpenLots []OpenLot
	Stale    []StalePair
}

// Plan resolves the strategy and splits trades into per-display-name jobs.
// Each job gets a private copy of its trades and only the retained pairs that
// belong to it. Retained pairs for instruments without trades are returned as
// stale.
func Plan(trades []models.Trade, pctx Context) (Strategy, []Job, []StalePair, error) {
	strategy, err := StrategyByName(pctx.Strategy)
	if err != nil {
		return nil, nil, nil, err
	}

	groups := make(map[string][]models.Trade)
	for _, t := range trades {
		groups[t.DisplayName()] = append(groups[t.DisplayName()], t)
	}
	retained := make(map[string][]models.Pair)
	var stale []StalePair
	for _, p := range pctx.kept() {
		if _, ok := groups[p.DisplayName]; !ok {
			stale = append(stale, StalePair{Pair: p, Reason: "no trades for instrument"})
			continue
		}
		retained[p.DisplayName] = append(retained[p.DisplayName], p)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make([]Job, 0, len(names))
	for _, name := range names {
		jctx := pctx
		jctx.Retained = retained[name]
		jobs = append(jobs, Job{DisplayName: name, Trades: groups[name], Context: jctx})
	}
	return strategy, jobs, stale, nil
}

// Pair runs every job sequentially and merges the results.
func Pair(trades []models.Trade, pctx Context) (*Result, error) {
	strategy, jobs, stale, err := Plan(trades, pctx)
	if err != nil {
		return nil, err
	}
	results := make([]GroupResult, 0, len(jobs))
	for _, job := range jobs {
		results = append(results, job.Run(strategy))
	}
	return Merge(strategy, pctx, results, stale), nil
}

// Run matches every closing trade of the job's group.
func (j Job) Run(strategy Strategy) GroupResult {
	pctx := j.Context
	trades := make([]models.Trade, len(j.Trades))
	copy(trades, j.Trades)
	position.SortTrades(trades)

	index := make(map[string]int, len(trades))
	for i := range trades {
		t := &trades[i]
		index[t.Hash] = i
		t.CoveredQuantity = 0
		t.UncoveredQuantity = 0
		switch t.Action {
		case models.ActionOpen:
			t.UncoveredQuantity = math.Abs(t.Quantity)
		case models.ActionClose:
			t.UncoveredQuantity = -math.Abs(t.Quantity)
		}
	}

	res := GroupResult{DisplayName: j.DisplayName}
	for _, p := range pctx.kept() {
		oi, okOpen := index[p.OpenTradeHash]
		ci, okClose := index[p.CloseTradeHash]
		switch {
		case !okOpen || !okClose:
			res.Stale = append(res.Stale, StalePair{Pair: p, Reason: "references a trade that is no longer present"})
			continue
		case trades[oi].Action != models.ActionOpen || trades[ci].Action != models.ActionClose:
			res.Stale = append(res.Stale, StalePair{Pair: p, Reason: "references trades with a different classification"})
			continue
		case p.Quantity > trades[oi].UncoveredQuantity+Epsilon || p.Quantity > -trades[ci].UncoveredQuantity+Epsilon:
			res.Stale = append(res.Stale, StalePair{Pair: p, Reason: "exceeds the remaining quantity"})
			continue
		}
		cover(&trades[oi], &trades[ci], p.Quantity)
		res.Pairs = append(res.Pairs, p)
	}

	var lots []Lot
	for i, t := range trades {
		if t.Action == models.ActionOpen && t.UncoveredQuantity > Epsilon {
			lots = append(lots, Lot{Index: i, Time: t.Time, Price: t.Price, Side: t.Side(), Uncovered: t.UncoveredQuantity})
		}
	}

	all := func(Lot) bool { return true }
	for i := range trades {
		closing := &trades[i]
		if closing.Action != models.ActionClose || closing.UncoveredQuantity > -Epsilon || closing.Time.Year() < pctx.FromYear {
			continue
		}
		sale := Sale{Index: i, Time: closing.Time, Side: closing.Side(), Need: -closing.UncoveredQuantity}
		exempt := func(l Lot) bool { return !pctx.Taxable(HoldingDays(l.Time, sale.Time)) }

		for _, phase := range strategy.Phases() {
			eligible := all
			if phase.ExemptOnly {
				eligible = exempt
			}
			var matches []Match
			matches, lots, sale.Need = match(lots, sale, eligible, phase.Order)
			for _, m := range matches {
				opening := &trades[m.Lot]
				res.Pairs = append(res.Pairs, newPair(strategy, pctx, opening, closing, m.Quantity))
				cover(opening, closing, m.Quantity)
			}
		}
	}

	for _, t := range trades {
		if t.Action == models.ActionClose && t.UncoveredQuantity < -Epsilon && t.Time.Year() >= pctx.FromYear {
			res.Unpaired = append(res.Unpaired, Unpaired{
				Hash: t.Hash, Account: t.Account, DisplayName: t.DisplayName(),
				Time: t.Time, Quantity: t.Quantity, Uncovered: t.UncoveredQuantity,
			})
		}
		if t.Action == models.ActionOpen && t.UncoveredQuantity > Epsilon {
			res.OpenLots = append(res.OpenLots, OpenLot{
				Hash: t.Hash, Account: t.Account, DisplayName: t.DisplayName(),
				Time: t.Time, Uncovered: t.UncoveredQuantity,
			})
		}
	}

	sortPairs(res.Pairs)
	res.Trades = trades
	return res
}

// cover books q units as matched on both trades.
func cover(opening, closing *models.Trade, q float64) {
	if opening.UncoveredQuantity <= 0 || closing.UncoveredQuantity >= 0 {
		violate(opening.Hash, closing.Hash, "uncovered quantities have the wrong sign")
	}
	opening.UncoveredQuantity = snap(opening.UncoveredQuantity-q, opening.Quantity)
	opening.CoveredQuantity += q
	closing.UncoveredQuantity = snap(closing.UncoveredQuantity+q, closing.Quantity)
	closing.CoveredQuantity += q
	if opening.UncoveredQuantity < 0 || closing.UncoveredQuantity > 0 {
		violate(opening.Hash, closing.Hash, "matched more than the uncovered quantity")
	}
}

// newPair computes the economics of matching q units. The leg with positive
// quantity is the purchase and defines the cost, whichever of the two opened
// the position.
func newPair(strategy Strategy, pctx Context, opening, closing *models.Trade, q float64) models.Pair {
	if opening.Quantity*closing.Quantity >= 0 {
		violate(opening.Hash, closing.Hash, "opening and closing legs have the same sign")
	}
	buy, sell := opening, closing
	if buy.Quantity < 0 {
		buy, sell = closing, opening
	}

	cost := (buy.Proceeds + buy.Commission) * q / buy.Quantity
	proceeds := -(sell.Proceeds + sell.Commission) * q / sell.Quantity
	days := HoldingDays(opening.Time, closing.Time)

	p := models.Pair{
		Strategy:       strategy.Name(),
		DisplayName:    closing.DisplayName(),
		Currency:       closing.Currency,
		OpenTradeHash:  opening.Hash,
		CloseTradeHash: closing.Hash,
		OpenTime:       opening.Time,
		CloseTime:      closing.Time,
		CloseYear:      closing.Time.Year(),
		Quantity:       q,
		BuyPrice:       buy.Price,
		SellPrice:      sell.Price,
		BuyUnitCost:    buy.Price - buy.Commission/buy.Quantity,
		SellUnitNet:    sell.Price - sell.Commission/sell.Quantity,
		Cost:           cost,
		Proceeds:       proceeds,
		Revenue:        proceeds + cost,
		HoldingDays:    days,
		Taxable:        pctx.Taxable(days),
		Type:           closing.Side(),
	}
	if buy.Price != 0 {
		p.Ratio = sell.Price / buy.Price
	}
	return p
}

// Merge concatenates group results in a deterministic order.
func Merge(strategy Strategy, pctx Context, results []GroupResult, stale []StalePair) *Result {
	sort.SliceStable(results, func(i, j int) bool { return results[i].DisplayName < results[j].DisplayName })

	out := &Result{Strategy: strategy.Name(), FromYear: pctx.FromYear, Stale: stale}
	for _, r := range results {
		out.Trades = append(out.Trades, r.Trades...)
		out.Pairs = append(out.Pairs, r.Pairs...)
		out.Unpaired = append(out.Unpaired, r.Unpaired...)
		out.OpenLots = append(out.OpenLots, r.OpenLots...)
		out.Stale = append(out.Stale, r.Stale...)
	}
	sortPairs(out.Pairs)
	return out
}

func sortPairs(pairs []models.Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		switch {
		case a.DisplayName != b.DisplayName:
			return a.DisplayName < b.DisplayName
		case !a.CloseTime.Equal(b.CloseTime):
			return a.CloseTime.Before(b.CloseTime)
		case !a.OpenTime.Equal(b.OpenTime):
			return a.OpenTime.Before(b.OpenTime)
		case a.CloseTradeHash != b.CloseTradeHash:
			return a.CloseTradeHash < b.CloseTradeHash
		}
		return a.OpenTradeHash < b.OpenTradeHash
	})
}
