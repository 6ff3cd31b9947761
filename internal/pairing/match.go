package pairing

import (
	"math"
	"sort"
	"time"

	"taxlot-matcher-go/internal/models"
)

// Epsilon is the relative tolerance below which a lot or a sale counts as
// fully covered. Quantities under one unit use it as an absolute bound.
const Epsilon = 1e-9

// Lot is an opening trade together with the quantity not yet matched.
type Lot struct {
	Index     int // position of the trade within its group
	Time      time.Time
	Price     float64
	Side      models.Type
	Uncovered float64 // always positive while the lot is open
}

// Sale is the closing side of a match request.
type Sale struct {
	Index int
	Time  time.Time
	Side  models.Type
	Need  float64 // positive quantity still to be covered
}

// Match is a quantity taken from one lot for one sale.
type Match struct {
	Lot      int // Lot.Index
	Sale     int // Sale.Index
	Quantity float64
}

// match consumes lots for the sale in the given order, considering only lots
// that are open, opened no later than the sale, on the same side and accepted
// by eligible. It does not modify opens; the updated lots and the quantity
// still needed are returned.
func match(opens []Lot, sale Sale, eligible func(Lot) bool, order Order) ([]Match, []Lot, float64) {
	remaining := make([]Lot, len(opens))
	copy(remaining, opens)

	need := sale.Need
	if need <= Epsilon {
		return nil, remaining, 0
	}

	var candidates []int
	for i, l := range remaining {
		if l.Uncovered > Epsilon && !l.Time.After(sale.Time) && l.Side == sale.Side && eligible(l) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil, remaining, need
	}

	var matches []Match
	if order == Proportional {
		var total float64
		for _, i := range candidates {
			total += remaining[i].Uncovered
		}
		fraction := math.Min(1, need/total)
		var taken float64
		for n, i := range candidates {
			lot := remaining[i].Uncovered
			q := lot * fraction
			switch {
			case fraction == 1:
				q = lot
			case n == len(candidates)-1:
				// the last share absorbs the rounding of the others
				q = math.Max(0, math.Min(lot, need-taken))
			}
			if q <= 0 {
				continue
			}
			taken += q
			remaining[i].Uncovered = snap(lot-q, lot)
			matches = append(matches, Match{Lot: remaining[i].Index, Sale: sale.Index, Quantity: q})
		}
		if fraction < 1 {
			return matches, remaining, 0
		}
		return matches, remaining, snap(need-total, need)
	}

	sortLots(remaining, candidates, order)
	for _, i := range candidates {
		if need <= Epsilon {
			break
		}
		q := math.Min(remaining[i].Uncovered, need)
		remaining[i].Uncovered = snap(remaining[i].Uncovered-q, remaining[i].Uncovered)
		need = snap(need-q, need)
		matches = append(matches, Match{Lot: remaining[i].Index, Sale: sale.Index, Quantity: q})
	}
	return matches, remaining, need
}

// sortLots orders the candidate indexes. Cost orders rank by the price paid
// for a long lot and by the price received for a short lot, so the sense of
// "expensive" is inverted for shorts.
func sortLots(lots []Lot, candidates []int, order Order) {
	older := func(a, b Lot) bool {
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return a.Index < b.Index
	}
	basis := func(l Lot) float64 {
		if l.Side == models.TypeShort {
			return -l.Price
		}
		return l.Price
	}

	sort.SliceStable(candidates, func(x, y int) bool {
		a, b := lots[candidates[x]], lots[candidates[y]]
		switch order {
		case NewestFirst:
			return older(b, a)
		case LowestCostFirst:
			if basis(a) != basis(b) {
				return basis(a) < basis(b)
			}
		case HighestCostFirst:
			if basis(a) != basis(b) {
				return basis(a) > basis(b)
			}
		}
		return older(a, b)
	})
}

// HoldingDays counts whole days between opening and closing.
func HoldingDays(opened, closed time.Time) int {
	return int(math.Floor(closed.Sub(opened).Hours() / 24))
}

// snap zeroes v when it is within rounding distance of zero relative to the
// quantity it was derived from.
func snap(v, scale float64) float64 {
	if math.Abs(v) < Epsilon*math.Max(1, math.Abs(scale)) {
		return 0
	}
	return v
}
