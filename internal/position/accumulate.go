// Package position replays trades in time order to compute running positions.
package position

import (
	"math"
	"sort"
	"time"

	"taxlot-matcher-go/internal/models"
	"taxlot-matcher-go/internal/normalize"
)

// Epsilon is the magnitude below which a position counts as flat.
const Epsilon = 1e-9

// Options controls how running positions are summed.
type Options struct {
	// IncludeTransfersInTotal adds account-to-account transfers to the
	// instrument-wide running sum. Per-account sums always include them.
	IncludeTransfersInTotal bool
}

// AccountKey identifies a position held in one account.
type AccountKey struct {
	Account     string
	DisplayName string
}

// SortTrades orders trades by time, breaking ties by import order.
func SortTrades(trades []models.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		if !trades[i].Time.Equal(trades[j].Time) {
			return trades[i].Time.Before(trades[j].Time)
		}
		return trades[i].Seq < trades[j].Seq
	})
}

// Accumulate returns a time-ordered copy of trades annotated with running
// positions. Trades that cross through zero are replaced by a closing fragment
// followed by an opening fragment.
func Accumulate(trades []models.Trade, opts Options) []models.Trade {
	sorted := make([]models.Trade, len(trades))
	copy(sorted, trades)
	SortTrades(sorted)

	total := make(map[string]float64)
	perAccount := make(map[AccountKey]float64)
	out := make([]models.Trade, 0, len(sorted))

	add := func(t models.Trade) {
		key := t.DisplayName()
		ak := AccountKey{Account: t.Account, DisplayName: key}
		if t.Action != models.ActionTransfer || opts.IncludeTransfersInTotal {
			total[key] = snap(total[key] + t.Quantity)
		}
		perAccount[ak] = snap(perAccount[ak] + t.Quantity)
		t.AccumulatedQuantity = total[key]
		t.AccountAccumulatedQuantity = perAccount[ak]
		out = append(out, t)
	}

	for _, t := range sorted {
		if t.Action != models.ActionCloseOpen {
			add(t)
			continue
		}
		for _, part := range SplitAtZero(t, total[t.DisplayName()]) {
			add(part)
		}
	}
	return out
}

// SplitAtZero resolves a Close/Open trade against the position held before it.
// When the trade flips the sign of the position it is cut where the position
// is exactly flat: a closing fragment of -prior units and an opening fragment
// with the rest. Fragments carry pro-rated money fields and their own identity.
// A trade that does not flip is reclassified whole.
func SplitAtZero(t models.Trade, prior float64) []models.Trade {
	after := prior + t.Quantity
	if prior == 0 || after == 0 || (prior > 0) == (after > 0) {
		t.Action = moveAction(prior, after)
		t.Type = normalize.ClassifyType(t.Action, t.Code, t.Quantity)
		return []models.Trade{t}
	}

	closing := fragment(t, -prior, models.ActionClose)
	opening := fragment(t, after, models.ActionOpen)
	return []models.Trade{closing, opening}
}

func fragment(t models.Trade, quantity float64, action models.Action) models.Trade {
	f := quantity / t.Quantity
	t.Quantity = quantity
	t.OrigQuantity *= f
	t.Proceeds *= f
	t.Commission *= f
	t.Basis *= f
	t.RealizedPL *= f
	t.Action = action
	t.Type = normalize.ClassifyType(action, t.Code, quantity)
	t.Hash = normalize.Identity(&t)
	return t
}

func moveAction(prior, after float64) models.Action {
	switch {
	case prior == 0:
		return models.ActionOpen
	case after == 0:
		return models.ActionClose
	case math.Abs(after) > math.Abs(prior):
		return models.ActionOpen
	}
	return models.ActionClose
}

// OpenPositions returns the non-flat instrument-wide positions as of at.
// trades must be in the order produced by Accumulate.
func OpenPositions(trades []models.Trade, at time.Time) map[string]float64 {
	latest := make(map[string]float64)
	for _, t := range trades {
		if t.Time.After(at) {
			break
		}
		latest[t.DisplayName()] = t.AccumulatedQuantity
	}
	for k, v := range latest {
		if math.Abs(v) < Epsilon {
			delete(latest, k)
		}
	}
	return latest
}

// AccountPositions returns the per-account positions as of at, including flat
// ones for every account that traded the instrument.
func AccountPositions(trades []models.Trade, at time.Time) map[AccountKey]float64 {
	latest := make(map[AccountKey]float64)
	for _, t := range trades {
		if t.Time.After(at) {
			break
		}
		latest[AccountKey{Account: t.Account, DisplayName: t.DisplayName()}] = t.AccountAccumulatedQuantity
	}
	return latest
}

func snap(v float64) float64 {
	if math.Abs(v) < Epsilon {
		return 0
	}
	return v
}
