package reconcile

import (
	"math"
	"sort"
	"time"

	"taxlot-matcher-go/internal/models"
	"taxlot-matcher-go/internal/position"
)

// Rename is a hypothesis that Old was renamed to New. It is only a proposal
// until a user accepts it.
type Rename struct {
	Account  string
	Old      string
	New      string
	Date     time.Time // snapshot day the hypothesis was formed on
	Quantity float64
	Currency string
}

// EffectiveDate is the instant from which the old symbol no longer maps to
// the new ticker.
func (r Rename) EffectiveDate() time.Time {
	return r.Date.AddDate(0, 0, 1)
}

// Mapping returns the symbol mapping that applies the rename.
func (r Rename) Mapping() models.SymbolMapping {
	change := r.EffectiveDate()
	return models.SymbolMapping{Symbol: r.Old, Ticker: r.New, ChangeDate: &change, Manual: true}
}

// Explains reports whether m is one of the two mismatches behind the rename.
func (r Rename) Explains(m Mismatch) bool {
	return m.Account == r.Account &&
		m.Date.Equal(r.Date) &&
		(m.Ticker == r.Old || m.Ticker == r.New) &&
		math.Abs(math.Abs(m.Difference)-r.Quantity) < position.Epsilon
}

type window struct {
	first, last time.Time
}

func activityWindows(trades []models.Trade) map[string]window {
	out := make(map[string]window)
	for _, t := range trades {
		w, ok := out[t.Ticker]
		if !ok {
			out[t.Ticker] = window{first: t.Time, last: t.Time}
			continue
		}
		if t.Time.Before(w.first) {
			w.first = t.Time
		}
		if t.Time.After(w.last) {
			w.last = t.Time
		}
		out[t.Ticker] = w
	}
	return out
}

// ProposeRenames pairs mismatches of equal magnitude and opposite sign found in
// the same account on the same day. The side with surplus is the old symbol:
// history still holds it while the broker reports the shares under the new
// name. The old symbol's activity must end before the new one's begins and
// both must trade in the same currency. Each mismatch backs at most one
// proposal.
func ProposeRenames(mismatches []Mismatch, windows map[string]window) []Rename {
	sorted := make([]Mismatch, len(mismatches))
	copy(sorted, mismatches)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Account != b.Account {
			return a.Account < b.Account
		}
		return a.Ticker < b.Ticker
	})

	used := make([]bool, len(sorted))
	var out []Rename
	for i, old := range sorted {
		if used[i] || old.Difference <= 0 {
			continue
		}
		for j, cand := range sorted {
			if used[j] || cand.Difference >= 0 ||
				!cand.Date.Equal(old.Date) || cand.Account != old.Account ||
				math.Abs(cand.Difference+old.Difference) >= position.Epsilon ||
				cand.Currency != old.Currency {
				continue
			}
			if !disjoint(windows[old.Ticker], windows[cand.Ticker]) {
				continue
			}
			used[i], used[j] = true, true
			out = append(out, Rename{
				Account:  old.Account,
				Old:      old.Ticker,
				New:      cand.Ticker,
				Date:     old.Date,
				Quantity: old.Difference,
				Currency: old.Currency,
			})
			break
		}
	}
	return out
}

// disjoint reports whether the old window ends before the new one starts. A
// symbol that never traded has no window and overlaps nothing.
func disjoint(old, next window) bool {
	if old.last.IsZero() || next.first.IsZero() {
		return true
	}
	return old.last.Before(next.first)
}
