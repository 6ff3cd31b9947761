// Package corpactions applies corporate actions to trade history.
package corpactions

import (
	"sort"
	"time"

	"taxlot-matcher-go/internal/models"
)

// Splits holds the split actions of each raw symbol in ascending time order
// together with the cumulative ratio of every split from that index onwards.
type Splits struct {
	bySymbol map[string]splitSeries
}

type splitSeries struct {
	times []time.Time
	// tail[i] is the product of ratios of splits i..n-1; tail[n] is 1.
	tail []float64
}

// NewSplits indexes the split actions found in actions.
func NewSplits(actions []models.CorporateAction) *Splits {
	grouped := make(map[string][]models.CorporateAction)
	for _, a := range actions {
		if a.Kind != models.KindSplit || a.Ratio <= 0 {
			continue
		}
		grouped[a.Symbol] = append(grouped[a.Symbol], a)
	}

	s := &Splits{bySymbol: make(map[string]splitSeries, len(grouped))}
	for symbol, list := range grouped {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Time.Before(list[j].Time) })
		series := splitSeries{
			times: make([]time.Time, len(list)),
			tail:  make([]float64, len(list)+1),
		}
		series.tail[len(list)] = 1
		for i := len(list) - 1; i >= 0; i-- {
			series.times[i] = list[i].Time
			series.tail[i] = series.tail[i+1] * list[i].Ratio
		}
		s.bySymbol[symbol] = series
	}
	return s
}

// RatioAfter returns the product of the ratios of all splits of symbol that take
// effect strictly after at, or 1 when there are none.
func (s *Splits) RatioAfter(symbol string, at time.Time) float64 {
	series, ok := s.bySymbol[symbol]
	if !ok {
		return 1
	}
	idx := sort.Search(len(series.times), func(i int) bool { return series.times[i].After(at) })
	return series.tail[idx]
}

// ratioFor looks the trade up by raw symbol first and by canonical ticker when
// the raw symbol has no splits, so renamed history follows the new listing.
func (s *Splits) ratioFor(t *models.Trade) float64 {
	if t.DisplaySuffix != "" {
		return 1
	}
	if _, ok := s.bySymbol[t.Symbol]; ok {
		return s.RatioAfter(t.Symbol, t.Time)
	}
	return s.RatioAfter(t.Ticker, t.Time)
}

// Adjust returns copies of trades restated in current share-count terms. It
// always recomputes from the original quantity and price, so applying it twice
// gives the same result as applying it once.
func Adjust(trades []models.Trade, actions []models.CorporateAction) []models.Trade {
	splits := NewSplits(actions)
	out := make([]models.Trade, len(trades))
	for i, t := range trades {
		ratio := splits.ratioFor(&t)
		t.SplitRatio = ratio
		t.Quantity = t.OrigQuantity * ratio
		t.Price = t.OrigPrice / ratio
		out[i] = t
	}
	return out
}

// AdjustSnapshots restates reported positions by the splits that happen after
// the end of the report day.
func AdjustSnapshots(snapshots []models.PositionSnapshot, actions []models.CorporateAction) []models.PositionSnapshot {
	splits := NewSplits(actions)
	out := make([]models.PositionSnapshot, len(snapshots))
	for i, p := range snapshots {
		ratio := splits.RatioAfter(p.Symbol, EndOfDay(p.Date))
		p.Quantity *= ratio
		if ratio != 0 {
			p.Price /= ratio
		}
		out[i] = p
	}
	return out
}

// EndOfDay returns the last representable instant of the day containing t.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
