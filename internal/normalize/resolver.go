package normalize

import (
	"time"

	"taxlot-matcher-go/internal/models"
)

// Resolver maps raw broker symbols to canonical tickers.
type Resolver struct {
	mappings map[string]models.SymbolMapping
}

// NewResolver indexes mappings by raw symbol. Later entries override earlier ones.
func NewResolver(mappings []models.SymbolMapping) *Resolver {
	r := &Resolver{mappings: make(map[string]models.SymbolMapping, len(mappings))}
	for _, m := range mappings {
		r.mappings[m.Symbol] = m
	}
	return r
}

// Ticker returns the canonical ticker for symbol at the given time. A mapping
// with a change date only covers activity strictly before that date; afterwards
// the raw symbol belongs to whoever uses it next.
func (r *Resolver) Ticker(symbol string, at time.Time) string {
	m, ok := r.mappings[symbol]
	if !ok || m.Ticker == "" {
		return symbol
	}
	if m.ChangeDate != nil && !at.Before(*m.ChangeDate) {
		return symbol
	}
	return m.Ticker
}

// Apply returns a copy of trades with tickers resolved.
func (r *Resolver) Apply(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, len(trades))
	for i, t := range trades {
		t.Ticker = r.Ticker(t.Symbol, t.Time)
		out[i] = t
	}
	return out
}
