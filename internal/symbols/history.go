// Package symbols maintains symbol mappings and the rename history they are built from.
package symbols

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"taxlot-matcher-go/internal/models"
)

const dateLayout = "2006-01-02"

// ErrHistoryUnavailable is returned when no rename history source is configured.
var ErrHistoryUnavailable = errors.New("rename history unavailable")

// Entry is one known rename: Old became New on Date.
type Entry struct {
	Old  string    `json:"old"`
	New  string    `json:"new"`
	Date time.Time `json:"date"`
}

// Source provides rename history.
type Source interface {
	Fetch(ctx context.Context) ([]Entry, error)
}

type historyRow struct {
	Old  string `csv:"old"`
	New  string `csv:"new"`
	Date string `csv:"date"`
}

// FileSource reads rename history from a CSV file with old,new,date columns.
type FileSource struct {
	Path string
}

// Fetch implements Source.
func (s FileSource) Fetch(_ context.Context) ([]Entry, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rename history: %w", err)
	}
	defer f.Close()

	var rows []*historyRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse rename history %s: %w", s.Path, err)
	}

	entries := make([]Entry, 0, len(rows))
	for i, r := range rows {
		at, err := time.Parse(dateLayout, strings.TrimSpace(r.Date))
		if err != nil {
			return nil, fmt.Errorf("rename history %s row %d: %w", s.Path, i+1, err)
		}
		entries = append(entries, Entry{Old: strings.TrimSpace(r.Old), New: strings.TrimSpace(r.New), Date: at})
	}
	return entries, nil
}

// Merge folds rename history into the existing mappings. Manual mappings and
// mappings that already carry a change date are left alone; history entries
// for symbols that never traded are ignored. The result is sorted by symbol.
func Merge(existing []models.SymbolMapping, history []Entry, traded map[string]bool) []models.SymbolMapping {
	bySymbol := make(map[string]models.SymbolMapping, len(existing))
	for _, m := range existing {
		bySymbol[m.Symbol] = m
	}

	for _, e := range history {
		if !traded[e.Old] || e.Old == e.New {
			continue
		}
		current, ok := bySymbol[e.Old]
		if ok && (current.Manual || current.ChangeDate != nil) {
			continue
		}
		change := e.Date
		bySymbol[e.Old] = models.SymbolMapping{Symbol: e.Old, Ticker: e.New, ChangeDate: &change}
	}

	out := make([]models.SymbolMapping, 0, len(bySymbol))
	for _, m := range bySymbol {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Sync fetches history from src and merges it into existing.
func Sync(ctx context.Context, src Source, existing []models.SymbolMapping, traded map[string]bool) ([]models.SymbolMapping, error) {
	if src == nil {
		return nil, ErrHistoryUnavailable
	}
	history, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rename history: %w", err)
	}
	return Merge(existing, history, traded), nil
}
