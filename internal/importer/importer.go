// Package importer reads normalized broker exports in CSV form.
package importer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"taxlot-matcher-go/internal/corpactions"
	"taxlot-matcher-go/internal/models"
	"taxlot-matcher-go/internal/normalize"
)

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

type tradeRow struct {
	Account    string  `csv:"account"`
	Symbol     string  `csv:"symbol"`
	Suffix     string  `csv:"suffix"`
	Currency   string  `csv:"currency"`
	Time       string  `csv:"time"`
	Quantity   float64 `csv:"quantity"`
	Price      float64 `csv:"price"`
	Proceeds   float64 `csv:"proceeds"`
	Commission float64 `csv:"commission"`
	Basis      float64 `csv:"basis"`
	RealizedPL float64 `csv:"realized_pl"`
	Code       string  `csv:"code"`
	Transfer   bool    `csv:"transfer"`
	Target     string  `csv:"target"`
}

type actionRow struct {
	Account     string  `csv:"account"`
	Symbol      string  `csv:"symbol"`
	Time        string  `csv:"time"`
	Kind        string  `csv:"kind"`
	Ratio       float64 `csv:"ratio"`
	Quantity    float64 `csv:"quantity"`
	Proceeds    float64 `csv:"proceeds"`
	Currency    string  `csv:"currency"`
	Description string  `csv:"description"`
}

type snapshotRow struct {
	Account  string  `csv:"account"`
	Symbol   string  `csv:"symbol"`
	Date     string  `csv:"date"`
	Quantity float64 `csv:"quantity"`
	Price    float64 `csv:"price"`
	Currency string  `csv:"currency"`
}

// ParseTime accepts RFC 3339, "2006-01-02 15:04:05" and plain dates.
// Values without a zone are read as UTC.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

// ReadTrades classifies every row of a trades CSV. Sequence numbers start at
// firstSeq so a new batch sorts after trades imported earlier at the same
// instant. Duplicate rows are dropped.
func ReadTrades(r io.Reader, firstSeq int) ([]models.Trade, []normalize.Diagnostic, error) {
	var rows []*tradeRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, nil, fmt.Errorf("failed to parse trades: %w", err)
	}

	trades := make([]models.Trade, 0, len(rows))
	var diags []normalize.Diagnostic
	for i, row := range rows {
		at, err := ParseTime(row.Time)
		if err != nil {
			return nil, nil, fmt.Errorf("trades row %d: %w", i+1, err)
		}
		t, diag := normalize.NewTrade(normalize.Record{
			Account:       strings.TrimSpace(row.Account),
			Symbol:        strings.TrimSpace(row.Symbol),
			DisplaySuffix: row.Suffix,
			Currency:      strings.TrimSpace(row.Currency),
			Time:          at,
			Quantity:      row.Quantity,
			Price:         row.Price,
			Proceeds:      row.Proceeds,
			Commission:    row.Commission,
			Basis:         row.Basis,
			RealizedPL:    row.RealizedPL,
			Code:          strings.TrimSpace(row.Code),
			Transfer:      row.Transfer,
			Target:        strings.TrimSpace(row.Target),
		}, firstSeq+i)
		if diag != nil {
			diags = append(diags, *diag)
		}
		trades = append(trades, t)
	}
	return normalize.MergeTrades(nil, trades), diags, nil
}

// ReadActions parses a corporate actions CSV. A split without an explicit
// ratio takes it from its description.
func ReadActions(r io.Reader) ([]models.CorporateAction, error) {
	var rows []*actionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse corporate actions: %w", err)
	}

	actions := make([]models.CorporateAction, 0, len(rows))
	for i, row := range rows {
		at, err := ParseTime(row.Time)
		if err != nil {
			return nil, fmt.Errorf("corporate actions row %d: %w", i+1, err)
		}
		a := models.CorporateAction{
			Account:     strings.TrimSpace(row.Account),
			Symbol:      strings.TrimSpace(row.Symbol),
			Time:        at,
			Kind:        parseKind(row.Kind),
			Ratio:       row.Ratio,
			Quantity:    row.Quantity,
			Proceeds:    row.Proceeds,
			Currency:    strings.TrimSpace(row.Currency),
			Description: row.Description,
		}
		if a.Kind == models.KindSplit && a.Ratio == 0 {
			symbol, _, ratio, ok := corpactions.ParseSplit(a.Description)
			if !ok {
				return nil, fmt.Errorf("corporate actions row %d: split without ratio", i+1)
			}
			a.Ratio = ratio
			if a.Symbol == "" {
				a.Symbol = symbol
			}
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func parseKind(kind string) models.ActionKind {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "split":
		return models.KindSplit
	case "spinoff", "spin-off":
		return models.KindSpinoff
	case "acquisition":
		return models.KindAcquisition
	case "dividend":
		return models.KindDividend
	}
	return models.KindUnknown
}

// ReadSnapshots parses a position snapshot CSV.
func ReadSnapshots(r io.Reader) ([]models.PositionSnapshot, error) {
	var rows []*snapshotRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse snapshots: %w", err)
	}

	snapshots := make([]models.PositionSnapshot, 0, len(rows))
	for i, row := range rows {
		at, err := ParseTime(row.Date)
		if err != nil {
			return nil, fmt.Errorf("snapshots row %d: %w", i+1, err)
		}
		snapshots = append(snapshots, models.PositionSnapshot{
			Account:  strings.TrimSpace(row.Account),
			Symbol:   strings.TrimSpace(row.Symbol),
			Date:     at,
			Quantity: row.Quantity,
			Price:    row.Price,
			Currency: strings.TrimSpace(row.Currency),
		})
	}
	return snapshots, nil
}
