// Package normalize turns imported transaction records into canonical trades.
package normalize

import (
	"strings"
	"time"

	"taxlot-matcher-go/internal/models"
)

// Record is a transaction as delivered by an importer, before classification.
type Record struct {
	Account       string
	Symbol        string
	DisplaySuffix string
	Currency      string
	Time          time.Time
	Quantity      float64
	Price         float64
	Proceeds      float64
	Commission    float64
	Basis         float64
	RealizedPL    float64
	Code          string
	Transfer      bool
	Target        string
	Manual        bool
}

// Diagnostic describes a trade that could not be classified.
type Diagnostic struct {
	Hash    string
	Account string
	Symbol  string
	Time    time.Time
	Code    string
	Reason  string
}

// ClassifyAction reads the opening and closing markers of a broker code.
func ClassifyAction(code string) models.Action {
	var open, closing bool
	for _, marker := range strings.Split(code, ";") {
		switch strings.TrimSpace(marker) {
		case "O", "Ca":
			open = true
		case "C":
			closing = true
		}
	}
	switch {
	case open && closing:
		return models.ActionCloseOpen
	case open:
		return models.ActionOpen
	case closing:
		return models.ActionClose
	}
	return models.ActionUnknown
}

// ClassifyType derives the trade type from its action, code and signed quantity.
// Zero-crossing trades without a lifecycle marker stay Unknown until the
// accumulator splits them.
func ClassifyType(action models.Action, code string, quantity float64) models.Type {
	if action == models.ActionTransfer {
		switch {
		case quantity > 0:
			return models.TypeTransferIn
		case quantity < 0:
			return models.TypeTransferOut
		}
		return models.TypeUnknown
	}
	if action == models.ActionUnknown {
		return models.TypeUnknown
	}

	markers := strings.Split(code, ";")
	for _, m := range markers {
		switch strings.TrimSpace(m) {
		case "Ex":
			return models.TypeExercised
		case "Ep":
			return models.TypeExpired
		case "A":
			return models.TypeAssigned
		}
	}

	switch action {
	case models.ActionOpen:
		if quantity > 0 {
			return models.TypeLong
		}
		return models.TypeShort
	case models.ActionClose:
		if quantity < 0 {
			return models.TypeLong
		}
		return models.TypeShort
	}
	return models.TypeUnknown
}

// NewTrade classifies a single record. The returned diagnostic is non-nil when
// the record carries no usable code; the trade is still returned.
func NewTrade(rec Record, seq int) (models.Trade, *Diagnostic) {
	action := models.ActionTransfer
	if !rec.Transfer {
		action = ClassifyAction(rec.Code)
	}

	t := models.Trade{
		Account:       rec.Account,
		Symbol:        rec.Symbol,
		Ticker:        rec.Symbol,
		DisplaySuffix: rec.DisplaySuffix,
		Currency:      rec.Currency,
		Time:          rec.Time,
		OrigQuantity:  rec.Quantity,
		OrigPrice:     rec.Price,
		Quantity:      rec.Quantity,
		Price:         rec.Price,
		Proceeds:      rec.Proceeds,
		Commission:    rec.Commission,
		Basis:         rec.Basis,
		RealizedPL:    rec.RealizedPL,
		Code:          rec.Code,
		Action:        action,
		Type:          ClassifyType(action, rec.Code, rec.Quantity),
		Target:        rec.Target,
		Manual:        rec.Manual,
		Seq:           seq,
		SplitRatio:    1,
	}
	t.Hash = Identity(&t)

	if t.Action == models.ActionUnknown || (t.Action == models.ActionTransfer && t.Type == models.TypeUnknown) {
		return t, &Diagnostic{
			Hash:    t.Hash,
			Account: t.Account,
			Symbol:  t.Symbol,
			Time:    t.Time,
			Code:    t.Code,
			Reason:  "unclassifiable code",
		}
	}
	return t, nil
}

// Normalize classifies records in import order and drops duplicates by identity.
func Normalize(records []Record) ([]models.Trade, []Diagnostic) {
	trades := make([]models.Trade, 0, len(records))
	var diags []Diagnostic
	for i, rec := range records {
		t, diag := NewTrade(rec, i)
		if diag != nil {
			diags = append(diags, *diag)
		}
		trades = append(trades, t)
	}
	return MergeTrades(nil, trades), diags
}

// MergeTrades appends incoming trades to existing ones, keeping the first
// occurrence of every identity.
func MergeTrades(existing, incoming []models.Trade) []models.Trade {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]models.Trade, 0, len(existing)+len(incoming))
	for _, batch := range [][]models.Trade{existing, incoming} {
		for _, t := range batch {
			if _, dup := seen[t.Hash]; dup {
				continue
			}
			seen[t.Hash] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}
