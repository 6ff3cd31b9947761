package report

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"taxlot-matcher-go/internal/models"
)

type pairRow struct {
	DisplayName string  `csv:"display_name"`
	Currency    string  `csv:"currency"`
	OpenTime    string  `csv:"open_time"`
	CloseTime   string  `csv:"close_time"`
	Quantity    float64 `csv:"quantity"`
	BuyPrice    float64 `csv:"buy_price"`
	SellPrice   float64 `csv:"sell_price"`
	Cost        string  `csv:"cost"`
	Proceeds    string  `csv:"proceeds"`
	Revenue     string  `csv:"revenue"`
	Ratio       float64 `csv:"ratio"`
	HoldingDays int     `csv:"holding_days"`
	Taxable     bool    `csv:"taxable"`
	Type        string  `csv:"type"`
	Strategy    string  `csv:"strategy"`
	RunID       string  `csv:"run_id"`
	OpenTrade   string  `csv:"open_trade"`
	CloseTrade  string  `csv:"close_trade"`
}

type summaryRow struct {
	Year            int    `csv:"year"`
	Currency        string `csv:"currency"`
	Pairs           int    `csv:"pairs"`
	TaxablePairs    int    `csv:"taxable_pairs"`
	ExemptPairs     int    `csv:"exempt_pairs"`
	TaxableCost     string `csv:"taxable_cost"`
	TaxableProceeds string `csv:"taxable_proceeds"`
	TaxableRevenue  string `csv:"taxable_revenue"`
	ExemptRevenue   string `csv:"exempt_revenue"`
	Unpaired        int    `csv:"unpaired"`
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixedBank(places)
}

// WritePairs writes one CSV row per pair in the given order.
func WritePairs(w io.Writer, pairs []models.Pair) error {
	rows := make([]*pairRow, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, &pairRow{
			DisplayName: p.DisplayName,
			Currency:    p.Currency,
			OpenTime:    p.OpenTime.UTC().Format(time.RFC3339),
			CloseTime:   p.CloseTime.UTC().Format(time.RFC3339),
			Quantity:    p.Quantity,
			BuyPrice:    p.BuyPrice,
			SellPrice:   p.SellPrice,
			Cost:        money(p.Cost),
			Proceeds:    money(p.Proceeds),
			Revenue:     money(p.Revenue),
			Ratio:       p.Ratio,
			HoldingDays: p.HoldingDays,
			Taxable:     p.Taxable,
			Type:        string(p.Type),
			Strategy:    p.Strategy,
			RunID:       p.RunID,
			OpenTrade:   p.OpenTradeHash,
			CloseTrade:  p.CloseTradeHash,
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write pairs: %w", err)
	}
	return nil
}

// WriteSummary writes one CSV row per year and currency. The unpaired count
// is per year and repeated on every currency row of that year.
func WriteSummary(w io.Writer, s Summary) error {
	rows := make([]*summaryRow, 0, len(s.Years))
	for _, y := range s.Years {
		rows = append(rows, &summaryRow{
			Year:            y.Year,
			Currency:        y.Currency,
			Pairs:           y.Pairs,
			TaxablePairs:    y.TaxablePairs,
			ExemptPairs:     y.ExemptPairs,
			TaxableCost:     y.TaxableCost.StringFixed(places),
			TaxableProceeds: y.TaxableProceeds.StringFixed(places),
			TaxableRevenue:  y.TaxableRevenue.StringFixed(places),
			ExemptRevenue:   y.ExemptRevenue.StringFixed(places),
			Unpaired:        s.UnpairedByYear[y.Year],
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
