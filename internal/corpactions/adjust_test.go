package corpactions

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxlot-matcher-go/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func split(symbol string, at time.Time, ratio float64) models.CorporateAction {
	return models.CorporateAction{Symbol: symbol, Time: at, Kind: models.KindSplit, Ratio: ratio}
}

func TestAdjust(t *testing.T) {
	actions := []models.CorporateAction{
		split("NVDA", day(2024, 6, 10), 10),
		split("NVDA", day(2021, 7, 20), 4),
		{Symbol: "NVDA", Time: day(2022, 1, 1), Kind: models.KindDividend, Ratio: 3},
	}
	trades := []models.Trade{
		{Symbol: "NVDA", Ticker: "NVDA", Time: day(2020, 1, 2), OrigQuantity: 1, OrigPrice: 400},
		{Symbol: "NVDA", Ticker: "NVDA", Time: day(2022, 1, 2), OrigQuantity: 2, OrigPrice: 300},
		{Symbol: "NVDA", Ticker: "NVDA", Time: day(2024, 6, 10), OrigQuantity: 3, OrigPrice: 120},
		{Symbol: "NVDA", Ticker: "NVDA", DisplaySuffix: " 21JUN24 100 C", Time: day(2020, 1, 2), OrigQuantity: 1, OrigPrice: 5},
		{Symbol: "AMD", Ticker: "AMD", Time: day(2020, 1, 2), OrigQuantity: 7, OrigPrice: 50},
	}

	adjusted := Adjust(trades, actions)

	testCases := []struct {
		name     string
		ratio    float64
		quantity float64
		price    float64
	}{
		{"before both splits", 40, 40, 10},
		{"between splits", 10, 20, 30},
		{"on the split instant", 1, 3, 120},
		{"option contract", 1, 1, 5},
		{"other symbol", 1, 7, 50},
	}
	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ratio, adjusted[i].SplitRatio)
			assert.InDelta(t, tc.quantity, adjusted[i].Quantity, 1e-9)
			assert.InDelta(t, tc.price, adjusted[i].Price, 1e-9)
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		assert.Equal(t, adjusted, Adjust(adjusted, actions))
	})

	t.Run("input untouched", func(t *testing.T) {
		assert.Zero(t, trades[0].Quantity)
	})
}

func TestAdjust_FollowsRenamedTicker(t *testing.T) {
	actions := []models.CorporateAction{split("META", day(2023, 1, 1), 2)}
	trades := []models.Trade{{Symbol: "FB", Ticker: "META", Time: day(2020, 1, 1), OrigQuantity: 5, OrigPrice: 200}}

	adjusted := Adjust(trades, actions)

	assert.Equal(t, 10.0, adjusted[0].Quantity)
	assert.Equal(t, 100.0, adjusted[0].Price)
}

func TestAdjustSnapshots(t *testing.T) {
	actions := []models.CorporateAction{split("TSLA", day(2022, 8, 25), 3)}
	snapshots := []models.PositionSnapshot{
		{Symbol: "TSLA", Date: time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), Quantity: 10, Price: 900},
		{Symbol: "TSLA", Date: time.Date(2022, 8, 25, 0, 0, 0, 0, time.UTC), Quantity: 30, Price: 300},
	}

	adjusted := AdjustSnapshots(snapshots, actions)

	assert.Equal(t, 30.0, adjusted[0].Quantity)
	assert.Equal(t, 300.0, adjusted[0].Price)
	assert.Equal(t, 30.0, adjusted[1].Quantity)
}

func TestParseSplit(t *testing.T) {
	testCases := []struct {
		description string
		symbol      string
		ratio       float64
		ok          bool
	}{
		{"AAPL(US0378331005) Split 4 for 1 (AAPL, APPLE INC, US0378331005)", "AAPL", 4, true},
		{"GE(US3696043013) Split 1 for 8 (GE, GENERAL ELECTRIC CO, US3696043013)", "GE", 0.125, true},
		{"BRK B(US0846707026) Split 2.5 for 1", "BRK B", 2.5, true},
		{"AAPL(US0378331005) Cash Dividend USD 0.24 per Share", "", 0, false},
		{"XYZ(US000) Split 0 for 1", "", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			symbol, _, ratio, ok := ParseSplit(tc.description)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.symbol, symbol)
			assert.Equal(t, tc.ratio, ratio)
		})
	}
}

func TestTransfers(t *testing.T) {
	at := day(2023, 4, 3)
	actions := []models.CorporateAction{
		{Symbol: "KD", Account: "U1", Time: at, Kind: models.KindSpinoff, Quantity: 20, Currency: "USD"},
		{Symbol: "TWTR", Account: "U1", Time: at, Kind: models.KindAcquisition, Quantity: -10, Proceeds: 542, Currency: "USD"},
		{Symbol: "KD", Account: "U1", Time: at, Kind: models.KindSpinoff},
		split("KD", at, 2),
	}

	transfers := Transfers(actions, 100)

	require.Len(t, transfers, 2)
	assert.Equal(t, models.TypeSpinoff, transfers[0].Type)
	assert.Equal(t, models.ActionTransfer, transfers[0].Action)
	assert.Equal(t, at.Add(-time.Second), transfers[0].Time)
	assert.Equal(t, 100, transfers[0].Seq)
	assert.Equal(t, models.TypeAcquisition, transfers[1].Type)
	assert.Equal(t, 542.0, transfers[1].Proceeds)
	assert.NotEqual(t, transfers[0].Hash, transfers[1].Hash)
}

func TestAdjust_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	splitAt := day(2022, 1, 1)

	properties.Property("2-for-1 split round trip recovers the original quantity", prop.ForAll(
		func(qty int, daysBefore int) bool {
			trade := models.Trade{Symbol: "X", Ticker: "X", Time: splitAt.AddDate(0, 0, -daysBefore), OrigQuantity: float64(qty), OrigPrice: 10}
			adjusted := Adjust([]models.Trade{trade}, []models.CorporateAction{split("X", splitAt, 2)})[0]
			return adjusted.Quantity/adjusted.SplitRatio == float64(qty) && adjusted.Quantity == 2*float64(qty)
		},
		gen.IntRange(-100000, 100000),
		gen.IntRange(1, 3650),
	))

	properties.Property("adjusting twice equals adjusting once", prop.ForAll(
		func(qty float64, price float64, ratio float64) bool {
			actions := []models.CorporateAction{split("X", splitAt, ratio), split("X", splitAt.AddDate(1, 0, 0), 3)}
			trade := models.Trade{Symbol: "X", Ticker: "X", Time: splitAt.AddDate(0, -1, 0), OrigQuantity: qty, OrigPrice: price}
			once := Adjust([]models.Trade{trade}, actions)
			twice := Adjust(once, actions)
			return once[0] == twice[0]
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(0.01, 1e4),
		gen.Float64Range(0.1, 20),
	))

	properties.TestingRun(t)
}
