package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxlot-matcher-go/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	// every test gets its own named in-memory database
	db, err := NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return NewStore(db)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 30, 0, 0, time.UTC)
}

func TestStore_Trades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	seq, err := store.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, seq)

	trades := []models.Trade{
		{Hash: "b", Account: "U1", Symbol: "AAPL", Ticker: "AAPL", Time: day(2021, 3, 1), OrigQuantity: -5, Quantity: -5, Seq: 1, Action: models.ActionClose, Type: models.TypeLong},
		{Hash: "a", Account: "U1", Symbol: "AAPL", Ticker: "AAPL", Time: day(2020, 1, 2), OrigQuantity: 10, Quantity: 10, Seq: 0, Action: models.ActionOpen, Type: models.TypeLong},
	}

	// Act
	inserted, err := store.SaveTrades(ctx, trades)
	require.NoError(t, err)
	again, err := store.SaveTrades(ctx, trades[:1])
	require.NoError(t, err)
	loaded, err := store.LoadTrades(ctx)
	require.NoError(t, err)
	seq, err = store.NextSeq(ctx)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, int64(2), inserted)
	assert.Equal(t, int64(0), again)
	require.Len(t, loaded, 2)
	assert.Equal(t, "a", loaded[0].Hash)
	assert.Equal(t, "b", loaded[1].Hash)
	assert.Equal(t, 1.0, loaded[0].SplitRatio)
	assert.True(t, loaded[0].Time.Equal(day(2020, 1, 2)))
	assert.Equal(t, 2, seq)
}

func TestStore_ActionsSnapshotsMappings(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	split := models.CorporateAction{Symbol: "NVDA", Account: "U1", Time: day(2024, 6, 10), Kind: models.KindSplit, Ratio: 10}
	n, err := store.SaveActions(ctx, []models.CorporateAction{split})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = store.SaveActions(ctx, []models.CorporateAction{split})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	actions, err := store.LoadActions(ctx)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, 10.0, actions[0].Ratio)

	snap := models.PositionSnapshot{Account: "U1", Symbol: "NVDA", Date: day(2024, 12, 31), Quantity: 100}
	require.NoError(t, store.SaveSnapshots(ctx, []models.PositionSnapshot{snap}))
	snap.Quantity = 120
	require.NoError(t, store.SaveSnapshots(ctx, []models.PositionSnapshot{snap}))
	snapshots, err := store.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 120.0, snapshots[0].Quantity)

	change := day(2022, 6, 9)
	require.NoError(t, store.SaveMappings(ctx, []models.SymbolMapping{{Symbol: "FB", Ticker: "FB"}}))
	require.NoError(t, store.SaveMappings(ctx, []models.SymbolMapping{{Symbol: "FB", Ticker: "META", ChangeDate: &change, Manual: true}}))
	mappings, err := store.LoadMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "META", mappings[0].Ticker)
	assert.True(t, mappings[0].Manual)
	require.NotNil(t, mappings[0].ChangeDate)
	assert.True(t, mappings[0].ChangeDate.Equal(change))
}

func TestStore_ReplacePairsFrom(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := []models.Pair{
		{DisplayName: "AAPL", CloseTime: day(2021, 5, 1), CloseYear: 2021, Quantity: 5},
		{DisplayName: "AAPL", CloseTime: day(2023, 5, 1), CloseYear: 2023, Quantity: 3},
	}
	require.NoError(t, store.ReplacePairsFrom(ctx, 0, first, models.PairingRun{ID: "run-1", Strategy: "FIFO", CreatedAt: day(2024, 1, 1)}))

	// Act
	second := []models.Pair{
		{DisplayName: "AAPL", CloseTime: day(2021, 5, 1), CloseYear: 2021, Quantity: 99}, // before the cut, ignored
		{DisplayName: "AAPL", CloseTime: day(2023, 5, 1), CloseYear: 2023, Quantity: 4},
		{DisplayName: "MSFT", CloseTime: day(2024, 2, 1), CloseYear: 2024, Quantity: 1},
	}
	err := store.ReplacePairsFrom(ctx, 2022, second, models.PairingRun{ID: "run-2", Strategy: "LIFO", FromYear: 2022, CreatedAt: day(2024, 2, 1)})
	require.NoError(t, err)

	// Assert
	pairs, err := store.LoadPairs(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 3)
	assert.Equal(t, 5.0, pairs[0].Quantity)
	assert.Equal(t, 4.0, pairs[1].Quantity)
	assert.Equal(t, "MSFT", pairs[2].DisplayName)

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-2", run.ID)
	assert.Equal(t, 2, run.PairCount)
}

func TestStore_LatestRunEmpty(t *testing.T) {
	store := newTestStore(t)

	run, err := store.LatestRun(context.Background())

	require.NoError(t, err)
	assert.Nil(t, run)
}
