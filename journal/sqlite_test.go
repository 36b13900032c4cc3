package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/orders"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteTradeRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	open := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	o := orders.Order{
		ID:          "01HX",
		Market:      "BTCUSDT",
		Side:        market.Sell,
		Amount:      2,
		Margin:      200,
		EntryPrice:  100,
		Time:        open,
		Status:      orders.StatusClosed,
		ClosePrice:  105,
		PnL:         -10,
		CloseReason: orders.ReasonStopLoss,
		ClosedAt:    open.Add(time.Minute),
	}
	require.NoError(t, j.RecordTrade(FromOrder(o)))

	got, err := j.GetTrade("01HX")
	require.NoError(t, err)
	assert.Equal(t, "SELL", got.Side)
	assert.Equal(t, "sl", got.Reason)
	assert.Equal(t, -10.0, got.RealizedPnL)
	assert.True(t, got.OpenTime.Equal(open))
	assert.True(t, got.CloseTime.Equal(open.Add(time.Minute)))

	_, err = j.GetTrade("nope")
	assert.Error(t, err)

	list, err := j.ListTradesClosedBetween(open, open.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = j.ListTradesClosedBetween(open.Add(time.Hour), open.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLiteEquity(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordEquity(EquitySnapshot{
			Time:      base.Add(time.Duration(i) * time.Minute),
			Cash:      1000,
			Available: 900,
			Reserved:  100,
			Total:     1000 + float64(i),
		}))
	}

	eq, err := j.ListEquityBetween(base, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, eq, 2)
	assert.Equal(t, 1001.0, eq[1].Total)
	assert.Equal(t, 100.0, eq[0].Reserved)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize([]TradeRecord{
		{RealizedPnL: 30},
		{RealizedPnL: -10},
		{RealizedPnL: -5},
		{RealizedPnL: 0},
	})
	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 1, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, 15.0, s.NetPnL)
	assert.Equal(t, 2.0, s.ProfitFactor)

	assert.Zero(t, Summarize(nil).ProfitFactor)
}
