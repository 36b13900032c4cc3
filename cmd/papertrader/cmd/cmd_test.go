package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/internal/logging"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/paper"
)

func TestReplayTakeProfit(t *testing.T) {
	cfg := config.Default()
	ticks := `time,market,price
1704067200000,BTCUSDT,100
1704067201000,BTCUSDT,102
1704067202000,BTCUSDT,106
1704067203000,BTCUSDT,90
`
	opts := replayOptions{
		Market: "BTCUSDT",
		Order: &paper.OrderParams{
			Side:       market.Buy,
			Amount:     1,
			TakeProfit: 105,
			StopLoss:   95,
		},
	}

	var out bytes.Buffer
	err := replay(context.Background(), cfg, strings.NewReader(ticks), opts, &out, logging.Discard())
	require.NoError(t, err)

	report := out.String()
	assert.Contains(t, report, "Replayed 4 ticks")
	assert.Contains(t, report, "tp")
	assert.Contains(t, report, "Cash:       10006.0000")
	assert.Contains(t, report, "Unrealized: 0.0000")
}

func TestReplaySkipsInvalidTicks(t *testing.T) {
	cfg := config.Default()
	ticks := `time,market,price
1704067199000,BTCUSDT,0
1704067200000,BTCUSDT,100
1704067201000,BTCUSDT,0
1704067202000,BTCUSDT,-5
1704067203000,BTCUSDT,111
`
	opts := replayOptions{
		Market: "BTCUSDT",
		Order: &paper.OrderParams{
			Side:       market.Buy,
			Amount:     1,
			TakeProfit: 110,
			StopLoss:   95,
		},
	}

	var out bytes.Buffer
	err := replay(context.Background(), cfg, strings.NewReader(ticks), opts, &out, logging.Discard())
	require.NoError(t, err)

	report := out.String()
	assert.Contains(t, report, "100.0000")
	assert.Contains(t, report, "111.0000")
	assert.Contains(t, report, "Cash:       10011.0000")
}

func TestReplayRejectsBadOrder(t *testing.T) {
	cfg := config.Default()
	opts := replayOptions{
		Order: &paper.OrderParams{Side: market.Buy, Amount: 1, TakeProfit: 90},
	}

	var out bytes.Buffer
	err := replay(context.Background(), cfg, strings.NewReader("1704067200000,BTCUSDT,100\n"), opts, &out, logging.Discard())
	require.Error(t, err)
	assert.ErrorIs(t, err, paper.ErrInvalidOrder)
}

func TestDayBounds(t *testing.T) {
	t.Parallel()

	start, end, err := dayBounds(time.UTC, "2026-03-08")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(time.UTC, "08/03/2026")
	assert.Error(t, err)
}

func TestJournalDayAndSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.sqlite")
	j, err := journal.NewSQLite(path)
	require.NoError(t, err)

	closed := time.Date(2026, 2, 3, 12, 0, 0, 0, time.Local)
	for i, pnl := range []float64{12, -4} {
		require.NoError(t, j.RecordTrade(journal.TradeRecord{
			OrderID:     []string{"a", "b"}[i],
			Market:      "BTCUSDT",
			Side:        "BUY",
			Amount:      1,
			Margin:      100,
			EntryPrice:  100,
			ExitPrice:   100 + pnl,
			OpenTime:    closed.Add(-time.Hour),
			CloseTime:   closed,
			RealizedPnL: pnl,
			Reason:      "tp",
		}))
	}
	require.NoError(t, j.Close())

	old := journalDBPath
	journalDBPath = path
	t.Cleanup(func() { journalDBPath = old })

	var out bytes.Buffer
	require.NoError(t, listDay(&out, "2026-02-03"))
	assert.Contains(t, out.String(), "ORDER")
	assert.Equal(t, 3, strings.Count(out.String(), "\n"))

	out.Reset()
	require.NoError(t, listDay(&out, "2026-02-04"))
	assert.Equal(t, "No trades.\n", out.String())

	out.Reset()
	writeSummary(&out, journal.Summarize([]journal.TradeRecord{{RealizedPnL: 12}, {RealizedPnL: -4}}))
	assert.Contains(t, out.String(), "Trades:        2 (1 wins, 1 losses)")
	assert.Contains(t, out.String(), "Profit factor: 3.00")
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papertrader.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"config", "init", "-o", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Created default configuration")

	out.Reset()
	rootCmd.SetArgs([]string{"config", "validate", "-f", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Configuration valid")
	assert.Contains(t, out.String(), "BTCUSDT")
}
