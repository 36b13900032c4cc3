package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%5)
	}
	return out
}

func TestStreamingMatchesBatch(t *testing.T) {
	t.Parallel()

	closes := wave(80)
	candles := closesToCandles(closes)

	ema := NewExponentialMA(12)
	atr := NewWilderATR(14)
	rsi := NewWilderRSI(14)
	Feed(candles, ema, atr, rsi)

	wantEMA, err := EMA(closes, 12)
	require.NoError(t, err)
	wantATR, err := ATR(candles, 14)
	require.NoError(t, err)
	wantRSI, err := RSI(closes, 14)
	require.NoError(t, err)

	assert.InDelta(t, wantEMA, ema.Value(), 1e-9)
	assert.InDelta(t, wantATR, atr.Value(), 1e-9)
	assert.InDelta(t, wantRSI, rsi.Value(), 1e-9)
}

func TestStreamingWarmup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ind    Indicator
		name   string
		warmup int
	}{
		{NewExponentialMA(5), "EMA(5)", 5},
		{NewWilderATR(5), "ATR(5)", 6},
		{NewWilderRSI(5), "RSI(5)", 6},
	}

	candles := closesToCandles(ramp(10, 100, 1))
	for _, tt := range tests {
		ind := tt.ind
		assert.Equal(t, tt.name, ind.Name())
		assert.Equal(t, tt.warmup, ind.Warmup())

		Feed(candles[:tt.warmup-1], ind)
		assert.False(t, ind.Ready(), tt.name)
		assert.Zero(t, ind.Value(), tt.name)

		Feed(candles[tt.warmup-1:tt.warmup], ind)
		assert.True(t, ind.Ready(), tt.name)
		assert.NotZero(t, ind.Value(), tt.name)

		ind.Reset()
		assert.False(t, ind.Ready(), tt.name)
		assert.Zero(t, ind.Value(), tt.name)
	}
}

func TestStreamingRSIEdges(t *testing.T) {
	t.Parallel()

	flat := NewWilderRSI(3)
	Feed(closesToCandles([]float64{10, 10, 10, 10}), flat)
	assert.Equal(t, 50.0, flat.Value())

	up := NewWilderRSI(3)
	Feed(closesToCandles([]float64{10, 11, 12, 13}), up)
	assert.Equal(t, 100.0, up.Value())
}
