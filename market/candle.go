// Package market holds the market-data vocabulary shared by the engine:
// candles, price ticks, order sides and per-market tick-size metadata.
package market

import (
	"sort"
	"time"
)

// Candle is one OHLCV bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Normalize returns the candles sorted by time ascending with duplicate
// timestamps removed. When a timestamp repeats, the later entry in the input
// wins since exchanges re-send the still-forming bar.
func Normalize(candles []Candle) []Candle {
	if len(candles) == 0 {
		return nil
	}

	idx := make(map[int64]int, len(candles))
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		key := c.Time.UnixNano()
		if i, ok := idx[key]; ok {
			out[i] = c
			continue
		}
		idx[key] = len(out)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

// Closes extracts the close prices.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Last returns the most recent candle, or false for an empty series.
func Last(candles []Candle) (Candle, bool) {
	if len(candles) == 0 {
		return Candle{}, false
	}
	return candles[len(candles)-1], true
}
