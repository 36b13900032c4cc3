package indicators

import (
	"math"

	"github.com/rustyeddy/papertrader/market"
)

// ATR computes the Average True Range with Wilder's smoothing. It needs
// period+1 candles because the first true range uses the previous close.
func ATR(candles []market.Candle, period int) (float64, error) {
	if err := checkPeriod("ATR", period); err != nil {
		return 0, err
	}
	if len(candles) < period+1 {
		return 0, needed("ATR", len(candles), period+1)
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trs = append(trs, trueRange(candles[i], candles[i-1]))
	}

	sum := 0.0
	for _, tr := range trs[:period] {
		sum += tr
	}
	atr := sum / float64(period)

	for _, tr := range trs[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}
	return atr, nil
}

func trueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)
	return math.Max(highLow, math.Max(highClose, lowClose))
}
