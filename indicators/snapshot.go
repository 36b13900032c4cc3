package indicators

import (
	"fmt"

	"github.com/rustyeddy/papertrader/market"
)

// Trend classifies the direction of the fast/slow EMA pair.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// Volatility classifies ATR as a fraction of price.
type Volatility string

const (
	VolatilityLow    Volatility = "low"
	VolatilityNormal Volatility = "normal"
	VolatilityHigh   Volatility = "high"
)

// Momentum classifies RSI.
type Momentum string

const (
	MomentumOverbought Momentum = "overbought"
	MomentumOversold   Momentum = "oversold"
	MomentumNeutral    Momentum = "neutral"
)

// Periods used by Compute.
const (
	RSIPeriod       = 14
	ATRPeriod       = 14
	EMAFastPeriod   = 12
	EMASlowPeriod   = 26
	MACDSignal      = 9
	BollingerPeriod = 20
	BollingerK      = 2.0

	// MinCandles is the shortest series Compute accepts.
	MinCandles = EMASlowPeriod + MACDSignal - 1
)

// Classification thresholds.
const (
	trendBand      = 0.001
	lowVolatility  = 0.01
	highVolatility = 0.03
	rsiOverbought  = 70.0
	rsiOversold    = 30.0
)

// Snapshot is the full indicator set for the latest candle plus derived
// market-state labels.
type Snapshot struct {
	Price      float64    `json:"price"`
	RSI        float64    `json:"rsi"`
	EMAFast    float64    `json:"ema_fast"`
	EMASlow    float64    `json:"ema_slow"`
	ATR        float64    `json:"atr"`
	ATRPercent float64    `json:"atr_percent"`
	MACD       MACDResult `json:"macd"`
	Bollinger  Bands      `json:"bollinger"`

	Trend      Trend      `json:"trend"`
	Volatility Volatility `json:"volatility"`
	Momentum   Momentum   `json:"momentum"`
}

// Compute derives a Snapshot from a time-ascending candle series.
func Compute(candles []market.Candle) (Snapshot, error) {
	if len(candles) < MinCandles {
		return Snapshot{}, needed("snapshot", len(candles), MinCandles)
	}
	for i, c := range candles {
		if !finitePositive(c.Close) || !finitePositive(c.High) || !finitePositive(c.Low) {
			return Snapshot{}, fmt.Errorf("candle %d: %w", i, ErrInvalidData)
		}
	}

	closes := market.Closes(candles)
	var (
		s   Snapshot
		err error
	)
	s.Price = closes[len(closes)-1]

	rsi := NewWilderRSI(RSIPeriod)
	fast := NewExponentialMA(EMAFastPeriod)
	slow := NewExponentialMA(EMASlowPeriod)
	atr := NewWilderATR(ATRPeriod)
	Feed(candles, rsi, fast, slow, atr)
	for _, ind := range []Indicator{rsi, fast, slow, atr} {
		if !ind.Ready() {
			return Snapshot{}, needed(ind.Name(), len(candles), ind.Warmup())
		}
	}
	s.RSI, s.EMAFast, s.EMASlow, s.ATR = rsi.Value(), fast.Value(), slow.Value(), atr.Value()

	if s.MACD, err = MACD(closes, EMAFastPeriod, EMASlowPeriod, MACDSignal); err != nil {
		return Snapshot{}, err
	}
	if s.Bollinger, err = Bollinger(closes, BollingerPeriod, BollingerK); err != nil {
		return Snapshot{}, err
	}

	s.ATRPercent = s.ATR / s.Price
	s.Trend = ClassifyTrend(s.EMAFast, s.EMASlow)
	s.Volatility = ClassifyVolatility(s.ATRPercent)
	s.Momentum = ClassifyMomentum(s.RSI)
	return s, nil
}

func ClassifyTrend(fast, slow float64) Trend {
	switch {
	case slow <= 0:
		return TrendNeutral
	case fast > slow*(1+trendBand):
		return TrendBullish
	case fast < slow*(1-trendBand):
		return TrendBearish
	}
	return TrendNeutral
}

func ClassifyVolatility(atrPct float64) Volatility {
	switch {
	case atrPct < lowVolatility:
		return VolatilityLow
	case atrPct > highVolatility:
		return VolatilityHigh
	}
	return VolatilityNormal
}

func ClassifyMomentum(rsi float64) Momentum {
	switch {
	case rsi >= rsiOverbought:
		return MomentumOverbought
	case rsi <= rsiOversold:
		return MomentumOversold
	}
	return MomentumNeutral
}
