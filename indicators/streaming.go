package indicators

import (
	"fmt"

	"github.com/rustyeddy/papertrader/market"
)

// Indicator is a streaming indicator fed one closed candle at a time. Value
// is zero until Ready.
type Indicator interface {
	Name() string
	Warmup() int
	Reset()
	Update(c market.Candle)
	Ready() bool
	Value() float64
}

// Feed runs candles through every indicator in order.
func Feed(candles []market.Candle, inds ...Indicator) {
	for _, c := range candles {
		for _, ind := range inds {
			ind.Update(c)
		}
	}
}

// ExponentialMA is a streaming EMA of closes, seeded with the SMA of the
// first period closes.
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

func NewExponentialMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }

func (e *ExponentialMA) Warmup() int { return e.period }

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(c market.Candle) {
	if e.count < e.period {
		e.warmupSum += c.Close
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (c.Close-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Ready() bool { return e.period > 0 && e.count >= e.period }

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// WilderATR is a streaming Average True Range. The first candle only sets
// the previous close, so it needs period+1 candles.
type WilderATR struct {
	period int
	prev   market.Candle
	seen   int
	trSum  float64
	atr    float64
}

func NewWilderATR(period int) *WilderATR { return &WilderATR{period: period} }

func (a *WilderATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }

func (a *WilderATR) Warmup() int { return a.period + 1 }

func (a *WilderATR) Reset() { *a = WilderATR{period: a.period} }

func (a *WilderATR) Update(c market.Candle) {
	a.seen++
	if a.seen == 1 {
		a.prev = c
		return
	}
	tr := trueRange(c, a.prev)
	a.prev = c

	n := a.seen - 1
	switch {
	case n < a.period:
		a.trSum += tr
	case n == a.period:
		a.trSum += tr
		a.atr = a.trSum / float64(a.period)
	default:
		a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
	}
}

func (a *WilderATR) Ready() bool { return a.period > 0 && a.seen > a.period }

func (a *WilderATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

// WilderRSI is a streaming Relative Strength Index over closes.
type WilderRSI struct {
	period    int
	prevClose float64
	seen      int
	gain      float64
	loss      float64
}

func NewWilderRSI(period int) *WilderRSI { return &WilderRSI{period: period} }

func (r *WilderRSI) Name() string { return fmt.Sprintf("RSI(%d)", r.period) }

func (r *WilderRSI) Warmup() int { return r.period + 1 }

func (r *WilderRSI) Reset() { *r = WilderRSI{period: r.period} }

func (r *WilderRSI) Update(c market.Candle) {
	r.seen++
	if r.seen == 1 {
		r.prevClose = c.Close
		return
	}
	d := c.Close - r.prevClose
	r.prevClose = c.Close

	var g, l float64
	if d > 0 {
		g = d
	} else {
		l = -d
	}

	n := r.seen - 1
	switch {
	case n < r.period:
		r.gain += g
		r.loss += l
	case n == r.period:
		r.gain = (r.gain + g) / float64(r.period)
		r.loss = (r.loss + l) / float64(r.period)
	default:
		r.gain = (r.gain*float64(r.period-1) + g) / float64(r.period)
		r.loss = (r.loss*float64(r.period-1) + l) / float64(r.period)
	}
}

func (r *WilderRSI) Ready() bool { return r.period > 0 && r.seen > r.period }

// Value is 100 with no losses and 50 on a flat series.
func (r *WilderRSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	switch {
	case r.gain == 0 && r.loss == 0:
		return 50
	case r.loss == 0:
		return 100
	}
	return 100 - 100/(1+r.gain/r.loss)
}
