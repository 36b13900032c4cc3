// Package risk holds the stateless trading policy: position sizing, take
// profit / stop loss placement and the gate that decides whether an AI
// recommendation is executed.
package risk

import (
	"github.com/rustyeddy/papertrader/market"
	"github.com/shopspring/decimal"
)

// Levels are the exit prices for a position.
type Levels struct {
	TakeProfit float64 `json:"tp"`
	StopLoss   float64 `json:"sl"`
}

// PositionSize is the quote amount to commit: available * riskPercent.
// No clamping; riskPercent is expected in (0,1].
func PositionSize(available, riskPercent float64) float64 {
	return available * riskPercent
}

// TpSlByPercent places the stop riskPercent away from entry and the target
// riskPercent*ratio away, on the side given. Anything that is not BUY is
// priced as a SELL.
func TpSlByPercent(side market.Side, entry, riskPercent, ratio float64) Levels {
	if ratio <= 0 {
		ratio = DefaultRiskReward
	}
	return offsets(side, entry, entry*riskPercent, entry*riskPercent*ratio)
}

// TpSlByATR offsets the stop and target by multiples of ATR.
func TpSlByATR(side market.Side, entry, atr, slMult, tpMult float64) Levels {
	if slMult <= 0 {
		slMult = DefaultATRStopMult
	}
	if tpMult <= 0 {
		tpMult = DefaultATRTakeMult
	}
	return offsets(side, entry, atr*slMult, atr*tpMult)
}

// TickSize is the tick to snap levels to: ts when it is usable, otherwise the
// policy default with ok=false.
func (p Policy) TickSize(ts *market.TickSize) (tick float64, ok bool) {
	if ts != nil && ts.Valid() {
		return ts.TickSize, true
	}
	return p.withDefaults().DefaultTickSize, false
}

// TpSlByFixedRisk places a stop FixedRiskPercent of entry away and a target
// RiskReward times further, both snapped to the market's tick size. When ts
// is nil or unusable the policy's default tick size is used; callers that
// care check TickSize first. The stop is always at least one tick from entry.
func (p Policy) TpSlByFixedRisk(side market.Side, entry float64, ts *market.TickSize) Levels {
	p = p.withDefaults()
	tick, _ := p.TickSize(ts)

	slDist := RoundToTick(entry*p.FixedRiskPercent, tick)
	if slDist < tick {
		slDist = tick
	}
	tpDist := RoundToTick(slDist*p.RiskReward, tick)
	if tpDist < tick {
		tpDist = tick
	}

	lv := offsets(side, entry, slDist, tpDist)
	return Levels{
		TakeProfit: RoundToTick(lv.TakeProfit, tick),
		StopLoss:   RoundToTick(lv.StopLoss, tick),
	}
}

// RoundToTick rounds price to the nearest multiple of tick using decimal
// arithmetic so values like 0.1+0.2 land exactly on the grid.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	t := decimal.NewFromFloat(tick)
	v := decimal.NewFromFloat(price).Div(t).Round(0).Mul(t)
	f, _ := v.Float64()
	return f
}

func offsets(side market.Side, entry, slDist, tpDist float64) Levels {
	if side.IsBuy() {
		return Levels{
			StopLoss:   entry - slDist,
			TakeProfit: entry + tpDist,
		}
	}
	return Levels{
		StopLoss:   entry + slDist,
		TakeProfit: entry - tpDist,
	}
}
