package paper

import (
	"context"
	"time"

	"github.com/rustyeddy/papertrader/ai"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/risk"
)

// DecisionRecord is the last AI decision the engine saw and what it did
// about it.
type DecisionRecord struct {
	Response   ai.Response      `json:"response"`
	Market     string           `json:"market"`
	Price      float64          `json:"price"`
	ATR        float64          `json:"atr,omitempty"`
	Executed   bool             `json:"executed"`
	OrderID    string           `json:"order_id,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Violations []risk.Violation `json:"violations,omitempty"`
	Time       time.Time        `json:"time"`
}

// ProcessAIDecision records resp as the last decision and, when auto trading
// is on and the risk gate passes, opens an order sized by the policy's risk
// percent with exit levels from atr (when positive) or the market's tick
// size. A price <= 0 means the latest price. The returned error is set only
// when an order was attempted and refused.
func (e *Engine) ProcessAIDecision(ctx context.Context, resp ai.Response, price, atr float64) (DecisionRecord, error) {
	ev := aiDecision{
		resp:  resp,
		price: price,
		atr:   atr,
		ts:    e.ticks.Lookup(ctx, e.cfg.Market),
		reply: make(chan result[DecisionRecord], 1),
	}
	return await(ctx, e, ev, ev.reply)
}

func (e *Engine) onDecision(resp ai.Response, price, atr float64, ts *market.TickSize) (DecisionRecord, error) {
	rec := DecisionRecord{Response: resp, Market: e.cfg.Market, Price: price, ATR: atr, Time: e.now()}
	defer func() { e.last = &rec }()

	e.metrics.Decision(string(resp.Decision))

	if rec.Price <= 0 {
		px, ok := e.prices.Price(e.cfg.Market)
		if !ok {
			rec.Reason = "no price"
			return rec, nil
		}
		rec.Price = px
	}
	if !e.auto {
		rec.Reason = "auto trading disabled"
		return rec, nil
	}

	pol := e.cfg.Policy
	bal := e.bal.Balance()
	gate := pol.Evaluate(risk.GateInput{
		Response:   resp,
		OpenOrders: e.book.OpenCount(),
		Available:  bal.Available,
		ATR:        atr,
		Price:      rec.Price,
	})
	if !gate.Allowed {
		rec.Reason = gate.Reason()
		rec.Violations = gate.Violations
		e.metrics.OrderRejected(gate.Reason())
		e.log.Info("decision not executed", "decision", resp.Decision,
			"confidence", resp.Confidence, "reason", rec.Reason)
		return rec, nil
	}

	side, _ := resp.Decision.Side()
	lev := e.leverage(ts)
	margin := risk.PositionSize(bal.Available, policyRiskPercent(pol))
	params := OrderParams{
		Market: e.cfg.Market,
		Side:   side,
		Amount: margin * float64(lev) / rec.Price,
	}

	var lv risk.Levels
	if atr > 0 {
		lv = risk.TpSlByATR(side, rec.Price, atr, pol.ATRStopMult, pol.ATRTakeMult)
	} else {
		lv = e.fixedRiskLevels(side, params.Market, rec.Price, ts)
	}
	params.TakeProfit, params.StopLoss = lv.TakeProfit, lv.StopLoss

	o, err := e.placeOrder(params, rec.Price, ts)
	if err != nil {
		rec.Reason = err.Error()
		return rec, err
	}
	rec.Executed = true
	rec.OrderID = o.ID
	return rec, nil
}

func policyRiskPercent(p risk.Policy) float64 {
	if p.RiskPercent > 0 {
		return p.RiskPercent
	}
	return risk.DefaultRiskPercent
}
