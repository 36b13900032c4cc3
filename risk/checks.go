package risk

import (
	"fmt"

	"github.com/rustyeddy/papertrader/ai"
)

type Violation struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Decision is the gate outcome. Allowed is true only when every check passed.
type Decision struct {
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations,omitempty"`
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Reason joins the violation codes for logs and metrics labels.
func (d Decision) Reason() string {
	if d.Allowed || len(d.Violations) == 0 {
		return ""
	}
	return d.Violations[0].Code
}

// GateInput is everything the execution gate looks at. ATR and Price are
// optional; the volatility veto applies only when both are positive.
type GateInput struct {
	Response   ai.Response
	OpenOrders int
	Available  float64
	ATR        float64
	Price      float64
}

const (
	CodeHold           = "HOLD"
	CodeLowConfidence  = "LOW_CONFIDENCE"
	CodeHighVolatility = "HIGH_VOLATILITY"
	CodeTooManyOrders  = "TOO_MANY_OPEN_ORDERS"
	CodeLowBalance     = "LOW_BALANCE"
)

// Evaluate runs the checks in order and stops at the first failure.
func (p Policy) Evaluate(in GateInput) Decision {
	p = p.withDefaults()
	d := Decision{Allowed: true}

	r := in.Response
	if r.Decision == ai.Hold || !r.Decision.Valid() {
		d.add(CodeHold, fmt.Sprintf("decision %q is not actionable", r.Decision))
		return d
	}
	if r.Confidence < p.MinConfidence {
		d.add(CodeLowConfidence,
			fmt.Sprintf("confidence %.2f below minimum %.2f", r.Confidence, p.MinConfidence))
		return d
	}

	if in.ATR > 0 && in.Price > 0 && in.ATR > in.Price*p.VolatilityVeto {
		d.add(CodeHighVolatility,
			fmt.Sprintf("ATR %.4f is %.2f%% of price, max %.2f%%",
				in.ATR, 100*in.ATR/in.Price, 100*p.VolatilityVeto))
		return d
	}

	if in.OpenOrders >= p.MaxOpenOrders {
		d.add(CodeTooManyOrders,
			fmt.Sprintf("open orders %d >= max %d", in.OpenOrders, p.MaxOpenOrders))
		return d
	}

	if in.Available < p.MinBalance {
		d.add(CodeLowBalance,
			fmt.Sprintf("available %.2f below minimum %.2f", in.Available, p.MinBalance))
		return d
	}

	return d
}

// ShouldExecute is Evaluate reduced to a yes/no.
func (p Policy) ShouldExecute(in GateInput) bool {
	return p.Evaluate(in).Allowed
}
