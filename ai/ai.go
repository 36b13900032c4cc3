// Package ai defines the contract with the remote model that recommends
// trades, and the tolerant parsing that keeps a bad reply from ever stopping
// the engine.
package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/rustyeddy/papertrader/indicators"
	"github.com/rustyeddy/papertrader/market"
)

// Decision is the model's recommendation.
type Decision string

const (
	Buy  Decision = "BUY"
	Sell Decision = "SELL"
	Hold Decision = "HOLD"
)

// ParseDecision is case-insensitive and also accepts LONG/SHORT/WAIT style
// synonyms. Unknown values map to HOLD with ok=false.
func ParseDecision(s string) (Decision, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return Buy, true
	case "SELL", "SHORT":
		return Sell, true
	case "HOLD", "WAIT", "NONE", "NEUTRAL":
		return Hold, true
	}
	return Hold, false
}

func (d Decision) Valid() bool { return d == Buy || d == Sell || d == Hold }

// Side maps BUY/SELL to an order side. HOLD has no side.
func (d Decision) Side() (market.Side, bool) {
	switch d {
	case Buy:
		return market.Buy, true
	case Sell:
		return market.Sell, true
	}
	return "", false
}

// Response is one recommendation. Confidence is a fraction in [0,1] after
// normalization.
type Response struct {
	Decision   Decision `json:"decision"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
	RawJSON    string   `json:"raw_json,omitempty"`
}

// ConfidencePercent is Confidence on the 0-100 display scale.
func (r Response) ConfidencePercent() float64 { return r.Confidence * 100 }

// Request is the context handed to the model.
type Request struct {
	Market        string              `json:"market"`
	Interval      string              `json:"interval"`
	Candles       []market.Candle     `json:"candles"`
	Indicators    indicators.Snapshot `json:"indicators"`
	Balance       float64             `json:"balance"`
	OpenPositions int                 `json:"open_positions"`
	MarketConfig  market.TickSize     `json:"market_config"`
}

// Source asks a model for a recommendation.
type Source interface {
	Decide(ctx context.Context, req Request) (Response, error)
}

// Fallback confidences.
const (
	// FallbackConfidence is reported when the model could not be reached.
	FallbackConfidence = 0.1
	UnavailableReason  = "analysis unavailable"

	// UnparseableReason marks the zero-confidence HOLD for a reply that
	// arrived but could not be read.
	UnparseableReason = "unparseable model response"
)

var (
	ErrParse = errors.New("ai: unparseable response")
	ErrEmpty = errors.New("ai: empty response")
)

// Fallback is the fixed reply used when the model cannot be reached.
func Fallback() Response {
	return Response{Decision: Hold, Confidence: FallbackConfidence, Reason: UnavailableReason}
}

// HoldWithReason is a zero-confidence HOLD, used when there is not enough
// market data to ask the model at all.
func HoldWithReason(reason string) Response {
	return Response{Decision: Hold, Confidence: 0, Reason: reason}
}
