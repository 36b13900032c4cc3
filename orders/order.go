// Package orders holds paper orders and the book that partitions them into
// open, closed and history collections.
package orders

import (
	"time"

	"github.com/rustyeddy/papertrader/market"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusFilled   Status = "filled"
	StatusCanceled Status = "canceled"
	StatusClosed   Status = "closed"
)

type Type string

const (
	TypeMarket Type = "market"
	TypeLimit  Type = "limit"
)

type CloseReason string

const (
	ReasonTakeProfit CloseReason = "tp"
	ReasonStopLoss   CloseReason = "sl"
	ReasonManual     CloseReason = "manual"
)

// Order is a paper position. Amount is the base quantity; Margin is the
// quote amount reserved from the balance while the order is open.
type Order struct {
	ID         string      `json:"id"`
	Market     string      `json:"market"`
	Side       market.Side `json:"side"`
	Type       Type        `json:"type"`
	Amount     float64     `json:"amount"`
	Margin     float64     `json:"margin"`
	EntryPrice float64     `json:"entry_price"`
	Time       time.Time   `json:"timestamp"`
	Status     Status      `json:"status"`

	TakeProfit *float64 `json:"tp,omitempty"`
	StopLoss   *float64 `json:"sl,omitempty"`

	// Set once, when the order closes.
	ClosePrice  float64     `json:"close_price,omitempty"`
	PnL         float64     `json:"pnl,omitempty"`
	CloseReason CloseReason `json:"close_reason,omitempty"`
	ClosedAt    time.Time   `json:"closed_at,omitempty"`

	// Liquidated is set when the loss at close exceeded Margin and was
	// capped to it.
	Liquidated bool `json:"liquidated,omitempty"`
}

func (o *Order) IsOpen() bool { return o.Status == StatusOpen }

// PnLAt is the P&L of the order if it were closed at price:
// BUY (price-entry)*amount, SELL (entry-price)*amount.
func (o *Order) PnLAt(price float64) float64 {
	if o.Side.IsBuy() {
		return (price - o.EntryPrice) * o.Amount
	}
	return (o.EntryPrice - price) * o.Amount
}

// MarkPnL is PnLAt with the loss capped at the order's margin, the most an
// order can lose. Orders without margin are not capped.
func (o *Order) MarkPnL(price float64) float64 {
	pnl := o.PnLAt(price)
	if o.Margin > 0 && pnl < -o.Margin {
		return -o.Margin
	}
	return pnl
}

func (o *Order) hitTakeProfit(price float64) bool {
	if o.TakeProfit == nil {
		return false
	}
	if o.Side.IsBuy() {
		return price >= *o.TakeProfit
	}
	return price <= *o.TakeProfit
}

func (o *Order) hitStopLoss(price float64) bool {
	if o.StopLoss == nil {
		return false
	}
	if o.Side.IsBuy() {
		return price <= *o.StopLoss
	}
	return price >= *o.StopLoss
}

// ExitReason reports whether price breaches the order's take profit or stop
// loss. Take profit wins if both are somehow crossed.
func (o *Order) ExitReason(price float64) (CloseReason, bool) {
	if !o.IsOpen() {
		return "", false
	}
	switch {
	case o.hitTakeProfit(price):
		return ReasonTakeProfit, true
	case o.hitStopLoss(price):
		return ReasonStopLoss, true
	}
	return "", false
}

// close is one-way: closed orders never change again.
func (o *Order) close(price float64, reason CloseReason, at time.Time) bool {
	if !o.IsOpen() {
		return false
	}
	o.ClosePrice = price
	o.PnL = o.MarkPnL(price)
	o.Liquidated = o.PnL > o.PnLAt(price)
	o.CloseReason = reason
	o.ClosedAt = at
	o.Status = StatusClosed
	return true
}

// Clone returns a deep copy so callers cannot reach into the book.
func (o Order) Clone() Order {
	if o.TakeProfit != nil {
		v := *o.TakeProfit
		o.TakeProfit = &v
	}
	if o.StopLoss != nil {
		v := *o.StopLoss
		o.StopLoss = &v
	}
	return o
}

// Price returns a pointer to v, for TakeProfit/StopLoss literals.
func Price(v float64) *float64 { return &v }
