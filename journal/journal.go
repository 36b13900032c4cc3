// Package journal exports closed orders and equity snapshots. It is a write
// sink only: the engine never reads its state back from a journal.
package journal

import (
	"time"

	"github.com/rustyeddy/papertrader/orders"
)

type TradeRecord struct {
	OrderID     string
	Market      string
	Side        string
	Amount      float64
	Margin      float64
	EntryPrice  float64
	ExitPrice   float64
	OpenTime    time.Time
	CloseTime   time.Time
	RealizedPnL float64
	Reason      string
}

type EquitySnapshot struct {
	Time       time.Time
	Cash       float64
	Available  float64
	Reserved   float64
	HeldAsset  float64
	Unrealized float64
	Total      float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// FromOrder builds the trade record for a closed order.
func FromOrder(o orders.Order) TradeRecord {
	return TradeRecord{
		OrderID:     o.ID,
		Market:      o.Market,
		Side:        string(o.Side),
		Amount:      o.Amount,
		Margin:      o.Margin,
		EntryPrice:  o.EntryPrice,
		ExitPrice:   o.ClosePrice,
		OpenTime:    o.Time,
		CloseTime:   o.ClosedAt,
		RealizedPnL: o.PnL,
		Reason:      string(o.CloseReason),
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
