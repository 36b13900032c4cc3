package paper

import (
	"fmt"
	"math"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/orders"
	"github.com/rustyeddy/papertrader/risk"
)

// OrderParams is a manual market order. Zero TakeProfit/StopLoss ask the
// engine to derive them from the risk policy.
type OrderParams struct {
	Market     string      `json:"market"`
	Side       market.Side `json:"side"`
	Amount     float64     `json:"amount"`
	TakeProfit float64     `json:"tp,omitempty"`
	StopLoss   float64     `json:"sl,omitempty"`
}

func wrapf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (p OrderParams) validate(price float64) error {
	if !p.Side.Valid() {
		return wrapf(ErrInvalidOrder, "side %q", p.Side)
	}
	if !(p.Amount > 0) || !finite(p.Amount) {
		return wrapf(ErrInvalidOrder, "amount %v", p.Amount)
	}
	dir := p.Side.Sign()
	if p.TakeProfit != 0 && (p.TakeProfit-price)*dir <= 0 {
		return wrapf(ErrInvalidOrder, "%s take profit %v on wrong side of %v", p.Side, p.TakeProfit, price)
	}
	if p.StopLoss != 0 && (price-p.StopLoss)*dir <= 0 {
		return wrapf(ErrInvalidOrder, "%s stop loss %v on wrong side of %v", p.Side, p.StopLoss, price)
	}
	return nil
}

// leverage is the configured leverage if the market lists it, else 1.
func (e *Engine) leverage(ts *market.TickSize) int {
	lev := e.cfg.Leverage
	if lev <= 1 {
		return 1
	}
	if ts == nil || !ts.AllowsLeverage(lev) {
		e.log.Warn("leverage not offered by market, using 1", "leverage", lev)
		return 1
	}
	return lev
}

// placeOrder checks funds, reserves margin and books the order. Nothing is
// mutated unless every check passes.
func (e *Engine) placeOrder(p OrderParams, price float64, ts *market.TickSize) (orders.Order, error) {
	if err := p.validate(price); err != nil {
		e.metrics.OrderRejected("invalid")
		return orders.Order{}, err
	}

	lev := e.leverage(ts)
	margin := p.Amount * price / float64(lev)
	bal := e.bal.Balance()

	if bal.Available < margin {
		e.metrics.OrderRejected("insufficient_margin")
		e.log.Info("order rejected", "reason", "insufficient margin",
			"side", p.Side, "amount", p.Amount, "margin", margin, "available", bal.Available)
		return orders.Order{}, wrapf(ErrInsufficientMargin, "need %.8f, available %.8f", margin, bal.Available)
	}
	if p.Side == market.Sell && !e.cfg.AllowShort && bal.FreeAsset() < p.Amount {
		e.metrics.OrderRejected("insufficient_asset")
		e.log.Info("order rejected", "reason", "insufficient asset",
			"amount", p.Amount, "held", bal.HeldAsset, "committed", bal.CommittedAsset)
		return orders.Order{}, wrapf(ErrInsufficientAsset, "sell %.8f, free %.8f", p.Amount, bal.FreeAsset())
	}

	lv := risk.Levels{TakeProfit: p.TakeProfit, StopLoss: p.StopLoss}
	if lv.TakeProfit == 0 || lv.StopLoss == 0 {
		auto := e.fixedRiskLevels(p.Side, p.Market, price, ts)
		if lv.TakeProfit == 0 {
			lv.TakeProfit = auto.TakeProfit
		}
		if lv.StopLoss == 0 {
			lv.StopLoss = auto.StopLoss
		}
	}

	o := orders.Order{
		ID:         e.ids.Next(),
		Market:     p.Market,
		Side:       p.Side,
		Type:       orders.TypeMarket,
		Amount:     p.Amount,
		Margin:     margin,
		EntryPrice: price,
		Time:       e.now(),
		Status:     orders.StatusOpen,
		TakeProfit: orders.Price(lv.TakeProfit),
		StopLoss:   orders.Price(lv.StopLoss),
	}

	e.bal.Reserve(margin)
	if o.Side == market.Buy {
		e.bal.AdjustHeld(o.Amount)
	} else {
		e.bal.CommitAsset(o.Amount)
	}
	e.book.Add(o)
	e.refreshUnrealized()

	e.metrics.OrderPlaced(string(o.Side))
	e.log.Info("order opened", "id", o.ID, "market", o.Market, "side", o.Side,
		"amount", o.Amount, "price", price, "tp", lv.TakeProfit, "sl", lv.StopLoss, "margin", margin)
	return o.Clone(), nil
}

// fixedRiskLevels derives tick-snapped exits, warning when the market's tick
// metadata is missing.
func (e *Engine) fixedRiskLevels(side market.Side, mkt string, price float64, ts *market.TickSize) risk.Levels {
	if tick, ok := e.cfg.Policy.TickSize(ts); !ok {
		e.log.Warn("tick size unavailable, using default", "market", mkt, "tick_size", tick)
	}
	return e.cfg.Policy.TpSlByFixedRisk(side, price, ts)
}

func (e *Engine) closeManual(orderID string) (orders.Order, error) {
	o, ok := e.book.Get(orderID)
	if !ok || !o.IsOpen() {
		return orders.Order{}, wrapf(ErrOrderNotFound, "close %q", orderID)
	}
	tick, err := e.prices.Get(o.Market)
	if err != nil {
		return orders.Order{}, wrapf(ErrNoPrice, "close %q", orderID)
	}

	closed := e.book.Close([]orders.Exit{{ID: orderID, Price: tick.Price, Reason: orders.ReasonManual}}, e.now())
	e.settle(closed)
	e.refreshUnrealized()
	e.recordEquity(e.now())
	return closed[0], nil
}

// settle applies the balance side of closed orders.
func (e *Engine) settle(closed []orders.Order) {
	for _, o := range closed {
		e.bal.CloseOrderFunds(o.Margin, o.PnL)
		if o.Side == market.Buy {
			e.bal.AdjustHeld(-o.Amount)
		} else {
			e.bal.CommitAsset(-o.Amount)
		}
		if o.Liquidated {
			e.log.Warn("order liquidated, loss capped at margin", "id", o.ID, "market", o.Market,
				"side", o.Side, "price", o.ClosePrice, "margin", o.Margin, "uncapped_pnl", o.PnLAt(o.ClosePrice))
		}
		if err := e.journal.RecordTrade(journal.FromOrder(o)); err != nil {
			e.log.Error("journal trade", "id", o.ID, "err", err)
		}
		e.metrics.Exit(string(o.CloseReason), string(o.Side))
		e.log.Info("order closed", "id", o.ID, "market", o.Market, "side", o.Side,
			"reason", o.CloseReason, "price", o.ClosePrice, "pnl", o.PnL)
	}
}

// refreshUnrealized recomputes the floating P&L of every open order at its
// market's latest price.
func (e *Engine) refreshUnrealized() {
	var sum float64
	e.book.Each(func(o *orders.Order) {
		if px, ok := e.prices.Price(o.Market); ok {
			sum += o.MarkPnL(px)
		}
	})
	e.bal.UpdateRealTimePnL(sum)

	b := e.bal.Balance()
	e.metrics.Account(b.Total, b.Available, e.book.OpenCount())
}
