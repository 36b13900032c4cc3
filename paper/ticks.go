package paper

import (
	"sort"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/orders"
)

// Feed queues t without waiting. Ticks for the same market that have not been
// applied yet are replaced by newer ones, so a slow engine only ever sees the
// latest price.
func (e *Engine) Feed(t market.Tick) {
	if t.Market == "" {
		t.Market = e.cfg.Market
	}

	e.feedMu.Lock()
	if cur, ok := e.pending[t.Market]; !ok || !t.Time.Before(cur.Time) {
		e.pending[t.Market] = t
	}
	e.feedMu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) drainFeed() {
	e.feedMu.Lock()
	batch := e.pending
	e.pending = make(map[string]market.Tick, len(batch))
	e.feedMu.Unlock()

	keys := make([]string, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := e.onTick(batch[k]); err != nil {
			e.log.Warn("tick dropped", "market", k, "err", err)
		}
	}
}

// onTick is one tick transaction: store the price, close every order whose
// exit it crosses in a single batch, settle them, then refresh the floating
// P&L. Exits and the refresh see the same order set and price.
func (e *Engine) onTick(t market.Tick) error {
	start := time.Now()

	if t.Market == "" {
		t.Market = e.cfg.Market
	}
	if !(t.Price > 0) || !finite(t.Price) {
		return wrapf(ErrInvalidTick, "%s price %v", t.Market, t.Price)
	}
	if !e.prices.Set(t) {
		e.log.Debug("stale tick ignored", "market", t.Market, "time", t.Time)
		return nil
	}

	at := t.Time
	if at.IsZero() {
		at = e.now()
	}

	var exits []orders.Exit
	e.book.Each(func(o *orders.Order) {
		if o.Market != t.Market {
			return
		}
		if reason, ok := o.ExitReason(t.Price); ok {
			exits = append(exits, orders.Exit{ID: o.ID, Price: t.Price, Reason: reason})
		}
	})

	closed := e.book.Close(exits, at)
	e.settle(closed)
	e.refreshUnrealized()
	e.recordEquity(at)
	e.publish()

	e.metrics.ObserveTick(time.Since(start))
	return nil
}

func (e *Engine) recordEquity(at time.Time) {
	b := e.bal.Balance()
	err := e.journal.RecordEquity(journal.EquitySnapshot{
		Time:       at,
		Cash:       b.Cash,
		Available:  b.Available,
		Reserved:   b.Reserved(),
		HeldAsset:  b.HeldAsset,
		Unrealized: b.Unrealized,
		Total:      b.Total,
	})
	if err != nil {
		e.log.Error("journal equity", "err", err)
	}
}
