package paper

import (
	"time"

	"github.com/rustyeddy/papertrader/account"
	"github.com/rustyeddy/papertrader/orders"
)

// Snapshot is the committed engine state after one event. Slices are owned
// by the snapshot and never modified after publication.
type Snapshot struct {
	Version      uint64          `json:"version"`
	Time         time.Time       `json:"time"`
	Balance      account.Balance `json:"balance"`
	Open         []orders.Order  `json:"open"`
	History      []orders.Order  `json:"history"`
	AutoTrading  bool            `json:"auto_trading"`
	LastDecision *DecisionRecord `json:"last_decision,omitempty"`
}

// Closed returns the closed orders in close order.
func (s Snapshot) Closed() []orders.Order {
	var out []orders.Order
	for _, o := range s.History {
		if o.Status == orders.StatusClosed {
			out = append(out, o)
		}
	}
	return out
}

func (e *Engine) Snapshot() Snapshot { return *e.snap.Load() }

// publish stores a new snapshot and hands it to subscribers. Only the
// engine goroutine (or New, before it starts) calls it.
func (e *Engine) publish() {
	e.version++
	s := &Snapshot{
		Version:     e.version,
		Time:        e.now(),
		Balance:     e.bal.Balance(),
		Open:        e.book.Open(""),
		History:     e.book.History(),
		AutoTrading: e.auto,
	}
	if e.last != nil {
		rec := *e.last
		s.LastDecision = &rec
	}
	e.snap.Store(s)

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		offer(ch, *s)
	}
}

// offer replaces whatever a slow subscriber has not read yet with s.
func offer(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// Subscribe returns a channel that receives every published snapshot,
// starting with the current one. Slow readers skip intermediate snapshots
// and only see the latest. The channel closes when the engine stops or
// cancel is called.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.stopped {
		close(ch)
		return ch, func() {}
	}

	ch <- e.Snapshot()
	k := e.nextSub
	e.nextSub++
	e.subs[k] = ch

	cancel := func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if c, ok := e.subs[k]; ok {
			delete(e.subs, k)
			close(c)
		}
	}
	return ch, cancel
}
