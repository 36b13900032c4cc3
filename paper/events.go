package paper

import (
	"context"

	"github.com/rustyeddy/papertrader/ai"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/orders"
)

// event is one unit of work for Run. apply runs on the engine goroutine,
// publishes a snapshot if state changed, and answers on the event's reply
// channel before returning.
type event interface {
	apply(e *Engine)
}

type result[T any] struct {
	val T
	err error
}

type priceTick struct {
	tick  market.Tick
	reply chan result[struct{}]
}

func (ev priceTick) apply(e *Engine) {
	err := e.onTick(ev.tick)
	ev.reply <- result[struct{}]{err: err}
}

type aiDecision struct {
	resp  ai.Response
	price float64
	atr   float64
	ts    *market.TickSize
	reply chan result[DecisionRecord]
}

func (ev aiDecision) apply(e *Engine) {
	rec, err := e.onDecision(ev.resp, ev.price, ev.atr, ev.ts)
	e.publish()
	ev.reply <- result[DecisionRecord]{rec, err}
}

type manualOrder struct {
	params OrderParams
	ts     *market.TickSize
	reply  chan result[orders.Order]
}

func (ev manualOrder) apply(e *Engine) {
	price, ok := e.prices.Price(ev.params.Market)
	if !ok {
		e.metrics.OrderRejected("no_price")
		ev.reply <- result[orders.Order]{err: wrapf(ErrNoPrice, "place order %s", ev.params.Market)}
		return
	}
	o, err := e.placeOrder(ev.params, price, ev.ts)
	if err == nil {
		e.publish()
	}
	ev.reply <- result[orders.Order]{o, err}
}

type closeOrder struct {
	id    string
	reply chan result[orders.Order]
}

func (ev closeOrder) apply(e *Engine) {
	o, err := e.closeManual(ev.id)
	if err == nil {
		e.publish()
	}
	ev.reply <- result[orders.Order]{o, err}
}

type resetAccount struct {
	initial float64
	reply   chan result[struct{}]
}

func (ev resetAccount) apply(e *Engine) {
	e.bal.Reset(ev.initial)
	e.book.Reset()
	e.last = nil
	e.log.Info("paper account reset", "balance", ev.initial)
	e.recordEquity(e.now())
	e.publish()
	ev.reply <- result[struct{}]{}
}

type setAutoTrading struct {
	enabled bool
	reply   chan result[struct{}]
}

func (ev setAutoTrading) apply(e *Engine) {
	if e.auto != ev.enabled {
		e.log.Info("auto trading toggled", "enabled", ev.enabled)
	}
	e.auto = ev.enabled
	e.publish()
	ev.reply <- result[struct{}]{}
}

// await queues ev on the engine goroutine and waits for its answer.
func await[T any](ctx context.Context, e *Engine, ev event, reply <-chan result[T]) (T, error) {
	var zero T
	select {
	case e.events <- ev:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-e.done:
		return zero, ErrEngineStopped
	}

	select {
	case r := <-reply:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
