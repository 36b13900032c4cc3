// Package paper is the paper trading engine. One goroutine, Run, owns the
// balance and the order book; every mutation arrives on its event queue and
// is applied to completion before the next one is read. Readers see the
// snapshot published after each applied event, never intermediate state.
package paper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/papertrader/account"
	"github.com/rustyeddy/papertrader/internal/id"
	"github.com/rustyeddy/papertrader/internal/logging"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/metrics"
	"github.com/rustyeddy/papertrader/orders"
	"github.com/rustyeddy/papertrader/risk"
)

var (
	ErrInsufficientMargin = errors.New("insufficient margin")
	ErrInsufficientAsset  = errors.New("insufficient asset")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidTick        = errors.New("invalid tick")
	ErrOrderNotFound      = errors.New("order not found")
	ErrNoPrice            = market.ErrNoPrice
	ErrEngineStopped      = errors.New("engine stopped")
	ErrEngineRunning      = errors.New("engine already running")
)

// Config is the engine's static configuration.
type Config struct {
	Market         string
	InitialBalance float64
	AllowShort     bool
	Leverage       int
	AutoTrading    bool
	Policy         risk.Policy
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithJournal(j journal.Journal) Option { return func(e *Engine) { e.journal = j } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithTickSizes sets the tick-size metadata used for fixed-risk exit levels
// and leverage checks. Without it every order uses the default tick size.
func WithTickSizes(c *market.TickSizeCache) Option { return func(e *Engine) { e.ticks = c } }

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
		e.ids = id.NewGenerator(now)
	}
}

type Engine struct {
	cfg     Config
	log     *slog.Logger
	journal journal.Journal
	metrics *metrics.Metrics
	ticks   *market.TickSizeCache
	ids     *id.Generator
	now     func() time.Time
	prices  *market.PriceStore

	events  chan event
	wake    chan struct{}
	done    chan struct{}
	running atomic.Bool

	feedMu  sync.Mutex
	pending map[string]market.Tick

	// Owned by Run.
	bal  *account.Store
	book *orders.Book
	auto bool
	last *DecisionRecord

	snap    atomic.Pointer[Snapshot]
	version uint64

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
	stopped bool
}

func New(cfg Config, opts ...Option) *Engine {
	if cfg.Leverage < 1 {
		cfg.Leverage = 1
	}
	e := &Engine{
		cfg:     cfg,
		journal: journal.Nop{},
		now:     time.Now,
		prices:  market.NewPriceStore(),
		events:  make(chan event),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: make(map[string]market.Tick),
		bal:     account.New(cfg.InitialBalance),
		book:    orders.NewBook(),
		auto:    cfg.AutoTrading,
		subs:    make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logging.OrDefault(e.log).With("component", "paper")
	if e.ids == nil {
		e.ids = id.NewGenerator(e.now)
	}
	e.publish()
	return e
}

// Run applies events until ctx is done. It must be called exactly once;
// mutating calls block until Run is serving them.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}
	defer e.stop()

	e.log.Info("engine started", "market", e.cfg.Market, "balance", e.cfg.InitialBalance)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped")
			return nil
		case ev := <-e.events:
			ev.apply(e)
		case <-e.wake:
			e.drainFeed()
		}
	}
}

func (e *Engine) stop() {
	close(e.done)

	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.stopped = true
	for k, ch := range e.subs {
		close(ch)
		delete(e.subs, k)
	}
}

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} { return e.done }

// PlaceMarketOrder opens an order at the latest price. Margin and asset
// failures are returned to the caller and leave no trace in the account.
func (e *Engine) PlaceMarketOrder(ctx context.Context, p OrderParams) (orders.Order, error) {
	if p.Market == "" {
		p.Market = e.cfg.Market
	}
	ev := manualOrder{params: p, ts: e.ticks.Lookup(ctx, p.Market), reply: make(chan result[orders.Order], 1)}
	return await(ctx, e, ev, ev.reply)
}

// ClosePosition closes an open order at the latest price with reason manual.
func (e *Engine) ClosePosition(ctx context.Context, orderID string) (orders.Order, error) {
	ev := closeOrder{id: orderID, reply: make(chan result[orders.Order], 1)}
	return await(ctx, e, ev, ev.reply)
}

// UpdatePrice applies one tick and waits until its exits are settled.
func (e *Engine) UpdatePrice(ctx context.Context, t market.Tick) error {
	ev := priceTick{tick: t, reply: make(chan result[struct{}], 1)}
	_, err := await(ctx, e, ev, ev.reply)
	return err
}

// ResetPaperTrading clears every order and restores the balance to initial,
// or to the configured initial balance when initial <= 0.
func (e *Engine) ResetPaperTrading(ctx context.Context, initial float64) error {
	if initial <= 0 {
		initial = e.cfg.InitialBalance
	}
	ev := resetAccount{initial: initial, reply: make(chan result[struct{}], 1)}
	_, err := await(ctx, e, ev, ev.reply)
	return err
}

func (e *Engine) SetAutoTrading(ctx context.Context, enabled bool) error {
	ev := setAutoTrading{enabled: enabled, reply: make(chan result[struct{}], 1)}
	_, err := await(ctx, e, ev, ev.reply)
	return err
}

// GetOpenOrders returns the open orders for mkt, or all of them when mkt
// is empty.
func (e *Engine) GetOpenOrders(mkt string) []orders.Order {
	s := e.Snapshot()
	if mkt == "" {
		return s.Open
	}
	out := make([]orders.Order, 0, len(s.Open))
	for _, o := range s.Open {
		if o.Market == mkt {
			out = append(out, o)
		}
	}
	return out
}

// GetPaperOrders returns every order ever placed since the last reset.
func (e *Engine) GetPaperOrders() []orders.Order { return e.Snapshot().History }

func (e *Engine) GetAccountBalance() account.Balance { return e.Snapshot().Balance }

func (e *Engine) AutoTrading() bool { return e.Snapshot().AutoTrading }

func (e *Engine) LastDecision() (DecisionRecord, bool) {
	s := e.Snapshot()
	if s.LastDecision == nil {
		return DecisionRecord{}, false
	}
	return *s.LastDecision, true
}

func (e *Engine) LatestPrice(mkt string) (market.Tick, error) {
	if mkt == "" {
		mkt = e.cfg.Market
	}
	return e.prices.Get(mkt)
}

func (e *Engine) Config() Config { return e.cfg }
