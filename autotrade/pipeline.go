// Package autotrade runs the decision cycle: candles from the exchange,
// indicators, a model decision, then the engine's risk gate.
package autotrade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/papertrader/account"
	"github.com/rustyeddy/papertrader/ai"
	"github.com/rustyeddy/papertrader/indicators"
	"github.com/rustyeddy/papertrader/internal/logging"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/orders"
	"github.com/rustyeddy/papertrader/paper"
)

// Engine is the part of paper.Engine the pipeline drives.
type Engine interface {
	ProcessAIDecision(ctx context.Context, resp ai.Response, price, atr float64) (paper.DecisionRecord, error)
	GetAccountBalance() account.Balance
	GetOpenOrders(mkt string) []orders.Order
	LatestPrice(mkt string) (market.Tick, error)
}

type Pipeline struct {
	Market    string
	Interval  string
	Limit     int
	Candles   market.CandleSource
	TickSizes *market.TickSizeCache
	AI        ai.Source
	Engine    Engine
	Log       *slog.Logger
}

// Cycle runs one decision. A market data failure ends the cycle with no
// decision. Too little history yields a zero-confidence HOLD without asking
// the model, and a model failure yields ai.Fallback. If ctx is canceled
// before the engine is reached the decision is dropped as stale.
func (p *Pipeline) Cycle(ctx context.Context) (paper.DecisionRecord, error) {
	log := logging.OrDefault(p.Log).With("component", "autotrade", "market", p.Market)

	candles, err := p.Candles.GetCandles(ctx, p.Market, p.Interval, p.Limit)
	if err != nil {
		log.Warn("candles unavailable, skipping cycle", "err", err)
		return paper.DecisionRecord{}, fmt.Errorf("get candles: %w", err)
	}
	candles = market.Normalize(candles)

	var (
		resp ai.Response
		snap indicators.Snapshot
	)
	snap, err = indicators.Compute(candles)
	if err != nil {
		log.Warn("indicators unavailable, holding", "candles", len(candles), "err", err)
		resp = ai.HoldWithReason(fmt.Sprintf("insufficient market data: %v", err))
	} else {
		resp = p.ask(ctx, log, candles, snap)
	}

	if err := ctx.Err(); err != nil {
		log.Debug("cycle superseded, dropping decision", "decision", resp.Decision)
		return paper.DecisionRecord{}, err
	}

	price := snap.Price
	if t, err := p.Engine.LatestPrice(p.Market); err == nil {
		price = t.Price
	}

	rec, err := p.Engine.ProcessAIDecision(ctx, resp, price, snap.ATR)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Info("decision order refused", "err", err)
	}
	log.Info("decision processed", "decision", resp.Decision, "confidence", resp.Confidence,
		"executed", rec.Executed, "reason", rec.Reason)
	return rec, err
}

func (p *Pipeline) ask(ctx context.Context, log *slog.Logger, candles []market.Candle, snap indicators.Snapshot) ai.Response {
	req := ai.Request{
		Market:        p.Market,
		Interval:      p.Interval,
		Candles:       candles,
		Indicators:    snap,
		Balance:       p.Engine.GetAccountBalance().Available,
		OpenPositions: len(p.Engine.GetOpenOrders(p.Market)),
		MarketConfig:  market.TickSize{Market: p.Market},
	}
	if ts := p.TickSizes.Lookup(ctx, p.Market); ts != nil {
		req.MarketConfig = *ts
	}

	resp, err := p.AI.Decide(ctx, req)
	switch {
	case errors.Is(err, ai.ErrParse), errors.Is(err, ai.ErrEmpty):
		log.Warn("model reply unreadable, holding", "err", err)
		return ai.HoldWithReason(ai.UnparseableReason)
	case err != nil:
		log.Warn("model unavailable, using fallback", "err", err)
		return ai.Fallback()
	}
	return resp
}

// Runner calls Cycle on a fixed interval. A new cycle cancels the one still
// in flight, so a slow model can never act on outdated candles.
type Runner struct {
	Pipeline *Pipeline
	Every    time.Duration
	Log      *slog.Logger

	// OnDecision, when set, is called after every completed cycle.
	OnDecision func(paper.DecisionRecord, error)
}

// Run starts a cycle immediately and then on every tick of Every until ctx
// is done. It waits for the in-flight cycle before returning.
func (r *Runner) Run(ctx context.Context) error {
	if r.Every <= 0 {
		return errors.New("autotrade: interval must be positive")
	}
	log := logging.OrDefault(r.Log).With("component", "autotrade")

	var (
		wg     sync.WaitGroup
		cancel context.CancelFunc = func() {}
	)
	defer func() {
		cancel()
		wg.Wait()
	}()

	start := func() {
		cancel()
		var cctx context.Context
		cctx, cancel = context.WithCancel(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := r.Pipeline.Cycle(cctx)
			if errors.Is(err, context.Canceled) {
				return
			}
			if r.OnDecision != nil {
				r.OnDecision(rec, err)
			}
		}()
	}

	ticker := time.NewTicker(r.Every)
	defer ticker.Stop()

	log.Info("auto trading loop started", "every", r.Every)
	start()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			start()
		}
	}
}
