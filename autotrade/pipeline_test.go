package autotrade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrader/ai"
	"github.com/rustyeddy/papertrader/internal/logging"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/paper"
	"github.com/rustyeddy/papertrader/risk"
)

const mkt = "BTCUSDT"

type fakeCandles struct {
	candles []market.Candle
	err     error
}

func (f fakeCandles) GetCandles(context.Context, string, string, int) ([]market.Candle, error) {
	return f.candles, f.err
}

type fakeAI struct {
	mu    sync.Mutex
	calls int
	last  ai.Request
	resp  ai.Response
	err   error
	block bool
}

func (f *fakeAI) Decide(ctx context.Context, req ai.Request) (ai.Response, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return ai.Fallback(), ctx.Err()
	}
	if f.err != nil {
		return ai.Fallback(), f.err
	}
	return f.resp, nil
}

func (f *fakeAI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// series returns n gently rising candles around 100.
func series(n int) []market.Candle {
	out := make([]market.Candle, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		c := 100 + float64(i)*0.05
		out[i] = market.Candle{
			Time:  base.Add(time.Duration(i) * time.Minute),
			Open:  c - 0.02,
			High:  c + 0.3,
			Low:   c - 0.3,
			Close: c,
		}
	}
	return out
}

func newEngine(t *testing.T, auto bool) *paper.Engine {
	t.Helper()
	e := paper.New(paper.Config{
		Market:         mkt,
		InitialBalance: 1000,
		AllowShort:     true,
		AutoTrading:    auto,
		Policy:         risk.DefaultPolicy(),
	}, paper.WithLogger(logging.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = e.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func TestCycleExecutesDecision(t *testing.T) {
	e := newEngine(t, true)
	model := &fakeAI{resp: ai.Response{Decision: ai.Buy, Confidence: 0.9, Reason: "trend"}}
	p := &Pipeline{
		Market:  mkt,
		Limit:   100,
		Candles: fakeCandles{candles: series(60)},
		AI:      model,
		Engine:  e,
		Log:     logging.Discard(),
	}

	rec, err := p.Cycle(context.Background())
	require.NoError(t, err)
	assert.True(t, rec.Executed)
	assert.InDelta(t, 100+59*0.05, rec.Price, 1e-9)
	assert.Greater(t, rec.ATR, 0.0)

	assert.Equal(t, 1, model.Calls())
	assert.Equal(t, mkt, model.last.Market)
	assert.Len(t, model.last.Candles, 60)
	assert.Equal(t, 1000.0, model.last.Balance)
	assert.Len(t, e.GetOpenOrders(mkt), 1)
}

func TestCycleShortHistoryHolds(t *testing.T) {
	e := newEngine(t, true)
	model := &fakeAI{resp: ai.Response{Decision: ai.Buy, Confidence: 1}}
	p := &Pipeline{Market: mkt, Candles: fakeCandles{candles: series(10)}, AI: model, Engine: e, Log: logging.Discard()}

	rec, err := p.Cycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, model.Calls())
	assert.Equal(t, ai.Hold, rec.Response.Decision)
	assert.Zero(t, rec.Response.Confidence)
	assert.False(t, rec.Executed)
	assert.Empty(t, e.GetPaperOrders())
}

func TestCycleUnreadableReplyHolds(t *testing.T) {
	e := newEngine(t, true)
	model := &fakeAI{err: fmt.Errorf("%w: no JSON object found", ai.ErrParse)}
	p := &Pipeline{Market: mkt, Candles: fakeCandles{candles: series(40)}, AI: model, Engine: e, Log: logging.Discard()}

	rec, err := p.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ai.Hold, rec.Response.Decision)
	assert.Zero(t, rec.Response.Confidence)
	assert.Equal(t, ai.UnparseableReason, rec.Response.Reason)
	assert.False(t, rec.Executed)
}

func TestCycleModelFailureFallsBack(t *testing.T) {
	e := newEngine(t, true)
	model := &fakeAI{err: errors.New("boom")}
	p := &Pipeline{Market: mkt, Candles: fakeCandles{candles: series(40)}, AI: model, Engine: e, Log: logging.Discard()}

	rec, err := p.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ai.Fallback(), rec.Response)
	assert.False(t, rec.Executed)

	last, ok := e.LastDecision()
	require.True(t, ok)
	assert.Equal(t, ai.UnavailableReason, last.Response.Reason)
}

func TestCycleCandleFailure(t *testing.T) {
	e := newEngine(t, true)
	model := &fakeAI{}
	p := &Pipeline{Market: mkt, Candles: fakeCandles{err: errors.New("down")}, AI: model, Engine: e, Log: logging.Discard()}

	_, err := p.Cycle(context.Background())
	assert.Error(t, err)
	assert.Zero(t, model.Calls())
	_, ok := e.LastDecision()
	assert.False(t, ok)
}

func TestCyclePrefersLatestTick(t *testing.T) {
	e := newEngine(t, false)
	require.NoError(t, e.UpdatePrice(context.Background(), market.Tick{Market: mkt, Price: 123}))

	model := &fakeAI{resp: ai.Response{Decision: ai.Hold, Confidence: 0.9}}
	p := &Pipeline{Market: mkt, Candles: fakeCandles{candles: series(40)}, AI: model, Engine: e, Log: logging.Discard()}

	rec, err := p.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 123.0, rec.Price)
}

func TestCanceledCycleIsDropped(t *testing.T) {
	e := newEngine(t, true)
	model := &fakeAI{block: true}
	p := &Pipeline{Market: mkt, Candles: fakeCandles{candles: series(40)}, AI: model, Engine: e, Log: logging.Discard()}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for model.Calls() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := p.Cycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, ok := e.LastDecision()
	assert.False(t, ok)
}

func TestRunnerSupersedesInFlightCycle(t *testing.T) {
	e := newEngine(t, true)
	model := &fakeAI{block: true}
	p := &Pipeline{Market: mkt, Candles: fakeCandles{candles: series(40)}, AI: model, Engine: e, Log: logging.Discard()}

	var decisions atomic.Int32
	r := &Runner{
		Pipeline:   p,
		Every:      5 * time.Millisecond,
		Log:        logging.Discard(),
		OnDecision: func(paper.DecisionRecord, error) { decisions.Add(1) },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return model.Calls() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Zero(t, decisions.Load())
	_, ok := e.LastDecision()
	assert.False(t, ok)
}

func TestRunnerRejectsBadInterval(t *testing.T) {
	r := &Runner{Pipeline: &Pipeline{}}
	assert.Error(t, r.Run(context.Background()))
}
