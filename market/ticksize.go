package market

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DefaultTickSize is used when a market's metadata cannot be fetched.
const DefaultTickSize = 0.0001

// ErrTickSizeUnavailable marks missing or unusable tick-size metadata.
var ErrTickSizeUnavailable = errors.New("tick size unavailable")

// TickSize describes a market's minimum price increment and the leverage
// tiers it allows.
type TickSize struct {
	Market   string  `json:"market"`
	TickSize float64 `json:"tick_size"`
	Leverage []int   `json:"leverage"`
}

// Valid reports whether the metadata can be used for price rounding.
func (t TickSize) Valid() bool { return t.TickSize > 0 }

// MaxLeverage returns the highest listed tier, or 1.
func (t TickSize) MaxLeverage() int {
	max := 1
	for _, l := range t.Leverage {
		if l > max {
			max = l
		}
	}
	return max
}

// AllowsLeverage reports whether lev is one of the listed tiers. Leverage 1
// is always allowed.
func (t TickSize) AllowsLeverage(lev int) bool {
	if lev == 1 {
		return true
	}
	for _, l := range t.Leverage {
		if l == lev {
			return true
		}
	}
	return false
}

// CandleSource provides candle history for a market.
type CandleSource interface {
	GetCandles(ctx context.Context, market, interval string, limit int) ([]Candle, error)
}

// TickSizeSource provides tick-size metadata for a market.
type TickSizeSource interface {
	GetMarketTickSize(ctx context.Context, market string) (TickSize, error)
}

// Source is the full market data gateway.
type Source interface {
	CandleSource
	TickSizeSource
}

// TickSizeCache memoizes tick-size lookups per market. Failed lookups are not
// cached so the next call retries the source.
type TickSizeCache struct {
	src TickSizeSource
	log *slog.Logger

	mu    sync.RWMutex
	cache map[string]TickSize
}

func NewTickSizeCache(src TickSizeSource, log *slog.Logger) *TickSizeCache {
	if log == nil {
		log = slog.Default()
	}
	return &TickSizeCache{
		src:   src,
		log:   log,
		cache: make(map[string]TickSize),
	}
}

// Get returns cached metadata or fetches it from the source.
func (c *TickSizeCache) Get(ctx context.Context, market string) (TickSize, error) {
	c.mu.RLock()
	ts, ok := c.cache[market]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	if c.src == nil {
		return TickSize{}, ErrTickSizeUnavailable
	}

	ts, err := c.src.GetMarketTickSize(ctx, market)
	if err != nil {
		c.log.Warn("tick size lookup failed", "market", market, "err", err)
		return TickSize{}, errors.Join(ErrTickSizeUnavailable, err)
	}
	if !ts.Valid() {
		return TickSize{}, ErrTickSizeUnavailable
	}
	if ts.Market == "" {
		ts.Market = market
	}

	c.mu.Lock()
	c.cache[market] = ts
	c.mu.Unlock()
	return ts, nil
}

// Lookup is Get that folds the error into a nil result, for callers that
// degrade to a default tick size.
func (c *TickSizeCache) Lookup(ctx context.Context, market string) *TickSize {
	if c == nil {
		return nil
	}
	ts, err := c.Get(ctx, market)
	if err != nil {
		return nil
	}
	return &ts
}

// Put seeds the cache, e.g. from configuration.
func (c *TickSizeCache) Put(ts TickSize) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[ts.Market] = ts
}
