package market

import (
	"errors"
	"sync"
	"time"
)

// ErrNoPrice is returned when no tick has been seen for a market.
var ErrNoPrice = errors.New("price not found")

// Tick is a single last-trade price event from the live feed.
type Tick struct {
	Market string    `json:"market"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

// PriceStore keeps the latest tick per market.
type PriceStore struct {
	mu    sync.RWMutex
	ticks map[string]Tick
}

func NewPriceStore() *PriceStore {
	return &PriceStore{ticks: make(map[string]Tick)}
}

// Set stores t unless a newer tick for the same market is already held.
// It reports whether t was stored.
func (ps *PriceStore) Set(t Tick) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if cur, ok := ps.ticks[t.Market]; ok && !t.Time.IsZero() && t.Time.Before(cur.Time) {
		return false
	}
	ps.ticks[t.Market] = t
	return true
}

func (ps *PriceStore) Get(market string) (Tick, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	t, ok := ps.ticks[market]
	if !ok {
		return Tick{}, ErrNoPrice
	}
	return t, nil
}

// Price is Get without the timestamp.
func (ps *PriceStore) Price(market string) (float64, bool) {
	t, err := ps.Get(market)
	if err != nil {
		return 0, false
	}
	return t.Price, true
}

// All returns a copy of the latest tick for every market.
func (ps *PriceStore) All() map[string]Tick {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make(map[string]Tick, len(ps.ticks))
	for k, v := range ps.ticks {
		out[k] = v
	}
	return out
}
