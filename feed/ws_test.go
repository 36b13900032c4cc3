package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrader/internal/logging"
	"github.com/rustyeddy/papertrader/market"
)

type collector struct {
	mu    sync.Mutex
	ticks []market.Tick
}

func (c *collector) Feed(t market.Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = append(c.ticks, t)
}

func (c *collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ticks)
}

func (c *collector) All() []market.Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]market.Tick(nil), c.ticks...)
}

func TestParseMessage(t *testing.T) {
	t.Parallel()

	ticks, err := ParseMessage([]byte(`{"method":"state.update","data":{"state_list":[{"market":"BTCUSDT","last":"42000.5"},{"market":"ETHUSDT","last":"0"}]},"id":null}`))
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, "BTCUSDT", ticks[0].Market)
	assert.Equal(t, 42000.5, ticks[0].Price)

	ticks, err = ParseMessage([]byte(`{"market":"BTCUSDT","price":101.5,"time":1704067200000}`))
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ticks[0].Time)

	ticks, err = ParseMessage([]byte(`{"price":"7","time":"2024-01-01T00:00:01Z"}`))
	require.NoError(t, err)
	assert.Equal(t, 7.0, ticks[0].Price)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC), ticks[0].Time)

	_, err = ParseMessage([]byte(`{"id":1,"code":0,"message":"OK"}`))
	assert.ErrorIs(t, err, ErrNoTicks)

	_, err = ParseMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestCoinexSubscribe(t *testing.T) {
	t.Parallel()
	assert.JSONEq(t,
		`{"method":"state.subscribe","params":{"market_list":["BTCUSDT"]},"id":1}`,
		string(CoinexSubscribe("BTCUSDT")))
}

// server accepts a websocket, checks the subscription, pushes prices and
// then drops the connection.
func newServer(t *testing.T, prices ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conns.Add(1)

		_, sub, err := conn.ReadMessage()
		if err != nil || !strings.Contains(string(sub), "state.subscribe") {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"id":1,"code":0,"message":"OK"}`))
		for _, p := range prices {
			msg := `{"method":"state.update","data":{"state_list":[{"market":"BTCUSDT","last":"` + p + `"}]}}`
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSDeliversAndReconnects(t *testing.T) {
	srv, conns := newServer(t, "100", "101", "102")

	w := NewWS(wsURL(srv), "BTCUSDT", logging.Discard())
	w.MinBackoff = 5 * time.Millisecond
	w.MaxBackoff = 20 * time.Millisecond

	sink := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, sink) }()

	require.Eventually(t, func() bool {
		return conns.Load() >= 2 && sink.Len() >= 6
	}, 3*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	got := sink.All()
	assert.Equal(t, 100.0, got[0].Price)
	assert.Equal(t, 102.0, got[2].Price)
	for _, tk := range got {
		assert.Equal(t, "BTCUSDT", tk.Market)
		assert.False(t, tk.Time.IsZero())
	}
}

func TestWSStopsWhileDialFails(t *testing.T) {
	w := NewWS("ws://127.0.0.1:1/nope", "BTCUSDT", logging.Discard())
	w.MinBackoff = time.Millisecond
	w.MaxBackoff = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.NoError(t, w.Run(ctx, SinkFunc(func(market.Tick) {})))
}
