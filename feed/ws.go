// Package feed delivers live or recorded price ticks to the engine.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rustyeddy/papertrader/market"
)

// Sink receives ticks without blocking. paper.Engine.Feed satisfies it.
type Sink interface {
	Feed(market.Tick)
}

type SinkFunc func(market.Tick)

func (f SinkFunc) Feed(t market.Tick) { f(t) }

// WS is a reconnecting websocket tick client. Each connection sends the
// Subscribe message, then decodes every frame with Parse. A dropped
// connection is redialed with exponential backoff; ticks already delivered
// stay valid.
type WS struct {
	URL       string
	Market    string
	Subscribe []byte
	Parse     func([]byte) ([]market.Tick, error)

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration

	Dialer *websocket.Dialer
	Log    *slog.Logger
}

func NewWS(url, mkt string, log *slog.Logger) *WS {
	if log == nil {
		log = slog.Default()
	}
	return &WS{
		URL:          url,
		Market:       mkt,
		Subscribe:    CoinexSubscribe(mkt),
		Parse:        ParseMessage,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		PingInterval: 20 * time.Second,
		MinBackoff:   500 * time.Millisecond,
		MaxBackoff:   30 * time.Second,
		Dialer:       websocket.DefaultDialer,
		Log:          log.With("component", "feed", "url", url),
	}
}

// Run keeps a connection open until ctx is done.
func (w *WS) Run(ctx context.Context, sink Sink) error {
	backoff := w.MinBackoff
	for {
		got, err := w.session(ctx, sink)
		if ctx.Err() != nil {
			return nil
		}
		if got {
			backoff = w.MinBackoff
		}
		w.Log.Warn("feed disconnected, reconnecting", "err", err, "backoff", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		backoff *= 2
		if backoff > w.MaxBackoff {
			backoff = w.MaxBackoff
		}
	}
}

// session runs one connection. It reports whether any tick was delivered.
func (w *WS) session(ctx context.Context, sink Sink) (bool, error) {
	conn, _, err := w.Dialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	w.Log.Info("feed connected")

	// unblock ReadMessage on shutdown
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if len(w.Subscribe) > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(w.WriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, w.Subscribe); err != nil {
			return false, fmt.Errorf("subscribe: %w", err)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
	})
	go w.ping(conn, stop)

	got := false
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return got, fmt.Errorf("read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))

		ticks, err := w.Parse(msg)
		if err != nil {
			w.Log.Debug("unparsed feed message", "err", err, "msg", trimForLog(msg))
			continue
		}
		for _, t := range ticks {
			if t.Market == "" {
				t.Market = w.Market
			}
			if t.Time.IsZero() {
				t.Time = time.Now()
			}
			sink.Feed(t)
			got = true
		}
	}
}

func (w *WS) ping(conn *websocket.Conn, stop <-chan struct{}) {
	if w.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

// CoinexSubscribe builds a market state subscription for the given markets.
func CoinexSubscribe(markets ...string) []byte {
	b, _ := json.Marshal(map[string]any{
		"method": "state.subscribe",
		"params": map[string]any{"market_list": markets},
		"id":     1,
	})
	return b
}

var ErrNoTicks = errors.New("no ticks in message")

type stateUpdate struct {
	Method string `json:"method"`
	Data   struct {
		StateList []struct {
			Market string `json:"market"`
			Last   number `json:"last"`
		} `json:"state_list"`
	} `json:"data"`
}

type plainTick struct {
	Market string `json:"market"`
	Price  number `json:"price"`
	Time   stamp  `json:"time"`
}

// ParseMessage decodes either a CoinEx state.update push or a plain
// {"market","price","time"} object. Subscription acks and other pushes
// yield ErrNoTicks.
func ParseMessage(msg []byte) ([]market.Tick, error) {
	var su stateUpdate
	if err := json.Unmarshal(msg, &su); err != nil {
		return nil, err
	}
	if su.Method == "state.update" {
		out := make([]market.Tick, 0, len(su.Data.StateList))
		for _, s := range su.Data.StateList {
			if s.Last > 0 {
				out = append(out, market.Tick{Market: s.Market, Price: float64(s.Last)})
			}
		}
		if len(out) == 0 {
			return nil, ErrNoTicks
		}
		return out, nil
	}

	var pt plainTick
	if err := json.Unmarshal(msg, &pt); err != nil {
		return nil, err
	}
	if pt.Price <= 0 {
		return nil, ErrNoTicks
	}
	return []market.Tick{{Market: pt.Market, Price: float64(pt.Price), Time: time.Time(pt.Time)}}, nil
}

// number accepts a JSON number or quoted number.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	*n = number(f)
	return err
}

// stamp accepts unix milliseconds or an RFC 3339 string.
type stamp time.Time

func (s *stamp) UnmarshalJSON(b []byte) error {
	t, err := parseTime(strings.Trim(string(b), `"`))
	*s = stamp(t)
	return err
}

func parseTime(v string) (time.Time, error) {
	if v == "" || v == "null" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func trimForLog(b []byte) string {
	const n = 200
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
