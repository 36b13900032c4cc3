// Package coinex reads market data from the CoinEx v2 REST API.
package coinex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/market"
)

const DefaultBaseURL = "https://api.coinex.com"

// MaxLimit is the most klines the API returns per request.
const MaxLimit = 1000

var ErrAPI = errors.New("coinex api error")

// periods maps short interval names to CoinEx kline periods.
var periods = map[string]string{
	"1m":  "1min",
	"3m":  "3min",
	"5m":  "5min",
	"15m": "15min",
	"30m": "30min",
	"1h":  "1hour",
	"2h":  "2hour",
	"4h":  "4hour",
	"6h":  "6hour",
	"12h": "12hour",
	"1d":  "1day",
	"3d":  "3day",
	"1w":  "1week",
}

// Period converts an interval such as "5m" to the API's "5min". Names the
// API already understands pass through.
func Period(interval string) string {
	if p, ok := periods[strings.ToLower(interval)]; ok {
		return p
	}
	return interval
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

var _ market.Source = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// envelope is the common response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiKline struct {
	Market    string  `json:"market"`
	CreatedAt int64   `json:"created_at"`
	Open      decimal `json:"open"`
	Close     decimal `json:"close"`
	High      decimal `json:"high"`
	Low       decimal `json:"low"`
	Volume    decimal `json:"volume"`
}

type apiMarket struct {
	Market   string    `json:"market"`
	TickSize decimal   `json:"tick_size"`
	Leverage []integer `json:"leverage"`
}

// GetCandles returns up to limit klines, oldest first with duplicates
// removed.
func (c *Client) GetCandles(ctx context.Context, mkt, interval string, limit int) ([]market.Candle, error) {
	if mkt == "" {
		return nil, fmt.Errorf("market is required")
	}
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}

	params := url.Values{}
	params.Set("market", mkt)
	params.Set("period", Period(interval))
	params.Set("limit", strconv.Itoa(limit))

	var klines []apiKline
	if err := c.get(ctx, "/v2/spot/kline", params, &klines); err != nil {
		return nil, fmt.Errorf("get candles %s: %w", mkt, err)
	}

	candles := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, market.Candle{
			Time:   time.UnixMilli(k.CreatedAt).UTC(),
			Open:   float64(k.Open),
			High:   float64(k.High),
			Low:    float64(k.Low),
			Close:  float64(k.Close),
			Volume: float64(k.Volume),
		})
	}
	return market.Normalize(candles), nil
}

// GetMarketTickSize returns the tick size and leverage tiers for mkt.
func (c *Client) GetMarketTickSize(ctx context.Context, mkt string) (market.TickSize, error) {
	params := url.Values{}
	params.Set("market", mkt)

	var markets []apiMarket
	if err := c.get(ctx, "/v2/futures/market", params, &markets); err != nil {
		return market.TickSize{}, fmt.Errorf("get market %s: %w", mkt, err)
	}

	for _, m := range markets {
		if !strings.EqualFold(m.Market, mkt) {
			continue
		}
		ts := market.TickSize{Market: m.Market, TickSize: float64(m.TickSize)}
		for _, l := range m.Leverage {
			ts.Leverage = append(ts.Leverage, int(l))
		}
		return ts, nil
	}
	return market.TickSize{}, fmt.Errorf("get market %s: %w: market not listed", mkt, ErrAPI)
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	apiURL := c.baseURL + path
	if len(params) > 0 {
		apiURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w (status %d): %s", ErrAPI, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Code != 0 {
		return fmt.Errorf("%w (code %d): %s", ErrAPI, env.Code, env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	c.log.Debug("coinex request", "path", path, "market", params.Get("market"))
	return nil
}

// decimal accepts a JSON number or a quoted number, as the API sends prices
// as strings.
type decimal float64

func (d *decimal) UnmarshalJSON(b []byte) error {
	f, err := parseNumber(b)
	*d = decimal(f)
	return err
}

type integer int

func (n *integer) UnmarshalJSON(b []byte) error {
	f, err := parseNumber(b)
	*n = integer(f)
	return err
}

func parseNumber(b []byte) (float64, error) {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
