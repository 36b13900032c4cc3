package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/paper"
	"github.com/rustyeddy/papertrader/risk"
)

// Config is the complete papertrader configuration.
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account"`
	Risk      RiskConfig      `json:"risk" yaml:"risk"`
	AutoTrade AutoTradeConfig `json:"autotrade" yaml:"autotrade"`
	Exchange  ExchangeConfig  `json:"exchange" yaml:"exchange"`
	Feed      FeedConfig      `json:"feed" yaml:"feed"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Metrics   ServerConfig    `json:"metrics" yaml:"metrics"`
	Telemetry ServerConfig    `json:"telemetry" yaml:"telemetry"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

type AccountConfig struct {
	Currency       string  `json:"currency" yaml:"currency"`
	Market         string  `json:"market" yaml:"market"`
	InitialBalance float64 `json:"initial_balance" yaml:"initial_balance"`
	AllowShort     bool    `json:"allow_short" yaml:"allow_short"`
	Leverage       int     `json:"leverage,omitempty" yaml:"leverage,omitempty"`
}

type RiskConfig struct {
	RiskPercent      float64 `json:"risk_percent" yaml:"risk_percent"`
	RiskReward       float64 `json:"risk_reward" yaml:"risk_reward"`
	FixedRiskPercent float64 `json:"fixed_risk_percent" yaml:"fixed_risk_percent"`
	ATRStopMult      float64 `json:"atr_sl_multiplier" yaml:"atr_sl_multiplier"`
	ATRTakeMult      float64 `json:"atr_tp_multiplier" yaml:"atr_tp_multiplier"`
	DefaultTickSize  float64 `json:"default_tick_size" yaml:"default_tick_size"`
	MinConfidence    float64 `json:"min_confidence" yaml:"min_confidence"`
	MaxOpenOrders    int     `json:"max_open_orders" yaml:"max_open_orders"`
	MinBalance       float64 `json:"min_balance" yaml:"min_balance"`
	VolatilityVeto   float64 `json:"volatility_veto" yaml:"volatility_veto"`
}

type AutoTradeConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	Interval       string `json:"interval" yaml:"interval"` // e.g. "1m"
	CandleInterval string `json:"candle_interval" yaml:"candle_interval"`
	CandleLimit    int    `json:"candle_limit" yaml:"candle_limit"`
	AIURL          string `json:"ai_url" yaml:"ai_url"`
	AIModel        string `json:"ai_model" yaml:"ai_model"`
	AIKey          string `json:"ai_api_key,omitempty" yaml:"ai_api_key,omitempty"`
	AITimeout      string `json:"ai_timeout" yaml:"ai_timeout"`
}

type ExchangeConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Timeout string `json:"timeout" yaml:"timeout"`
}

type FeedConfig struct {
	URL        string `json:"url" yaml:"url"`
	ReplayFile string `json:"replay_file,omitempty" yaml:"replay_file,omitempty"`
}

// JournalConfig selects the export sink.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ServerConfig is a listen address; empty disables the server.
// AllowedOrigins applies to websocket endpoints: empty means same-origin
// only, "*" admits any browser origin.
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "text"
}

// LoadFromFile reads a YAML or JSON file, overlays PAPER_* environment
// variables and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment without overriding variables already set. A missing file is
// not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error { *dst(c) = v; return nil }
}

func float(dst func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

func integer(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func boolean(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

var envVars = []envVar{
	{"PAPER_MARKET", str(func(c *Config) *string { return &c.Account.Market })},
	{"PAPER_CURRENCY", str(func(c *Config) *string { return &c.Account.Currency })},
	{"PAPER_INITIAL_BALANCE", float(func(c *Config) *float64 { return &c.Account.InitialBalance })},
	{"PAPER_ALLOW_SHORT", boolean(func(c *Config) *bool { return &c.Account.AllowShort })},
	{"PAPER_LEVERAGE", integer(func(c *Config) *int { return &c.Account.Leverage })},
	{"PAPER_RISK_PERCENT", float(func(c *Config) *float64 { return &c.Risk.RiskPercent })},
	{"PAPER_MIN_CONFIDENCE", float(func(c *Config) *float64 { return &c.Risk.MinConfidence })},
	{"PAPER_MAX_OPEN_ORDERS", integer(func(c *Config) *int { return &c.Risk.MaxOpenOrders })},
	{"PAPER_AUTOTRADE", boolean(func(c *Config) *bool { return &c.AutoTrade.Enabled })},
	{"PAPER_AUTOTRADE_INTERVAL", str(func(c *Config) *string { return &c.AutoTrade.Interval })},
	{"PAPER_AI_URL", str(func(c *Config) *string { return &c.AutoTrade.AIURL })},
	{"PAPER_AI_MODEL", str(func(c *Config) *string { return &c.AutoTrade.AIModel })},
	{"PAPER_AI_API_KEY", str(func(c *Config) *string { return &c.AutoTrade.AIKey })},
	{"PAPER_EXCHANGE_URL", str(func(c *Config) *string { return &c.Exchange.BaseURL })},
	{"PAPER_FEED_URL", str(func(c *Config) *string { return &c.Feed.URL })},
	{"PAPER_JOURNAL", str(func(c *Config) *string { return &c.Journal.Type })},
	{"PAPER_JOURNAL_DB", str(func(c *Config) *string { return &c.Journal.DBPath })},
	{"PAPER_METRICS_ADDR", str(func(c *Config) *string { return &c.Metrics.Addr })},
	{"PAPER_TELEMETRY_ADDR", str(func(c *Config) *string { return &c.Telemetry.Addr })},
	{"PAPER_LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"PAPER_LOG_FORMAT", str(func(c *Config) *string { return &c.Log.Format })},
}

// ApplyEnv overrides fields from PAPER_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok {
			continue
		}
		if err := ev.set(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("env %s: %w", ev.name, err)
		}
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Market == "" {
		return fmt.Errorf("account.market is required")
	}
	if c.Account.InitialBalance <= 0 {
		return fmt.Errorf("account.initial_balance must be positive")
	}
	if c.Account.Leverage < 0 {
		return fmt.Errorf("account.leverage must not be negative")
	}

	r := c.Risk
	if r.RiskPercent <= 0 || r.RiskPercent > 1 {
		return fmt.Errorf("risk.risk_percent must be between 0 and 1")
	}
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		return fmt.Errorf("risk.min_confidence must be between 0 and 1")
	}
	if r.MaxOpenOrders < 0 {
		return fmt.Errorf("risk.max_open_orders must not be negative")
	}
	if r.VolatilityVeto < 0 || r.RiskReward < 0 || r.FixedRiskPercent < 0 ||
		r.ATRStopMult < 0 || r.ATRTakeMult < 0 || r.DefaultTickSize < 0 || r.MinBalance < 0 {
		return fmt.Errorf("risk values must not be negative")
	}

	if c.AutoTrade.Enabled {
		if c.AutoTrade.AIURL == "" {
			return fmt.Errorf("autotrade.ai_url is required when autotrade is enabled")
		}
		if d, err := c.AutoTrade.Every(); err != nil || d <= 0 {
			return fmt.Errorf("autotrade.interval must be a positive duration")
		}
	}
	for name, v := range map[string]string{
		"autotrade.ai_timeout": c.AutoTrade.AITimeout,
		"exchange.timeout":     c.Exchange.Timeout,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("log.format must be 'json' or 'text'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	p := risk.DefaultPolicy()
	return &Config{
		Account: AccountConfig{
			Currency:       "USDT",
			Market:         "BTCUSDT",
			InitialBalance: 10000,
			AllowShort:     true,
			Leverage:       1,
		},
		Risk: RiskConfig{
			RiskPercent:      p.RiskPercent,
			RiskReward:       p.RiskReward,
			FixedRiskPercent: p.FixedRiskPercent,
			ATRStopMult:      p.ATRStopMult,
			ATRTakeMult:      p.ATRTakeMult,
			DefaultTickSize:  p.DefaultTickSize,
			MinConfidence:    p.MinConfidence,
			MaxOpenOrders:    p.MaxOpenOrders,
			MinBalance:       p.MinBalance,
			VolatilityVeto:   p.VolatilityVeto,
		},
		AutoTrade: AutoTradeConfig{
			Interval:       "1m",
			CandleInterval: "5m",
			CandleLimit:    100,
			AIModel:        "gpt-4o-mini",
			AITimeout:      "30s",
		},
		Exchange: ExchangeConfig{
			BaseURL: "https://api.coinex.com",
			Timeout: "10s",
		},
		Feed: FeedConfig{
			URL: "wss://socket.coinex.com/v2/spot",
		},
		Journal: JournalConfig{Type: "none"},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Policy converts the risk section to a risk.Policy.
func (r RiskConfig) Policy() risk.Policy {
	return risk.Policy{
		RiskPercent:      r.RiskPercent,
		RiskReward:       r.RiskReward,
		FixedRiskPercent: r.FixedRiskPercent,
		ATRStopMult:      r.ATRStopMult,
		ATRTakeMult:      r.ATRTakeMult,
		DefaultTickSize:  r.DefaultTickSize,
		MinConfidence:    r.MinConfidence,
		MaxOpenOrders:    r.MaxOpenOrders,
		MinBalance:       r.MinBalance,
		VolatilityVeto:   r.VolatilityVeto,
	}
}

// Engine returns the paper engine configuration.
func (c *Config) Engine() paper.Config {
	return paper.Config{
		Market:         c.Account.Market,
		InitialBalance: c.Account.InitialBalance,
		AllowShort:     c.Account.AllowShort,
		Leverage:       c.Account.Leverage,
		AutoTrading:    c.AutoTrade.Enabled,
		Policy:         c.Risk.Policy(),
	}
}

// Every is the autotrade cycle interval.
func (a AutoTradeConfig) Every() (time.Duration, error) { return parseDuration(a.Interval) }

func (a AutoTradeConfig) Timeout() time.Duration { return mustDuration(a.AITimeout) }

func (e ExchangeConfig) TimeoutDuration() time.Duration { return mustDuration(e.Timeout) }

// Open builds the configured journal.
func (j JournalConfig) Open() (journal.Journal, error) {
	switch j.Type {
	case "csv":
		return journal.NewCSV(j.TradesFile, j.EquityFile)
	case "sqlite":
		return journal.NewSQLite(j.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// mustDuration is for fields Validate has already checked.
func mustDuration(s string) time.Duration {
	d, _ := parseDuration(s)
	return d
}
