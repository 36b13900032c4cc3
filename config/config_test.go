package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/risk"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "USDT", cfg.Account.Currency)
	assert.Equal(t, "BTCUSDT", cfg.Account.Market)
	assert.Equal(t, 10000.0, cfg.Account.InitialBalance)
	assert.Equal(t, risk.DefaultPolicy(), cfg.Risk.Policy())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing currency", func(c *Config) { c.Account.Currency = "" }, "account.currency is required"},
		{"missing market", func(c *Config) { c.Account.Market = "" }, "account.market is required"},
		{"negative balance", func(c *Config) { c.Account.InitialBalance = -1 }, "account.initial_balance must be positive"},
		{"risk percent too big", func(c *Config) { c.Risk.RiskPercent = 1.5 }, "risk.risk_percent must be between 0 and 1"},
		{"confidence on percent scale", func(c *Config) { c.Risk.MinConfidence = 70 }, "risk.min_confidence"},
		{"negative veto", func(c *Config) { c.Risk.VolatilityVeto = -0.1 }, "must not be negative"},
		{"autotrade without ai", func(c *Config) { c.AutoTrade.Enabled = true }, "autotrade.ai_url is required"},
		{"autotrade bad interval", func(c *Config) {
			c.AutoTrade.Enabled = true
			c.AutoTrade.AIURL = "http://localhost"
			c.AutoTrade.Interval = "soon"
		}, "autotrade.interval"},
		{"bad timeout", func(c *Config) { c.Exchange.Timeout = "10 parsecs" }, "exchange.timeout"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "kafka" }, "journal.type"},
		{"csv without files", func(c *Config) { c.Journal.Type = "csv" }, "trades_file and equity_file"},
		{"sqlite without path", func(c *Config) { c.Journal.Type = "sqlite" }, "db_path required"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := Default()
			cfg.Account.Market = "ETHUSDT"
			cfg.Risk.MaxOpenOrders = 5
			cfg.AutoTrade.Enabled = true
			cfg.AutoTrade.AIURL = "http://localhost:8080/v1"
			require.NoError(t, cfg.SaveToFile(path))

			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  market: SOLUSDT\n"), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", cfg.Account.Market)
	assert.Equal(t, "USDT", cfg.Account.Currency)
	assert.Equal(t, risk.MinConfidence, cfg.Risk.MinConfidence)
}

func TestLoadTelemetryOrigins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "origins.yaml")
	body := "telemetry:\n  addr: \":8090\"\n  allowed_origins:\n    - http://dash.example\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":8090", cfg.Telemetry.Addr)
	assert.Equal(t, []string{"http://dash.example"}, cfg.Telemetry.AllowedOrigins)
	assert.Empty(t, Default().Telemetry.AllowedOrigins)
}

func TestLoadErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: [unclosed"), 0o600))
	_, err = LoadFromFile(path)
	assert.Error(t, err)

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  initial_balance: -5\n"), 0o600))
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PAPER_MARKET":          "ETHUSDT",
		"PAPER_INITIAL_BALANCE": "2500.5",
		"PAPER_ALLOW_SHORT":     "false",
		"PAPER_MAX_OPEN_ORDERS": " 7 ",
		"PAPER_AUTOTRADE":       "true",
		"PAPER_AI_API_KEY":      "sk-test",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "ETHUSDT", cfg.Account.Market)
	assert.Equal(t, 2500.5, cfg.Account.InitialBalance)
	assert.False(t, cfg.Account.AllowShort)
	assert.Equal(t, 7, cfg.Risk.MaxOpenOrders)
	assert.True(t, cfg.AutoTrade.Enabled)
	assert.Equal(t, "sk-test", cfg.AutoTrade.AIKey)

	env = map[string]string{"PAPER_LEVERAGE": "lots"}
	err := Default().ApplyEnv(lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAPER_LEVERAGE")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadEnvFile(filepath.Join(dir, ".env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PAPER_TEST_ONLY_VALUE=from-file\n"), 0o600))
	t.Setenv("PAPER_TEST_ONLY_VALUE", "")
	require.NoError(t, os.Unsetenv("PAPER_TEST_ONLY_VALUE"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("PAPER_TEST_ONLY_VALUE"))
}

func TestEngineConfig(t *testing.T) {
	cfg := Default()
	cfg.AutoTrade.Enabled = true
	ec := cfg.Engine()
	assert.Equal(t, "BTCUSDT", ec.Market)
	assert.Equal(t, 10000.0, ec.InitialBalance)
	assert.True(t, ec.AutoTrading)
	assert.Equal(t, risk.DefaultPolicy(), ec.Policy)
}

func TestJournalOpen(t *testing.T) {
	j, err := JournalConfig{Type: "none"}.Open()
	require.NoError(t, err)
	assert.IsType(t, journal.Nop{}, j)

	dir := t.TempDir()
	j, err = JournalConfig{Type: "sqlite", DBPath: filepath.Join(dir, "j.db")}.Open()
	require.NoError(t, err)
	assert.NoError(t, j.Close())

	j, err = JournalConfig{Type: "csv", TradesFile: filepath.Join(dir, "t.csv"), EquityFile: filepath.Join(dir, "e.csv")}.Open()
	require.NoError(t, err)
	assert.NoError(t, j.Close())
}
