package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosentry/internal/model"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, model.ModeFearBuy, cfg.Strategy.Mode)
	assert.Equal(t, "binance", cfg.Exchange.Name)
	assert.Equal(t, 25, cfg.Thresholds.FearBuy)
	assert.Equal(t, 75, cfg.Thresholds.GreedSell)
	assert.Equal(t, 0.15, cfg.Risk.StopLossPct)
	assert.Equal(t, []int{7, 14, 30}, cfg.Backtest.HorizonsDays)
	assert.Equal(t, 7, cfg.Backtest.PrimaryHorizon)
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.EnabledSymbols())
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
exchange:
  name: okx
strategy:
  mode: trend
assets:
  - symbol: BTC
  - symbol: SOL
    enabled: false
`), 0o644))
	t.Setenv("STOP_LOSS_PCT", "0.2")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "okx", cfg.Exchange.Name)
	assert.Equal(t, model.ModeTrend, cfg.Strategy.Mode)
	assert.Equal(t, 0.2, cfg.Risk.StopLossPct)
	assert.Equal(t, []string{"BTC"}, cfg.EnabledSymbols())
}

func valid(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestValidateRejectsInvariantViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Strategy.Mode = "hodl" }, "unknown mode"},
		{"unknown exchange", func(c *Config) { c.Exchange.Name = "mtgox" }, "unknown exchange"},
		{"no enabled assets", func(c *Config) {
			off := false
			for i := range c.Assets {
				c.Assets[i].Enabled = &off
			}
		}, "no enabled assets"},
		{"fear at or above greed", func(c *Config) { c.Thresholds.FearBuy = 80 }, "fear_buy"},
		{"short window too big", func(c *Config) { c.Trend.MAShortWindow = 40 }, "ma_short_window"},
		{"lookback too small", func(c *Config) { c.Reversal.Lookback = 2 }, "lookback"},
		{"quorum out of range", func(c *Config) { c.Resonance.QuorumFraction = 1.5 }, "quorum_fraction"},
		{"min assets too small", func(c *Config) { c.Resonance.MinAssets = 1 }, "min_assets"},
		{"stop loss out of range", func(c *Config) { c.Risk.StopLossPct = 1.5 }, "stop_loss_pct"},
		{"horizons not ascending", func(c *Config) { c.Backtest.HorizonsDays = []int{14, 7}; c.Backtest.PrimaryHorizon = 7 }, "ascending"},
		{"primary not a horizon", func(c *Config) { c.Backtest.PrimaryHorizon = 9 }, "primary_horizon"},
		{"telegram missing token", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = "42" }, "bot_token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid(t)
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
