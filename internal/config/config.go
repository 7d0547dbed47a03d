package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"cryptosentry/internal/model"
)

// Asset is one monitored symbol.
type Asset struct {
	Symbol  string  `yaml:"symbol"`
	Enabled *bool   `yaml:"enabled"` // nil means enabled
	Weight  float64 `yaml:"weight"`
}

// On reports whether the asset participates in signal generation.
func (a Asset) On() bool { return a.Enabled == nil || *a.Enabled }

// Config holds all application configuration.
type Config struct {
	Exchange struct {
		Name  string `yaml:"name"` // binance | okx
		Proxy string `yaml:"proxy"`
	} `yaml:"exchange"`
	Assets   []Asset `yaml:"assets"`
	Strategy struct {
		Mode                 model.StrategyMode `yaml:"mode"`
		UseFearGreed         bool               `yaml:"use_fear_greed"`
		UseReversal          bool               `yaml:"use_reversal"`
		UseFundingPercentile bool               `yaml:"use_funding_percentile"`
		UseLongShort         bool               `yaml:"use_longshort"`
		UseResonance         bool               `yaml:"use_resonance"`
		UseSellSignal        bool               `yaml:"use_sell_signal"`
	} `yaml:"strategy"`
	Thresholds struct {
		FearBuy                int     `yaml:"fear_buy"`
		GreedSell              int     `yaml:"greed_sell"`
		MaxFGValue             int     `yaml:"max_fg_value"`
		FundingPanicPercentile float64 `yaml:"funding_panic_percentile"`
		FundingGreedPercentile float64 `yaml:"funding_greed_percentile"`
		LongShortExtreme       float64 `yaml:"longshort_extreme"`
	} `yaml:"thresholds"`
	Trend struct {
		MAShortWindow int     `yaml:"ma_short_window"` // sample counts, not calendar days
		MALongWindow  int     `yaml:"ma_long_window"`
		HysteresisPct float64 `yaml:"hysteresis_pct"` // percent of long MA
		ChangeWindow  int     `yaml:"change_window"`  // samples for the momentum gate
		MinChangePct  float64 `yaml:"min_change_pct"`
	} `yaml:"trend"`
	Reversal struct {
		Lookback int `yaml:"lookback"`
	} `yaml:"reversal"`
	Resonance struct {
		QuorumFraction float64 `yaml:"quorum_fraction"`
		WindowMinutes  int     `yaml:"window_minutes"`
		MinAssets      int     `yaml:"min_assets"`
	} `yaml:"resonance"`
	Risk struct {
		StopLossPct float64 `yaml:"stop_loss_pct"` // fraction, e.g. 0.15
	} `yaml:"risk"`
	Backtest struct {
		HorizonsDays   []int  `yaml:"horizons_days"`
		PrimaryHorizon int    `yaml:"primary_horizon"`
		Cron           string `yaml:"cron"`
	} `yaml:"backtest"`
	Stats struct {
		WinRateCeiling float64 `yaml:"win_rate_ceiling"`
		SampleFloor    int     `yaml:"sample_floor"`
	} `yaml:"stats"`
	Schedule struct {
		PollCron string `yaml:"poll_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Runtime struct {
		LogLevel string `yaml:"log_level"`
	} `yaml:"runtime"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
		cfg.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("EXCHANGE_NAME"); v != "" {
		cfg.Exchange.Name = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Exchange.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Runtime.LogLevel = v
	}
	if v := os.Getenv("STOP_LOSS_PCT"); v != "" {
		if pct, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.StopLossPct = pct
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Exchange.Name == "" {
		c.Exchange.Name = "binance"
	}
	if len(c.Assets) == 0 {
		c.Assets = []Asset{{Symbol: "BTC", Weight: 1.0}, {Symbol: "ETH", Weight: 1.0}}
	}
	for i := range c.Assets {
		if c.Assets[i].Weight == 0 {
			c.Assets[i].Weight = 1.0
		}
	}
	if c.Strategy.Mode == "" {
		c.Strategy.Mode = model.ModeFearBuy
	}
	if c.Thresholds.FearBuy == 0 {
		c.Thresholds.FearBuy = 25
	}
	if c.Thresholds.GreedSell == 0 {
		c.Thresholds.GreedSell = 75
	}
	if c.Thresholds.MaxFGValue == 0 {
		c.Thresholds.MaxFGValue = 70
	}
	if c.Thresholds.FundingPanicPercentile == 0 {
		c.Thresholds.FundingPanicPercentile = 15
	}
	if c.Thresholds.FundingGreedPercentile == 0 {
		c.Thresholds.FundingGreedPercentile = 85
	}
	if c.Thresholds.LongShortExtreme == 0 {
		c.Thresholds.LongShortExtreme = 0.8
	}
	if c.Trend.MAShortWindow == 0 {
		c.Trend.MAShortWindow = 7
	}
	if c.Trend.MALongWindow == 0 {
		c.Trend.MALongWindow = 30
	}
	if c.Trend.HysteresisPct == 0 {
		c.Trend.HysteresisPct = 0.5
	}
	if c.Trend.ChangeWindow == 0 {
		c.Trend.ChangeWindow = 7
	}
	if c.Reversal.Lookback == 0 {
		c.Reversal.Lookback = 6
	}
	if c.Resonance.QuorumFraction == 0 {
		c.Resonance.QuorumFraction = 0.5
	}
	if c.Resonance.WindowMinutes == 0 {
		c.Resonance.WindowMinutes = 30
	}
	if c.Resonance.MinAssets == 0 {
		c.Resonance.MinAssets = 2
	}
	if c.Risk.StopLossPct == 0 {
		c.Risk.StopLossPct = 0.15
	}
	if len(c.Backtest.HorizonsDays) == 0 {
		c.Backtest.HorizonsDays = []int{7, 14, 30}
	}
	if c.Backtest.PrimaryHorizon == 0 {
		c.Backtest.PrimaryHorizon = c.Backtest.HorizonsDays[0]
	}
	if c.Backtest.Cron == "" {
		c.Backtest.Cron = "0 15 * * * *" // hourly, offset from the poll tick
	}
	if c.Stats.WinRateCeiling == 0 {
		c.Stats.WinRateCeiling = 0.80
	}
	if c.Stats.SampleFloor == 0 {
		c.Stats.SampleFloor = 30
	}
	if c.Schedule.PollCron == "" {
		c.Schedule.PollCron = "0 */30 * * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/cryptosentry.db"
	}
	if c.Runtime.LogLevel == "" {
		c.Runtime.LogLevel = "info"
	}
}

// Validate checks configuration invariants. Any violation is fatal at
// startup and must prevent the monitoring loop from starting.
func (c *Config) Validate() error {
	switch c.Strategy.Mode {
	case model.ModeTrend, model.ModeFearBuy:
	default:
		return fmt.Errorf("strategy.mode: unknown mode %q (want trend or fear_buy)", c.Strategy.Mode)
	}
	switch c.Exchange.Name {
	case "binance", "okx":
	default:
		return fmt.Errorf("exchange.name: unknown exchange %q (want binance or okx)", c.Exchange.Name)
	}
	enabled := 0
	for _, a := range c.Assets {
		if a.Symbol == "" {
			return fmt.Errorf("assets: empty symbol")
		}
		if a.On() {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("assets: no enabled assets")
	}
	if c.Thresholds.FearBuy >= c.Thresholds.GreedSell {
		return fmt.Errorf("thresholds: fear_buy (%d) must be below greed_sell (%d)",
			c.Thresholds.FearBuy, c.Thresholds.GreedSell)
	}
	if c.Trend.MAShortWindow >= c.Trend.MALongWindow {
		return fmt.Errorf("trend: ma_short_window (%d) must be below ma_long_window (%d)",
			c.Trend.MAShortWindow, c.Trend.MALongWindow)
	}
	if c.Trend.HysteresisPct < 0 {
		return fmt.Errorf("trend: hysteresis_pct must not be negative")
	}
	if c.Reversal.Lookback < 3 {
		return fmt.Errorf("reversal: lookback must be at least 3 samples")
	}
	if c.Resonance.QuorumFraction <= 0 || c.Resonance.QuorumFraction > 1 {
		return fmt.Errorf("resonance: quorum_fraction must be in (0, 1]")
	}
	if c.Resonance.MinAssets < 2 {
		return fmt.Errorf("resonance: min_assets must be at least 2")
	}
	if c.Risk.StopLossPct <= 0 || c.Risk.StopLossPct >= 1 {
		return fmt.Errorf("risk: stop_loss_pct must be in (0, 1)")
	}
	prev := 0
	primaryOK := false
	for _, h := range c.Backtest.HorizonsDays {
		if h <= prev {
			return fmt.Errorf("backtest: horizons_days must be positive and strictly ascending")
		}
		if h == c.Backtest.PrimaryHorizon {
			primaryOK = true
		}
		prev = h
	}
	if !primaryOK {
		return fmt.Errorf("backtest: primary_horizon %d is not one of horizons_days", c.Backtest.PrimaryHorizon)
	}
	if c.Stats.WinRateCeiling <= 0 || c.Stats.WinRateCeiling > 1 {
		return fmt.Errorf("stats: win_rate_ceiling must be in (0, 1]")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// EnabledSymbols returns the symbols participating in this run.
func (c *Config) EnabledSymbols() []string {
	var out []string
	for _, a := range c.Assets {
		if a.On() {
			out = append(out, a.Symbol)
		}
	}
	return out
}
