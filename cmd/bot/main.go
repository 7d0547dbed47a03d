package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"cryptosentry/internal/analyzer"
	"cryptosentry/internal/backtest"
	"cryptosentry/internal/config"
	"cryptosentry/internal/exchange"
	"cryptosentry/internal/notifier"
	"cryptosentry/internal/scheduler"
	"cryptosentry/internal/stats"
	"cryptosentry/internal/store"
	"cryptosentry/internal/strategy"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "path to config file")
	showStats := flag.Bool("stats", false, "print aggregated signal statistics and exit")
	flag.Parse()

	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	path := *cfgPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		fatal("load config", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("config validation", err)
	}

	logger := newLogger(cfg.Runtime.LogLevel)
	logger.Info().Str("mode", string(cfg.Strategy.Mode)).Str("exchange", cfg.Exchange.Name).Msg("cryptosentry starting")

	st, err := store.NewSQLite(cfg.Database.SQLitePath, logger)
	if err != nil {
		fatal("open store", err)
	}
	defer st.Close()

	if *showStats {
		runStats(cfg, st, logger)
		return
	}

	source, err := exchange.New(cfg.Exchange.Name, cfg.Exchange.Proxy, logger)
	if err != nil {
		fatal("init exchange", err)
	}
	fearGreed := exchange.NewAlternativeMe(cfg.Exchange.Proxy, logger)

	trend := analyzer.NewTrendAnalyzer(analyzer.TrendConfig{
		ShortWindow:   cfg.Trend.MAShortWindow,
		LongWindow:    cfg.Trend.MALongWindow,
		HysteresisPct: cfg.Trend.HysteresisPct,
		ChangeWindow:  cfg.Trend.ChangeWindow,
	})
	reversal := analyzer.NewReversalDetector(cfg.Reversal.Lookback)
	resonance := analyzer.NewResonanceDetector(
		cfg.Resonance.QuorumFraction,
		time.Duration(cfg.Resonance.WindowMinutes)*time.Minute,
		cfg.Resonance.MinAssets,
	)
	gen := strategy.NewGenerator(strategyConfig(cfg), resonance, st, logger)
	bt := backtest.New(backtest.Config{
		HorizonsDays: cfg.Backtest.HorizonsDays,
		StopLossPct:  cfg.Risk.StopLossPct,
	}, st, logger)

	var nt notifier.Notifier = notifier.Noop{}
	if cfg.Telegram.Enabled {
		nt = notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Exchange.Proxy, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(cfg, source, fearGreed, st, trend, reversal, gen, bt, nt, logger)
	if err := sched.RegisterAll(ctx); err != nil {
		fatal("register cron jobs", err)
	}
	sched.Start()

	if os.Getenv("RUN_ON_START") == "true" {
		go sched.PollTick(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received")
	cancel()
	sched.Stop()
	logger.Info().Msg("cryptosentry stopped")
}

func runStats(cfg *config.Config, st store.Store, logger zerolog.Logger) {
	rep, err := stats.New(stats.Config{
		PrimaryHorizon:    cfg.Backtest.PrimaryHorizon,
		HorizonsDays:      cfg.Backtest.HorizonsDays,
		WinRateCeiling:    cfg.Stats.WinRateCeiling,
		SampleFloor:       cfg.Stats.SampleFloor,
		EnabledConditions: enabledConditions(cfg),
	}, st, logger).Build(context.Background())
	if err != nil {
		fatal("build stats", err)
	}
	stats.Render(os.Stdout, rep)
}

func strategyConfig(cfg *config.Config) strategy.Config {
	return strategy.Config{
		Mode:                 cfg.Strategy.Mode,
		UseFearGreed:         cfg.Strategy.UseFearGreed,
		UseReversal:          cfg.Strategy.UseReversal,
		UseFundingPercentile: cfg.Strategy.UseFundingPercentile,
		UseLongShort:         cfg.Strategy.UseLongShort,
		UseResonance:         cfg.Strategy.UseResonance,
		UseSellSignal:        cfg.Strategy.UseSellSignal,

		FearBuy:                cfg.Thresholds.FearBuy,
		GreedSell:              cfg.Thresholds.GreedSell,
		MaxFGValue:             cfg.Thresholds.MaxFGValue,
		FundingPanicPercentile: cfg.Thresholds.FundingPanicPercentile,
		FundingGreedPercentile: cfg.Thresholds.FundingGreedPercentile,
		LongShortExtreme:       cfg.Thresholds.LongShortExtreme,
		MinChangePct:           cfg.Trend.MinChangePct,
	}
}

func enabledConditions(cfg *config.Config) int {
	n := 1 // the mode's primary gate is always on
	for _, on := range []bool{
		cfg.Strategy.UseReversal,
		cfg.Strategy.UseFundingPercentile,
		cfg.Strategy.UseLongShort,
		cfg.Strategy.UseResonance,
	} {
		if on {
			n++
		}
	}
	return n
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

func fatal(msg string, err error) {
	logger := zerolog.New(os.Stderr)
	logger.Error().Err(err).Msg(msg)
	os.Exit(1)
}
