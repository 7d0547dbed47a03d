package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"cryptosentry/internal/analyzer"
	"cryptosentry/internal/backtest"
	"cryptosentry/internal/config"
	"cryptosentry/internal/exchange"
	"cryptosentry/internal/model"
	"cryptosentry/internal/notifier"
	"cryptosentry/internal/store"
	"cryptosentry/internal/strategy"
)

// Funding percentile needs at least a day of hourly-ish history before a
// rank is meaningful.
const (
	minFundingSamples    = 24
	fundingHistoryWindow = 30 * 24 * time.Hour
)

// Scheduler runs the two periodic cycles: the polling tick that collects
// samples and evaluates the strategy, and the lower-frequency backtest
// scan. Ticks never overlap; a tick still running when the next fires
// causes the new one to be skipped.
type Scheduler struct {
	cron       *cron.Cron
	cfg        *config.Config
	source     exchange.Source
	fearGreed  exchange.FearGreedSource
	store      store.Store
	trend      *analyzer.TrendAnalyzer
	reversal   *analyzer.ReversalDetector
	generator  *strategy.Generator
	backtester *backtest.Backtester
	notifier   notifier.Notifier
	logger     zerolog.Logger
}

func New(
	cfg *config.Config,
	source exchange.Source,
	fearGreed exchange.FearGreedSource,
	st store.Store,
	trend *analyzer.TrendAnalyzer,
	reversal *analyzer.ReversalDetector,
	gen *strategy.Generator,
	bt *backtest.Backtester,
	nt notifier.Notifier,
	logger zerolog.Logger,
) *Scheduler {
	l := logger.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		cfg:        cfg,
		source:     source,
		fearGreed:  fearGreed,
		store:      st,
		trend:      trend,
		reversal:   reversal,
		generator:  gen,
		backtester: bt,
		notifier:   nt,
		logger:     l,
	}
}

// RegisterAll registers the polling and backtest jobs.
func (s *Scheduler) RegisterAll(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Schedule.PollCron, func() { s.PollTick(ctx) }); err != nil {
		return fmt.Errorf("register poll job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.Backtest.Cron, func() { s.BacktestTick(ctx) }); err != nil {
		return fmt.Errorf("register backtest job: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Str("poll", s.cfg.Schedule.PollCron).Str("backtest", s.cfg.Backtest.Cron).Msg("scheduler started")
}

// Stop stops the scheduler and waits for in-flight jobs to finish, so the
// store can be closed safely afterwards.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// PollTick runs one full collection and evaluation pass over all enabled
// assets. A failed fetch degrades that asset's features; it never aborts
// the tick.
func (s *Scheduler) PollTick(ctx context.Context) {
	now := time.Now().UTC()
	s.logger.Info().Msg("poll tick")

	hasFG := s.collectFearGreed(ctx)

	var feats []strategy.Features
	prices := make(map[string]float64)
	for _, symbol := range s.cfg.EnabledSymbols() {
		f, ok := s.collectAsset(ctx, now, symbol, hasFG)
		if !ok {
			continue
		}
		feats = append(feats, f)
		prices[symbol] = f.Price
	}

	signals, err := s.generator.Evaluate(ctx, now, feats)
	if err != nil {
		s.logger.Error().Err(err).Msg("strategy evaluation failed")
		return
	}
	for _, sig := range signals {
		if err := s.store.InsertSignal(ctx, sig); err != nil {
			s.logger.Error().Err(err).Str("asset", sig.Asset).Msg("persist signal failed")
			continue
		}
		s.logger.Info().
			Str("asset", sig.Asset).
			Str("type", string(sig.Type)).
			Str("strength", string(sig.Strength)).
			Float64("entry", sig.EntryPrice).
			Msg("signal emitted")
		// Notification failures never roll back the persisted signal.
		if err := s.notifier.Notify(ctx, notifier.FormatSignal(sig)); err != nil {
			s.logger.Error().Err(err).Str("asset", sig.Asset).Msg("notify failed")
		}
	}

	s.alertStopLosses(ctx, now, prices)
}

// BacktestTick runs one backtest scan over unresolved signals.
func (s *Scheduler) BacktestTick(ctx context.Context) {
	s.logger.Info().Msg("backtest tick")
	if err := s.backtester.Run(ctx, time.Now().UTC()); err != nil {
		s.logger.Error().Err(err).Msg("backtest scan failed")
	}
}

func (s *Scheduler) collectFearGreed(ctx context.Context) bool {
	fg, ok := s.fearGreed.Current(ctx)
	if !ok {
		return false
	}
	if err := s.store.AppendFearGreed(ctx, fg); err != nil {
		s.logger.Error().Err(err).Msg("append fear-greed failed")
		return false
	}
	return true
}

// collectAsset fetches and persists this tick's samples for one asset, then
// computes its feature set from stored history. Returns ok=false only when
// no price is available, which makes every condition unevaluable.
func (s *Scheduler) collectAsset(ctx context.Context, now time.Time, symbol string, hasFG bool) (strategy.Features, bool) {
	price, ok := s.source.SpotPrice(ctx, symbol)
	if !ok {
		s.logger.Warn().Str("asset", symbol).Msg("no price this tick, skipping asset")
		return strategy.Features{}, false
	}
	if err := s.store.AppendPrice(ctx, model.PriceSample{Asset: symbol, Time: now, Price: price}); err != nil {
		s.logger.Error().Err(err).Str("asset", symbol).Msg("append price failed")
		return strategy.Features{}, false
	}

	f := strategy.Features{Asset: symbol, Price: price}

	if hasFG {
		recent, err := s.store.RecentFearGreed(ctx, s.cfg.Reversal.Lookback)
		if err != nil {
			s.logger.Error().Err(err).Msg("load fear-greed history failed")
		} else if len(recent) > 0 {
			f.FearGreed = recent[len(recent)-1].Value
			f.HasFearGreed = true
			f.Reversal = s.reversal.Detect(recent)
		}
	}

	histLen := s.cfg.Trend.MALongWindow + s.cfg.Trend.ChangeWindow
	history, err := s.store.RecentPrices(ctx, symbol, histLen)
	if err != nil {
		s.logger.Error().Err(err).Str("asset", symbol).Msg("load price history failed")
	} else {
		f.Trend = s.trend.Analyze(symbol, history)
	}

	if s.cfg.Strategy.UseFundingPercentile {
		if rate, ok := s.source.FundingRate(ctx, symbol); ok {
			if err := s.store.AppendFunding(ctx, model.FundingSample{Asset: symbol, Time: now, Rate: rate}); err != nil {
				s.logger.Error().Err(err).Str("asset", symbol).Msg("append funding failed")
			}
			hist, err := s.store.FundingSince(ctx, symbol, now.Add(-fundingHistoryWindow))
			if err == nil {
				if pct, ok := analyzer.FundingPercentile(hist, rate, minFundingSamples); ok {
					f.FundingPercentile = pct
					f.HasFundingPct = true
				}
			}
		}
	}

	if s.cfg.Strategy.UseLongShort {
		if ratio, ok := s.source.LongShortRatio(ctx, symbol); ok {
			if err := s.store.AppendLongShort(ctx, model.LongShortSample{Asset: symbol, Time: now, Ratio: ratio}); err != nil {
				s.logger.Error().Err(err).Str("asset", symbol).Msg("append long/short failed")
			}
			f.LongShortRatio = ratio
			f.HasLongShort = true
		}
	}

	return f, true
}

// alertStopLosses warns about open buys trading below the stop level. The
// alert is informational; the backtester records the actual exit when it
// next walks the series.
func (s *Scheduler) alertStopLosses(ctx context.Context, now time.Time, prices map[string]float64) {
	open, err := s.store.UnresolvedSignals(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("load open signals failed")
		return
	}
	for _, sig := range open {
		if !sig.Open() {
			continue
		}
		price, ok := prices[sig.Asset]
		if !ok {
			continue
		}
		if price <= sig.EntryPrice*(1-s.cfg.Risk.StopLossPct) {
			s.logger.Warn().
				Str("asset", sig.Asset).
				Float64("entry", sig.EntryPrice).
				Float64("price", price).
				Msg("open position below stop level")
			if err := s.notifier.Notify(ctx, notifier.FormatStopLoss(sig, price, s.cfg.Risk.StopLossPct)); err != nil {
				s.logger.Error().Err(err).Str("asset", sig.Asset).Msg("notify failed")
			}
		}
	}
}
