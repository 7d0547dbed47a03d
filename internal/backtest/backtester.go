package backtest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cryptosentry/internal/model"
	"cryptosentry/internal/store"
)

// Config holds the walk-forward parameters.
type Config struct {
	// HorizonsDays are the realized-return horizons, ascending.
	HorizonsDays []int
	// StopLossPct is the fractional drop from entry that exits a buy early.
	StopLossPct float64
}

// Backtester resolves signals against the forward price series: it fills
// per-horizon realized returns, detects stop-loss exits, and records the
// max drawdown along the walked path. Every fill is idempotent, so a run
// that overlaps or repeats an earlier one converges to the same stored
// state.
type Backtester struct {
	cfg    Config
	store  store.Store
	logger zerolog.Logger
}

func New(cfg Config, st store.Store, logger zerolog.Logger) *Backtester {
	return &Backtester{
		cfg:    cfg,
		store:  st,
		logger: logger.With().Str("component", "backtest").Logger(),
	}
}

// Run scans all unresolved signals and advances each as far as the price
// series allows. A signal with insufficient forward data is left for the
// next run; per-signal errors are logged and do not abort the scan.
func (b *Backtester) Run(ctx context.Context, now time.Time) error {
	signals, err := b.store.UnresolvedSignals(ctx, now)
	if err != nil {
		return err
	}
	for _, sig := range signals {
		if err := b.resolve(ctx, now, sig); err != nil {
			b.logger.Error().Err(err).Str("signal", sig.ID).Msg("backtest pass failed")
		}
	}
	return nil
}

// resolve walks one signal forward. Buys exit early when price touches the
// stop level; horizons whose deadline falls after the stop are never filled,
// so a stopped-out signal's later returns stay null rather than being
// computed from post-exit prices.
func (b *Backtester) resolve(ctx context.Context, now time.Time, sig *model.Signal) error {
	prices, err := b.store.PricesFrom(ctx, sig.Asset, sig.Time)
	if err != nil {
		return err
	}

	walk := b.walkForward(sig, prices)

	filled := 0
	for _, days := range b.cfg.HorizonsDays {
		deadline := sig.Time.Add(time.Duration(days) * 24 * time.Hour)
		if walk.stopped && !walk.stopTime.After(deadline) {
			break
		}
		if now.Before(deadline) {
			// Horizon not reached yet in wall-clock time; later
			// horizons are even further out.
			return nil
		}
		ps, err := b.store.PriceAtOrAfter(ctx, sig.Asset, deadline)
		if err != nil {
			return err
		}
		if ps == nil {
			return nil
		}
		inserted, err := b.store.FillHorizon(ctx, sig.ID, days, model.HorizonReturn{
			Price:  ps.Price,
			Return: ps.Price/sig.EntryPrice - 1,
		})
		if err != nil {
			return err
		}
		if inserted {
			b.logger.Info().
				Str("signal", sig.ID).
				Str("asset", sig.Asset).
				Int("horizon_days", days).
				Float64("return", ps.Price/sig.EntryPrice-1).
				Msg("horizon filled")
		}
		filled++
	}

	if !walk.stopped && filled < len(b.cfg.HorizonsDays) {
		return nil
	}

	if err := b.store.FinalizeSignal(ctx, sig.ID, walk.maxDrawdown, walk.stopped); err != nil {
		return err
	}
	ev := b.logger.Info().
		Str("signal", sig.ID).
		Str("asset", sig.Asset).
		Bool("stop_loss", walk.stopped).
		Float64("max_drawdown", walk.maxDrawdown)
	if walk.stopped {
		ev = ev.Float64("exit_price", walk.stopPrice)
	}
	ev.Msg("signal resolved")
	return nil
}

type walkResult struct {
	stopped     bool
	stopTime    time.Time
	stopPrice   float64
	maxDrawdown float64
}

// walkForward replays the price path from entry, tracking the largest
// peak-to-trough decline and, for buys, the first touch of the stop level.
func (b *Backtester) walkForward(sig *model.Signal, prices []model.PriceSample) walkResult {
	var res walkResult
	stopLevel := sig.EntryPrice * (1 - b.cfg.StopLossPct)
	peak := sig.EntryPrice

	lastDeadline := sig.Time
	if n := len(b.cfg.HorizonsDays); n > 0 {
		lastDeadline = sig.Time.Add(time.Duration(b.cfg.HorizonsDays[n-1]) * 24 * time.Hour)
	}

	for _, p := range prices {
		if p.Time.After(lastDeadline) {
			break
		}
		if p.Price > peak {
			peak = p.Price
		}
		if dd := (peak - p.Price) / peak; dd > res.maxDrawdown {
			res.maxDrawdown = dd
		}
		if sig.Type == model.SignalBuy && p.Price <= stopLevel {
			res.stopped = true
			res.stopTime = p.Time
			res.stopPrice = p.Price
			break
		}
	}
	return res
}
