package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cryptosentry/internal/analyzer"
	"cryptosentry/internal/model"
	"cryptosentry/internal/store"
)

// Config holds the strategy knobs the generator evaluates against.
type Config struct {
	Mode model.StrategyMode

	UseFearGreed         bool
	UseReversal          bool
	UseFundingPercentile bool
	UseLongShort         bool
	UseResonance         bool
	UseSellSignal        bool

	FearBuy                int
	GreedSell              int
	MaxFGValue             int
	FundingPanicPercentile float64
	FundingGreedPercentile float64
	LongShortExtreme       float64
	MinChangePct           float64
}

// Features are the per-asset inputs computed for one tick. Has* flags mark
// optional features as present; an absent feature degrades the evaluation,
// it never aborts the tick.
type Features struct {
	Asset             string
	Price             float64
	FearGreed         int
	HasFearGreed      bool
	Trend             model.TrendState
	Reversal          model.Reversal
	FundingPercentile float64
	HasFundingPct     bool
	LongShortRatio    float64
	HasLongShort      bool
}

// Generator turns per-asset features into at most one signal per asset per
// tick. The decision is a logical AND across all enabled conditions;
// disabled conditions are excluded from the AND entirely, so disabling a
// check is never the same as forcing it to pass.
type Generator struct {
	cfg       Config
	resonance *analyzer.ResonanceDetector
	store     store.Store
	logger    zerolog.Logger
}

func NewGenerator(cfg Config, res *analyzer.ResonanceDetector, st store.Store, logger zerolog.Logger) *Generator {
	return &Generator{
		cfg:       cfg,
		resonance: res,
		store:     st,
		logger:    logger.With().Str("component", "strategy").Logger(),
	}
}

// Evaluate runs one generation tick over all assets. Signals are returned
// fully populated but not persisted; the caller owns persistence and
// notification ordering.
func (g *Generator) Evaluate(ctx context.Context, now time.Time, feats []Features) ([]*model.Signal, error) {
	// First pass: per-asset candidate decisions, resonance-blind.
	type draft struct {
		sig  *model.Signal
		feat Features
	}
	var drafts []draft
	var candidates []analyzer.Candidate

	for _, f := range feats {
		sig := g.candidate(f, now)
		if sig == nil {
			continue
		}
		drafts = append(drafts, draft{sig: sig, feat: f})
		candidates = append(candidates, analyzer.Candidate{Asset: f.Asset, Type: sig.Type, Time: now})
	}

	// Second pass: cross-asset resonance, then the no-pyramiding guard.
	var out []*model.Signal
	for _, d := range drafts {
		sig := d.sig
		if g.cfg.UseResonance {
			confirmed := g.resonance.Confirm(sig.Type, now, candidates)
			sig.Conditions = append(sig.Conditions, model.Condition{
				Name:  "resonance",
				Value: agreementValue(candidates, sig.Type),
				Pass:  confirmed,
			})
			if !confirmed {
				g.logger.Debug().Str("asset", sig.Asset).Msg("resonance quorum not met, dropping candidate")
				continue
			}
			sig.Strength = sig.Strength.Upgrade()
		}

		if sig.Type == model.SignalBuy {
			open, err := g.store.HasOpenSignal(ctx, sig.Asset)
			if err != nil {
				return nil, err
			}
			if open {
				g.logger.Info().Str("asset", sig.Asset).Msg("open position exists, skipping buy signal")
				continue
			}
		}
		out = append(out, sig)
	}
	return out, nil
}

// candidate evaluates the active mode's conditions for one asset. A nil
// return means no signal this tick.
func (g *Generator) candidate(f Features, now time.Time) *model.Signal {
	if f.Price <= 0 {
		return nil
	}

	var (
		sigType    model.SignalType
		strength   model.Strength
		conditions []model.Condition
		ok         bool
	)
	switch g.cfg.Mode {
	case model.ModeTrend:
		sigType = model.SignalBuy
		conditions, strength, ok = g.trendBuyConditions(f)
	case model.ModeFearBuy:
		sigType, conditions, strength, ok = g.fearGreedConditions(f)
	default:
		return nil
	}
	if !ok {
		return nil
	}

	return &model.Signal{
		ID:         uuid.NewString(),
		Time:       now,
		Asset:      f.Asset,
		Type:       sigType,
		Strength:   strength,
		Mode:       g.cfg.Mode,
		EntryPrice: f.Price,
		FearGreed:  f.FearGreed,
		Conditions: conditions,
	}
}

// agreementValue summarizes the in-window directional split for the audit trail.
func agreementValue(candidates []analyzer.Candidate, dir model.SignalType) string {
	agree := 0
	for _, c := range candidates {
		if c.Type == dir {
			agree++
		}
	}
	return fmt.Sprintf("%d/%d", agree, len(candidates))
}
