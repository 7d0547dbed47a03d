package stats

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"cryptosentry/internal/model"
	"cryptosentry/internal/store"
)

// Config controls aggregation and the overfitting diagnostics.
type Config struct {
	PrimaryHorizon int
	HorizonsDays   []int
	// WinRateCeiling flags win rates strictly above this fraction.
	WinRateCeiling float64
	// SampleFloor flags result sets with fewer resolved signals than this.
	SampleFloor int
	// EnabledConditions is the count of active strategy gates, used for the
	// complexity assessment.
	EnabledConditions int
}

// HorizonStats aggregates realized returns at one horizon.
type HorizonStats struct {
	HorizonDays int
	Samples     int
	Wins        int
	WinRate     float64
	AvgReturn   float64
	MinReturn   float64
	MaxReturn   float64
}

// GroupStats aggregates outcomes per (asset, signal type) at the primary
// horizon. Stopped-out buys count as losses even when the primary horizon
// was never filled.
type GroupStats struct {
	Asset     string
	Type      model.SignalType
	Count     int
	Wins      int
	StopLoss  int
	WinRate   float64
	AvgReturn float64
}

// Report is the aggregate view over all resolved signals.
type Report struct {
	Total         int
	StopLossCount int
	Horizons      []HorizonStats
	Groups        []GroupStats
	Warnings      []string
	Complexity    string
}

// Reporter summarizes resolved signals into win-rate and overfitting
// diagnostics.
type Reporter struct {
	cfg    Config
	store  store.Store
	logger zerolog.Logger
}

func New(cfg Config, st store.Store, logger zerolog.Logger) *Reporter {
	return &Reporter{
		cfg:    cfg,
		store:  st,
		logger: logger.With().Str("component", "stats").Logger(),
	}
}

// Build aggregates every resolved signal in the store.
func (r *Reporter) Build(ctx context.Context) (*Report, error) {
	signals, err := r.store.ResolvedSignals(ctx)
	if err != nil {
		return nil, err
	}

	rep := &Report{Total: len(signals)}
	for _, days := range r.cfg.HorizonsDays {
		rep.Horizons = append(rep.Horizons, r.horizonStats(signals, days))
	}
	rep.Groups = r.groupStats(signals)
	for _, sig := range signals {
		if sig.StopLossTriggered != nil && *sig.StopLossTriggered {
			rep.StopLossCount++
		}
	}
	rep.Warnings = r.warnings(signals)
	rep.Complexity = r.complexity()
	return rep, nil
}

func (r *Reporter) horizonStats(signals []*model.Signal, days int) HorizonStats {
	hs := HorizonStats{
		HorizonDays: days,
		MinReturn:   math.Inf(1),
		MaxReturn:   math.Inf(-1),
	}
	var sum float64
	for _, sig := range signals {
		hr := sig.Return(days)
		if hr == nil {
			continue
		}
		hs.Samples++
		sum += hr.Return
		if isWin(sig.Type, hr.Return) {
			hs.Wins++
		}
		hs.MinReturn = math.Min(hs.MinReturn, hr.Return)
		hs.MaxReturn = math.Max(hs.MaxReturn, hr.Return)
	}
	if hs.Samples == 0 {
		hs.MinReturn, hs.MaxReturn = 0, 0
		return hs
	}
	hs.WinRate = float64(hs.Wins) / float64(hs.Samples)
	hs.AvgReturn = sum / float64(hs.Samples)
	return hs
}

func (r *Reporter) groupStats(signals []*model.Signal) []GroupStats {
	type key struct {
		asset string
		typ   model.SignalType
	}
	groups := make(map[key]*GroupStats)
	sums := make(map[key]float64)
	filled := make(map[key]int)

	for _, sig := range signals {
		k := key{asset: sig.Asset, typ: sig.Type}
		g := groups[k]
		if g == nil {
			g = &GroupStats{Asset: sig.Asset, Type: sig.Type}
			groups[k] = g
		}
		g.Count++
		stopped := sig.StopLossTriggered != nil && *sig.StopLossTriggered
		if stopped {
			g.StopLoss++
		}
		if hr := sig.Return(r.cfg.PrimaryHorizon); hr != nil {
			sums[k] += hr.Return
			filled[k]++
			if isWin(sig.Type, hr.Return) {
				g.Wins++
			}
		}
	}

	out := make([]GroupStats, 0, len(groups))
	for k, g := range groups {
		if g.Count > 0 {
			g.WinRate = float64(g.Wins) / float64(g.Count)
		}
		if filled[k] > 0 {
			g.AvgReturn = sums[k] / float64(filled[k])
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Asset != out[j].Asset {
			return out[i].Asset < out[j].Asset
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// warnings emits the overfitting diagnostics: a suspiciously high win rate
// on the primary horizon, and a resolved-sample count below the floor. The
// win-rate check is strict, a rate exactly at the ceiling does not flag.
func (r *Reporter) warnings(signals []*model.Signal) []string {
	var warns []string

	primary := r.horizonStats(signals, r.cfg.PrimaryHorizon)
	if primary.Samples > 0 && primary.WinRate > r.cfg.WinRateCeiling {
		warns = append(warns, "win rate exceeds ceiling, results may be overfit to the observed period")
	}
	if len(signals) < r.cfg.SampleFloor {
		warns = append(warns, "resolved sample count below floor, win rate is not statistically meaningful")
	}
	return warns
}

func (r *Reporter) complexity() string {
	switch {
	case r.cfg.EnabledConditions >= 5:
		return "high: many stacked gates, each extra condition raises curve-fitting risk"
	case r.cfg.EnabledConditions >= 3:
		return "moderate: several gates in the AND, validate each on out-of-sample data"
	default:
		return "low: few gates, behaviour should generalize"
	}
}

// isWin scores a realized return against the signal direction: buys win on
// a positive return, sells win on a negative one.
func isWin(typ model.SignalType, ret float64) bool {
	if typ == model.SignalSell {
		return ret < 0
	}
	return ret > 0
}
