package strategy

import (
	"fmt"

	"cryptosentry/internal/model"
)

// trendBuyConditions evaluates the trend-mode buy path: MA trend up,
// fear-greed below the euphoria ceiling, a non-negative momentum gate, and
// (when enabled) a confirmed rising reversal. The sell side of trend mode
// is a pure stop-loss rule handled outside the generator, so this path only
// ever produces buys.
func (g *Generator) trendBuyConditions(f Features) ([]model.Condition, model.Strength, bool) {
	var conds []model.Condition
	pass := true

	trendOK := f.Trend.Sufficient && f.Trend.Direction == model.DirectionUp
	var trendVal string
	if !f.Trend.Sufficient {
		trendVal = "insufficient data"
	} else {
		trendVal = fmt.Sprintf("%s short=%.2f long=%.2f age=%d",
			f.Trend.Direction, f.Trend.ShortMA, f.Trend.LongMA, f.Trend.CrossoverAge)
	}
	conds = append(conds, model.Condition{Name: "trend_up", Value: trendVal, Pass: trendOK})
	pass = pass && trendOK

	fgOK := f.HasFearGreed && f.FearGreed < g.cfg.MaxFGValue
	fgVal := "unavailable"
	if f.HasFearGreed {
		fgVal = fmt.Sprintf("%d < %d", f.FearGreed, g.cfg.MaxFGValue)
	}
	conds = append(conds, model.Condition{Name: "fear_greed_ceiling", Value: fgVal, Pass: fgOK})
	pass = pass && fgOK

	momOK := f.Trend.Sufficient && f.Trend.ChangePct >= g.cfg.MinChangePct
	conds = append(conds, model.Condition{
		Name:  "momentum",
		Value: fmt.Sprintf("%+.1f%% over change window", f.Trend.ChangePct),
		Pass:  momOK,
	})
	pass = pass && momOK

	if g.cfg.UseReversal {
		revOK := f.Reversal.Confirmed && f.Reversal.Direction == model.ReversalRising
		conds = append(conds, model.Condition{
			Name:  "reversal",
			Value: reversalValue(f.Reversal),
			Pass:  revOK,
		})
		pass = pass && revOK
	}

	if !pass {
		return nil, "", false
	}

	strength := model.StrengthWeak
	switch {
	case f.Trend.ChangePct >= 10:
		strength = model.StrengthStrong
	case f.Trend.ChangePct >= 5:
		strength = model.StrengthMedium
	}
	if f.HasFearGreed && f.FearGreed < 50 {
		strength = strength.Upgrade()
	}
	return conds, strength, true
}

// fearGreedConditions evaluates the legacy fear_buy mode. Buys trigger on a
// low absolute fear-greed value with optional funding-percentile and
// long/short gates; sells mirror the high-greed condition and are only
// evaluated when use_sell_signal is on (the sell side has historically
// underperformed, so when disabled only stop-loss exits remain).
func (g *Generator) fearGreedConditions(f Features) (model.SignalType, []model.Condition, model.Strength, bool) {
	if !f.HasFearGreed {
		g.logger.Debug().Str("asset", f.Asset).Msg("fear-greed index unavailable, skipping tick")
		return "", nil, "", false
	}

	switch {
	case f.FearGreed < g.cfg.FearBuy:
		conds, strength, ok := g.fearBuy(f)
		return model.SignalBuy, conds, strength, ok
	case f.FearGreed > g.cfg.GreedSell && g.cfg.UseSellSignal:
		conds, strength, ok := g.greedSell(f)
		return model.SignalSell, conds, strength, ok
	}
	return "", nil, "", false
}

func (g *Generator) fearBuy(f Features) ([]model.Condition, model.Strength, bool) {
	var conds []model.Condition
	pass := true
	strength := model.StrengthWeak

	if g.cfg.UseFearGreed {
		conds = append(conds, model.Condition{
			Name:  "fear_greed",
			Value: fmt.Sprintf("%d < %d", f.FearGreed, g.cfg.FearBuy),
			Pass:  true, // region gate already held to reach here
		})
	}

	if g.cfg.UseReversal {
		revOK := f.Reversal.Confirmed && f.Reversal.Direction == model.ReversalRising
		conds = append(conds, model.Condition{Name: "reversal", Value: reversalValue(f.Reversal), Pass: revOK})
		pass = pass && revOK
		if revOK {
			strength = model.StrengthMedium
		}
	}

	// Funding percentile and long/short are optional inputs: when the
	// history is too thin to rank, the condition leaves the AND instead of
	// failing it.
	if g.cfg.UseFundingPercentile && f.HasFundingPct {
		fundOK := f.FundingPercentile < g.cfg.FundingPanicPercentile
		conds = append(conds, model.Condition{
			Name:  "funding_percentile",
			Value: fmt.Sprintf("%.1f%% < %.1f%%", f.FundingPercentile, g.cfg.FundingPanicPercentile),
			Pass:  fundOK,
		})
		pass = pass && fundOK
		if fundOK {
			strength = model.StrengthStrong
		}
	}

	if g.cfg.UseLongShort && f.HasLongShort {
		lsOK := f.LongShortRatio < g.cfg.LongShortExtreme
		conds = append(conds, model.Condition{
			Name:  "longshort",
			Value: fmt.Sprintf("%.2f < %.2f", f.LongShortRatio, g.cfg.LongShortExtreme),
			Pass:  lsOK,
		})
		pass = pass && lsOK
		if lsOK && strength == model.StrengthStrong {
			strength = model.StrengthExtreme
		}
	}

	if !pass {
		return nil, "", false
	}
	return conds, strength, true
}

func (g *Generator) greedSell(f Features) ([]model.Condition, model.Strength, bool) {
	var conds []model.Condition
	pass := true
	strength := model.StrengthMedium

	if g.cfg.UseFearGreed {
		conds = append(conds, model.Condition{
			Name:  "greed",
			Value: fmt.Sprintf("%d > %d", f.FearGreed, g.cfg.GreedSell),
			Pass:  true,
		})
	}

	if g.cfg.UseReversal {
		revOK := f.Reversal.Confirmed && f.Reversal.Direction == model.ReversalFalling
		conds = append(conds, model.Condition{Name: "reversal", Value: reversalValue(f.Reversal), Pass: revOK})
		pass = pass && revOK
		if revOK {
			strength = model.StrengthStrong
		}
	}

	if g.cfg.UseFundingPercentile && f.HasFundingPct {
		fundOK := f.FundingPercentile > g.cfg.FundingGreedPercentile
		conds = append(conds, model.Condition{
			Name:  "funding_percentile",
			Value: fmt.Sprintf("%.1f%% > %.1f%%", f.FundingPercentile, g.cfg.FundingGreedPercentile),
			Pass:  fundOK,
		})
		pass = pass && fundOK
		if fundOK {
			strength = model.StrengthExtreme
		}
	}

	if !pass {
		return nil, "", false
	}
	return conds, strength, true
}

func reversalValue(r model.Reversal) string {
	if !r.Confirmed {
		return "not confirmed"
	}
	return fmt.Sprintf("%s age=%d", r.Direction, r.Age)
}
