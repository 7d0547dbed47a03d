package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosentry/internal/analyzer"
	"cryptosentry/internal/model"
	"cryptosentry/internal/store"
)

var tick = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newGenerator(t *testing.T, cfg Config) (*Generator, *store.SQLite) {
	t.Helper()
	st, err := store.NewSQLite(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	res := analyzer.NewResonanceDetector(0.5, 30*time.Minute, 2)
	return NewGenerator(cfg, res, st, zerolog.Nop()), st
}

func trendCfg() Config {
	return Config{
		Mode:         model.ModeTrend,
		UseFearGreed: true,
		MaxFGValue:   70,
	}
}

func upFeatures(asset string, fg int) Features {
	return Features{
		Asset:        asset,
		Price:        50000,
		FearGreed:    fg,
		HasFearGreed: true,
		Trend: model.TrendState{
			Asset:      asset,
			ShortMA:    51000,
			LongMA:     49000,
			Direction:  model.DirectionUp,
			ChangePct:  3.0,
			Sufficient: true,
		},
	}
}

func TestTrendMode_EmitsBelowFGCeiling(t *testing.T) {
	g, _ := newGenerator(t, trendCfg())

	signals, err := g.Evaluate(context.Background(), tick, []Features{upFeatures("BTC", 65)})
	require.NoError(t, err)
	require.Len(t, signals, 1)

	sig := signals[0]
	assert.Equal(t, model.SignalBuy, sig.Type)
	assert.Equal(t, "BTC", sig.Asset)
	assert.Equal(t, 50000.0, sig.EntryPrice)
	assert.Equal(t, model.ModeTrend, sig.Mode)
	assert.NotEmpty(t, sig.ID)
	assert.NotEmpty(t, sig.Conditions)
}

func TestTrendMode_NoSignalAboveFGCeiling(t *testing.T) {
	g, _ := newGenerator(t, trendCfg())

	signals, err := g.Evaluate(context.Background(), tick, []Features{upFeatures("BTC", 75)})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestTrendMode_NoSignalWithoutTrend(t *testing.T) {
	g, _ := newGenerator(t, trendCfg())

	f := upFeatures("BTC", 40)
	f.Trend.Direction = model.DirectionDown
	signals, err := g.Evaluate(context.Background(), tick, []Features{f})
	require.NoError(t, err)
	assert.Empty(t, signals)

	f = upFeatures("BTC", 40)
	f.Trend.Sufficient = false
	signals, err = g.Evaluate(context.Background(), tick, []Features{f})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestDisabledConditionIsExcludedNotForcedTrue(t *testing.T) {
	// use_reversal off, reversal unconfirmed: the signal must still fire
	// because the condition leaves the AND entirely.
	cfg := trendCfg()
	cfg.UseReversal = false
	g, _ := newGenerator(t, cfg)

	f := upFeatures("BTC", 40)
	f.Reversal = model.Reversal{}
	signals, err := g.Evaluate(context.Background(), tick, []Features{f})
	require.NoError(t, err)
	require.Len(t, signals, 1)
	for _, c := range signals[0].Conditions {
		assert.NotEqual(t, "reversal", c.Name, "a disabled condition must not be recorded")
	}

	// Same features with the condition enabled: now it gates.
	cfg.UseReversal = true
	g, _ = newGenerator(t, cfg)
	signals, err = g.Evaluate(context.Background(), tick, []Features{f})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestNoPyramiding(t *testing.T) {
	g, st := newGenerator(t, trendCfg())
	ctx := context.Background()

	signals, err := g.Evaluate(ctx, tick, []Features{upFeatures("BTC", 40)})
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.NoError(t, st.InsertSignal(ctx, signals[0]))

	// While the buy stays unresolved, no second buy for the asset.
	signals, err = g.Evaluate(ctx, tick.Add(time.Hour), []Features{upFeatures("BTC", 40)})
	require.NoError(t, err)
	assert.Empty(t, signals)

	// Resolving the position reopens the asset.
	require.NoError(t, st.FinalizeSignal(ctx, signals0ID(t, st), 0.01, false))
	signals, err = g.Evaluate(ctx, tick.Add(2*time.Hour), []Features{upFeatures("BTC", 40)})
	require.NoError(t, err)
	assert.Len(t, signals, 1)
}

func signals0ID(t *testing.T, st *store.SQLite) string {
	t.Helper()
	open, err := st.UnresolvedSignals(context.Background(), time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, open)
	return open[0].ID
}

func TestResonanceGatesAndUpgrades(t *testing.T) {
	cfg := trendCfg()
	cfg.UseResonance = true
	g, _ := newGenerator(t, cfg)
	ctx := context.Background()

	// Single asset: resonance fails closed, candidate dropped.
	signals, err := g.Evaluate(ctx, tick, []Features{upFeatures("BTC", 40)})
	require.NoError(t, err)
	assert.Empty(t, signals)

	// Two agreeing assets: both confirm and the strength is upgraded.
	signals, err = g.Evaluate(ctx, tick, []Features{upFeatures("BTC", 40), upFeatures("ETH", 40)})
	require.NoError(t, err)
	require.Len(t, signals, 2)
	for _, sig := range signals {
		found := false
		for _, c := range sig.Conditions {
			if c.Name == "resonance" {
				found = true
				assert.True(t, c.Pass)
				assert.Equal(t, "2/2", c.Value)
			}
		}
		assert.True(t, found, "resonance must be recorded on the emitted signal")
	}
}

func TestFearBuyMode(t *testing.T) {
	cfg := Config{
		Mode:          model.ModeFearBuy,
		UseFearGreed:  true,
		UseReversal:   true,
		UseSellSignal: false,
		FearBuy:       25,
		GreedSell:     75,
	}
	g, _ := newGenerator(t, cfg)
	ctx := context.Background()

	f := Features{
		Asset:        "BTC",
		Price:        30000,
		FearGreed:    18,
		HasFearGreed: true,
		Reversal:     model.Reversal{Confirmed: true, Direction: model.ReversalRising, Age: 2},
	}
	signals, err := g.Evaluate(ctx, tick, []Features{f})
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalBuy, signals[0].Type)
	assert.Equal(t, model.StrengthMedium, signals[0].Strength)

	// Neutral fear-greed: no signal either way.
	f.FearGreed = 50
	signals, err = g.Evaluate(ctx, tick, []Features{f})
	require.NoError(t, err)
	assert.Empty(t, signals)

	// High greed with the sell signal disabled: no sell is evaluated.
	f.FearGreed = 90
	f.Reversal = model.Reversal{Confirmed: true, Direction: model.ReversalFalling, Age: 2}
	signals, err = g.Evaluate(ctx, tick, []Features{f})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestFearBuyMode_SellWhenEnabled(t *testing.T) {
	cfg := Config{
		Mode:          model.ModeFearBuy,
		UseFearGreed:  true,
		UseReversal:   true,
		UseSellSignal: true,
		FearBuy:       25,
		GreedSell:     75,
	}
	g, _ := newGenerator(t, cfg)

	f := Features{
		Asset:        "BTC",
		Price:        70000,
		FearGreed:    90,
		HasFearGreed: true,
		Reversal:     model.Reversal{Confirmed: true, Direction: model.ReversalFalling, Age: 1},
	}
	signals, err := g.Evaluate(context.Background(), tick, []Features{f})
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalSell, signals[0].Type)
}

func TestAbsentOptionalFeatureLeavesTheAND(t *testing.T) {
	cfg := Config{
		Mode:                   model.ModeFearBuy,
		UseFearGreed:           true,
		UseFundingPercentile:   true,
		FearBuy:                25,
		GreedSell:              75,
		FundingPanicPercentile: 15,
	}
	g, _ := newGenerator(t, cfg)

	// Funding percentile enabled but unavailable: the condition is
	// excluded, not failed.
	f := Features{Asset: "BTC", Price: 30000, FearGreed: 10, HasFearGreed: true, HasFundingPct: false}
	signals, err := g.Evaluate(context.Background(), tick, []Features{f})
	require.NoError(t, err)
	require.Len(t, signals, 1)

	// Available but above the panic percentile: now it gates.
	f.HasFundingPct = true
	f.FundingPercentile = 60
	signals, err = g.Evaluate(context.Background(), tick, []Features{f})
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestZeroPriceNeverEmits(t *testing.T) {
	g, _ := newGenerator(t, trendCfg())
	f := upFeatures("BTC", 40)
	f.Price = 0
	signals, err := g.Evaluate(context.Background(), tick, []Features{f})
	require.NoError(t, err)
	assert.Empty(t, signals)
}
