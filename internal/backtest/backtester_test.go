package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptosentry/internal/model"
	"cryptosentry/internal/store"
)

var entry = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestBacktester(t *testing.T, cfg Config) (*Backtester, *store.SQLite) {
	t.Helper()
	st, err := store.NewSQLite(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(cfg, st, zerolog.Nop()), st
}

func seedSignal(t *testing.T, st *store.SQLite, id string, entryPrice float64) {
	t.Helper()
	require.NoError(t, st.InsertSignal(context.Background(), &model.Signal{
		ID:         id,
		Time:       entry,
		Asset:      "BTC",
		Type:       model.SignalBuy,
		Strength:   model.StrengthMedium,
		Mode:       model.ModeTrend,
		EntryPrice: entryPrice,
		FearGreed:  40,
		Conditions: []model.Condition{},
	}))
}

func seedPrices(t *testing.T, st *store.SQLite, dayPrices map[int]float64) {
	t.Helper()
	for day, price := range dayPrices {
		require.NoError(t, st.AppendPrice(context.Background(), model.PriceSample{
			Asset: "BTC",
			Time:  entry.Add(time.Duration(day) * 24 * time.Hour),
			Price: price,
		}))
	}
}

func TestStopLossHaltsLaterHorizons(t *testing.T) {
	bt, st := newTestBacktester(t, Config{HorizonsDays: []int{7}, StopLossPct: 0.15})
	ctx := context.Background()

	seedSignal(t, st, "sig-1", 100)
	// Price touches the stop level (85) on day 4, before the 7d horizon.
	seedPrices(t, st, map[int]float64{0: 100, 1: 98, 2: 95, 3: 90, 4: 84, 7: 120})

	require.NoError(t, bt.Run(ctx, entry.Add(8*24*time.Hour)))

	resolved, err := st.ResolvedSignals(ctx)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	sig := resolved[0]

	require.NotNil(t, sig.StopLossTriggered)
	assert.True(t, *sig.StopLossTriggered)
	assert.Nil(t, sig.Return(7), "post-stop-out prices must not produce a horizon return")
	require.NotNil(t, sig.MaxDrawdown)
	assert.InDelta(t, 0.16, *sig.MaxDrawdown, 1e-9)
}

func TestHorizonsFillIncrementally(t *testing.T) {
	bt, st := newTestBacktester(t, Config{HorizonsDays: []int{7, 14}, StopLossPct: 0.15})
	ctx := context.Background()

	seedSignal(t, st, "sig-1", 100)
	seedPrices(t, st, map[int]float64{0: 100, 3: 102, 7: 110, 10: 108, 14: 120})

	// Day 8: only the 7d horizon has elapsed; signal stays unresolved.
	require.NoError(t, bt.Run(ctx, entry.Add(8*24*time.Hour)))
	open, err := st.UnresolvedSignals(ctx, entry.Add(30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, open, 1)
	hr := open[0].Return(7)
	require.NotNil(t, hr)
	assert.InDelta(t, 0.10, hr.Return, 1e-9)
	assert.Nil(t, open[0].Return(14))

	// Day 15: the last horizon fills and the signal resolves.
	require.NoError(t, bt.Run(ctx, entry.Add(15*24*time.Hour)))
	resolved, err := st.ResolvedSignals(ctx)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	sig := resolved[0]
	require.NotNil(t, sig.Return(14))
	assert.InDelta(t, 0.20, sig.Return(14).Return, 1e-9)
	require.NotNil(t, sig.StopLossTriggered)
	assert.False(t, *sig.StopLossTriggered)
	require.NotNil(t, sig.MaxDrawdown)
	// Largest peak-to-trough along the path: 110 down to 108.
	assert.InDelta(t, 2.0/110.0, *sig.MaxDrawdown, 1e-9)
}

func TestBacktestIdempotent(t *testing.T) {
	bt, st := newTestBacktester(t, Config{HorizonsDays: []int{7}, StopLossPct: 0.15})
	ctx := context.Background()

	seedSignal(t, st, "sig-1", 100)
	seedPrices(t, st, map[int]float64{0: 100, 7: 111})

	now := entry.Add(8 * 24 * time.Hour)
	require.NoError(t, bt.Run(ctx, now))

	first, err := st.ResolvedSignals(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Re-running over identical data must not change anything.
	require.NoError(t, bt.Run(ctx, now))
	second, err := st.ResolvedSignals(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Return(7).Return, second[0].Return(7).Return)
	assert.Equal(t, *first[0].MaxDrawdown, *second[0].MaxDrawdown)
	assert.Equal(t, *first[0].StopLossTriggered, *second[0].StopLossTriggered)
}

func TestInsufficientForwardDataLeavesUnresolved(t *testing.T) {
	bt, st := newTestBacktester(t, Config{HorizonsDays: []int{7}, StopLossPct: 0.15})
	ctx := context.Background()

	seedSignal(t, st, "sig-1", 100)
	seedPrices(t, st, map[int]float64{0: 100, 2: 101})

	// The horizon has not elapsed yet.
	require.NoError(t, bt.Run(ctx, entry.Add(3*24*time.Hour)))
	resolved, err := st.ResolvedSignals(ctx)
	require.NoError(t, err)
	assert.Empty(t, resolved)

	// Wall clock has passed the horizon but no sample exists there yet.
	require.NoError(t, bt.Run(ctx, entry.Add(8*24*time.Hour)))
	resolved, err = st.ResolvedSignals(ctx)
	require.NoError(t, err)
	assert.Empty(t, resolved, "a missing forward sample is not a failure, the signal waits")
}
