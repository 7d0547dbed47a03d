package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"cryptosentry/internal/model"
)

func priceSeries(vals ...float64) []model.PriceSample {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.PriceSample, len(vals))
	for i, v := range vals {
		out[i] = model.PriceSample{Asset: "BTC", Time: base.Add(time.Duration(i) * time.Hour), Price: v}
	}
	return out
}

func TestTrendAnalyzer_InsufficientData(t *testing.T) {
	a := NewTrendAnalyzer(TrendConfig{ShortWindow: 2, LongWindow: 5, HysteresisPct: 0.5})
	state := a.Analyze("BTC", priceSeries(100, 101, 102))
	assert.False(t, state.Sufficient)
	assert.Equal(t, model.DirectionFlat, state.Direction)
}

func TestTrendAnalyzer_HysteresisCarryOver(t *testing.T) {
	a := NewTrendAnalyzer(TrendConfig{ShortWindow: 2, LongWindow: 3, HysteresisPct: 5})

	// Flat market, no prior direction: stays flat.
	state := a.Analyze("BTC", priceSeries(100, 100, 100))
	assert.True(t, state.Sufficient)
	assert.Equal(t, model.DirectionFlat, state.Direction)

	// Strong rise: short MA clears the band, direction flips up.
	state = a.Analyze("BTC", priceSeries(100, 120, 140))
	assert.Equal(t, model.DirectionUp, state.Direction)

	// Small dip inside the band: prior direction carries over.
	state = a.Analyze("BTC", priceSeries(140, 139, 138))
	assert.Equal(t, model.DirectionUp, state.Direction,
		"direction must not change while the MAs sit inside the hysteresis band")

	// Decisive drop: flips down.
	state = a.Analyze("BTC", priceSeries(140, 120, 100))
	assert.Equal(t, model.DirectionDown, state.Direction)
}

func TestTrendAnalyzer_PerAssetState(t *testing.T) {
	a := NewTrendAnalyzer(TrendConfig{ShortWindow: 2, LongWindow: 3, HysteresisPct: 5})

	a.Analyze("BTC", priceSeries(100, 120, 140))
	// ETH has no prior direction; an in-band reading must not inherit BTC's.
	state := a.Analyze("ETH", priceSeries(100, 100, 100))
	assert.Equal(t, model.DirectionFlat, state.Direction)
}

func TestTrendAnalyzer_ChangePct(t *testing.T) {
	a := NewTrendAnalyzer(TrendConfig{ShortWindow: 2, LongWindow: 3, HysteresisPct: 0.5, ChangeWindow: 2})
	state := a.Analyze("BTC", priceSeries(100, 105, 110))
	assert.InDelta(t, 10.0, state.ChangePct, 1e-9)
}
