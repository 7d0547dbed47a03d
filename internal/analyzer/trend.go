package analyzer

import (
	"cryptosentry/internal/model"
)

// TrendConfig sizes the moving-average windows in sample counts (not
// calendar days — irregular sampling intervals are tolerated).
type TrendConfig struct {
	ShortWindow   int
	LongWindow    int
	HysteresisPct float64 // percent of the long MA the short MA must clear
	ChangeWindow  int     // samples for the trailing percent-change gate
}

// TrendAnalyzer classifies the moving-average trend state per asset. It
// keeps the previous direction per asset so the state carries over while
// the MAs sit inside the hysteresis band.
type TrendAnalyzer struct {
	cfg  TrendConfig
	prev map[string]model.Direction
}

func NewTrendAnalyzer(cfg TrendConfig) *TrendAnalyzer {
	return &TrendAnalyzer{cfg: cfg, prev: make(map[string]model.Direction)}
}

// Analyze computes the trend state from the asset's trailing price samples,
// oldest first. With fewer than LongWindow samples the state reports
// Sufficient=false; that is a legitimate "no decision" outcome, not an error.
func (a *TrendAnalyzer) Analyze(asset string, samples []model.PriceSample) model.TrendState {
	state := model.TrendState{Asset: asset, Direction: model.DirectionFlat}
	if len(samples) < a.cfg.LongWindow {
		return state
	}
	state.Sufficient = true

	prices := make([]float64, len(samples))
	for i, s := range samples {
		prices[i] = s.Price
	}

	state.ShortMA = sma(prices, a.cfg.ShortWindow)
	state.LongMA = sma(prices, a.cfg.LongWindow)
	state.Direction = a.classify(asset, state.ShortMA, state.LongMA)
	state.CrossoverAge = crossoverAge(prices, a.cfg.ShortWindow, a.cfg.LongWindow)
	if n := a.cfg.ChangeWindow; n > 0 && len(prices) > n {
		base := prices[len(prices)-1-n]
		if base > 0 {
			state.ChangePct = (prices[len(prices)-1] - base) / base * 100
		}
	}

	a.prev[asset] = state.Direction
	return state
}

// classify applies the hysteresis band: the direction only flips when the
// short MA clears the long MA by more than HysteresisPct of the long MA.
// Inside the band the previous direction carries over.
func (a *TrendAnalyzer) classify(asset string, short, long float64) model.Direction {
	margin := long * a.cfg.HysteresisPct / 100
	diff := short - long
	switch {
	case diff > margin:
		return model.DirectionUp
	case diff < -margin:
		return model.DirectionDown
	}
	if prev, ok := a.prev[asset]; ok {
		return prev
	}
	return model.DirectionFlat
}

// sma computes the simple moving average of the trailing window.
func sma(prices []float64, window int) float64 {
	if window <= 0 || len(prices) < window {
		return 0
	}
	sum := 0.0
	for i := len(prices) - window; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(window)
}

// crossoverAge counts how many trailing samples the short-vs-long MA sign
// has held, up to the point where the series no longer covers both windows.
func crossoverAge(prices []float64, shortW, longW int) int {
	current := smaSign(prices, shortW, longW)
	age := 0
	for i := len(prices) - 1; i >= longW; i-- {
		if smaSign(prices[:i], shortW, longW) != current {
			break
		}
		age++
	}
	return age
}

func smaSign(prices []float64, shortW, longW int) int {
	diff := sma(prices, shortW) - sma(prices, longW)
	switch {
	case diff > 0:
		return 1
	case diff < 0:
		return -1
	}
	return 0
}
