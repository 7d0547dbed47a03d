package analyzer

import "cryptosentry/internal/model"

// ReversalDetector finds confirmed turning points in the fear-greed series.
//
// A rising reversal is a window minimum followed by a strictly rising tail;
// a falling reversal is a window maximum followed by a strictly falling
// tail. Confirmation lags the extremum by at least one sample: the tick on
// which the extremum itself prints never confirms, trading detection latency
// for fewer false positives.
type ReversalDetector struct {
	lookback int
}

func NewReversalDetector(lookback int) *ReversalDetector {
	return &ReversalDetector{lookback: lookback}
}

// Detect evaluates the trailing lookback samples, oldest first. With fewer
// than three samples in the window no reversal is ever confirmed.
func (d *ReversalDetector) Detect(samples []model.FearGreedSample) model.Reversal {
	window := samples
	if len(window) > d.lookback {
		window = window[len(window)-d.lookback:]
	}
	if len(window) < 3 {
		return model.Reversal{}
	}

	values := make([]int, len(window))
	for i, s := range window {
		values[i] = s.Value
	}

	if rev, ok := confirmFrom(values, extremumIndex(values, true), model.ReversalRising); ok {
		return rev
	}
	if rev, ok := confirmFrom(values, extremumIndex(values, false), model.ReversalFalling); ok {
		return rev
	}
	return model.Reversal{}
}

// confirmFrom checks that every step from the extremum to the current value
// moves away from it. An extremum at the current sample (age 0) is never
// confirmed.
func confirmFrom(values []int, extIdx int, dir model.ReversalDirection) (model.Reversal, bool) {
	age := len(values) - 1 - extIdx
	if age < 1 {
		return model.Reversal{}, false
	}
	for i := extIdx + 1; i < len(values); i++ {
		if dir == model.ReversalRising && values[i] <= values[i-1] {
			return model.Reversal{}, false
		}
		if dir == model.ReversalFalling && values[i] >= values[i-1] {
			return model.Reversal{}, false
		}
	}
	return model.Reversal{Confirmed: true, Direction: dir, Age: age}, true
}

// extremumIndex returns the index of the window minimum (or maximum). Ties
// resolve to the latest occurrence so the age reflects the most recent
// touch of the extremum.
func extremumIndex(values []int, min bool) int {
	idx := 0
	for i, v := range values {
		if min && v <= values[idx] || !min && v >= values[idx] {
			idx = i
		}
	}
	return idx
}
