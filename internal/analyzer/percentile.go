package analyzer

// FundingPercentile ranks the current funding rate against its trailing
// history (0-100). Returns false when the history is shorter than
// minSamples — the rank of a thin distribution is meaningless and the
// caller must treat the feature as absent.
func FundingPercentile(history []float64, current float64, minSamples int) (float64, bool) {
	if len(history) < minSamples {
		return 0, false
	}
	lower := 0
	for _, r := range history {
		if r < current {
			lower++
		}
	}
	return float64(lower) / float64(len(history)) * 100, true
}
