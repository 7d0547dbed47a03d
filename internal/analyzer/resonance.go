package analyzer

import (
	"time"

	"cryptosentry/internal/model"
)

// Candidate is one asset's provisional signal direction for the current tick.
type Candidate struct {
	Asset string
	Type  model.SignalType
	Time  time.Time
}

// ResonanceDetector checks whether a quorum of tracked assets agree on the
// same signal direction within a time window. Below MinAssets observed
// assets it always fails closed — agreement among too few assets is noise,
// never confirmation.
type ResonanceDetector struct {
	QuorumFraction float64
	Window         time.Duration
	MinAssets      int
}

func NewResonanceDetector(quorum float64, window time.Duration, minAssets int) *ResonanceDetector {
	return &ResonanceDetector{QuorumFraction: quorum, Window: window, MinAssets: minAssets}
}

// Confirm reports whether the fraction of in-window assets sharing dir
// meets the quorum. The asset under evaluation counts toward its own quorum.
func (d *ResonanceDetector) Confirm(dir model.SignalType, now time.Time, candidates []Candidate) bool {
	observed := make(map[string]model.SignalType)
	for _, c := range candidates {
		if now.Sub(c.Time) > d.Window || c.Time.After(now) {
			continue
		}
		observed[c.Asset] = c.Type
	}
	if len(observed) < d.MinAssets {
		return false
	}
	agree := 0
	for _, t := range observed {
		if t == dir {
			agree++
		}
	}
	return float64(agree)/float64(len(observed)) >= d.QuorumFraction
}
