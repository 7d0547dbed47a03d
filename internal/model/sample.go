package model

import "time"

// PriceSample is a single spot price observation for one asset.
// Samples are immutable once stored and ordered by time per asset.
type PriceSample struct {
	Asset string
	Time  time.Time
	Price float64
}

// FundingSample is a periodic funding rate observation (percent).
type FundingSample struct {
	Asset string
	Time  time.Time
	Rate  float64
}

// FearGreedSample is one reading of the global fear-greed index (0-100).
// The series is global, not per-asset.
type FearGreedSample struct {
	Time  time.Time
	Value int
}

// LongShortSample is a long/short account ratio observation.
// Optional input: absence never blocks signal generation.
type LongShortSample struct {
	Asset string
	Time  time.Time
	Ratio float64
}
