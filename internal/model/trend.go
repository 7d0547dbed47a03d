package model

// Direction classifies the current moving-average trend.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// TrendState is derived per asset on every tick, never stored.
type TrendState struct {
	Asset        string
	ShortMA      float64
	LongMA       float64
	Direction    Direction
	CrossoverAge int     // samples since the short MA last crossed the long MA
	ChangePct    float64 // percent change over the trailing change window
	Sufficient   bool    // false when fewer than the long window samples exist
}

// ReversalDirection tells which way the fear-greed series turned.
type ReversalDirection string

const (
	ReversalRising  ReversalDirection = "rising"
	ReversalFalling ReversalDirection = "falling"
)

// Reversal is the output of the turning-point detector.
type Reversal struct {
	Confirmed bool
	Direction ReversalDirection
	Age       int // samples since the extremum
}
