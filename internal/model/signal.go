package model

import "time"

// SignalType indicates the advised direction.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

// StrategyMode selects which condition set the generator evaluates.
type StrategyMode string

const (
	ModeTrend   StrategyMode = "trend"
	ModeFearBuy StrategyMode = "fear_buy"
)

// Strength grades a signal. Resonance across assets upgrades it one step.
type Strength string

const (
	StrengthWeak    Strength = "weak"
	StrengthMedium  Strength = "medium"
	StrengthStrong  Strength = "strong"
	StrengthExtreme Strength = "extreme"
)

// Upgrade returns the next strength level, capped at extreme.
func (s Strength) Upgrade() Strength {
	switch s {
	case StrengthWeak:
		return StrengthMedium
	case StrengthMedium:
		return StrengthStrong
	case StrengthStrong:
		return StrengthExtreme
	}
	return s
}

// Condition is one named check the generator evaluated when emitting a
// signal. The ordered set is persisted with the signal for auditability.
type Condition struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Pass  bool   `json:"pass"`
}

// HorizonReturn is the realized outcome at one backtest horizon.
type HorizonReturn struct {
	Price  float64 // nearest sample at or after the horizon
	Return float64 // (price / entry) - 1, sign-adjusted for sells
}

// Signal is the engine's output. Created once by the generator; the
// backtester later fills Returns, MaxDrawdown and StopLossTriggered exactly
// once each. Never deleted.
type Signal struct {
	ID         string
	Time       time.Time
	Asset      string
	Type       SignalType
	Strength   Strength
	Mode       StrategyMode
	EntryPrice float64
	FearGreed  int
	Conditions []Condition

	// Backtest fields, nil until resolved.
	Returns           map[int]*HorizonReturn // horizon in days
	MaxDrawdown       *float64
	StopLossTriggered *bool
	Resolved          bool
}

// Return looks up the realized return at a horizon, nil when unresolved.
func (s *Signal) Return(horizonDays int) *HorizonReturn {
	if s.Returns == nil {
		return nil
	}
	return s.Returns[horizonDays]
}

// Open reports whether the signal still represents an unresolved buy
// position. The generator refuses to pyramid onto an open position.
func (s *Signal) Open() bool {
	return s.Type == SignalBuy && !s.Resolved
}
