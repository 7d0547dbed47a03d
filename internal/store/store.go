package store

import (
	"context"
	"time"

	"cryptosentry/internal/model"
)

// Store persists raw indicator samples and emitted signals.
//
// Sample tables are append-only: a duplicate (asset, timestamp) append is
// ignored. Signals are inserted once and afterwards mutated only through the
// fill operations, each of which is idempotent.
type Store interface {
	AppendPrice(ctx context.Context, s model.PriceSample) error
	AppendFunding(ctx context.Context, s model.FundingSample) error
	AppendFearGreed(ctx context.Context, s model.FearGreedSample) error
	AppendLongShort(ctx context.Context, s model.LongShortSample) error

	// PriceAt returns the nearest sample at or before t (the entry-price
	// policy), nil when no sample exists yet.
	PriceAt(ctx context.Context, asset string, t time.Time) (*model.PriceSample, error)
	// PriceAtOrAfter returns the nearest sample at or after t, nil when the
	// series has not reached t.
	PriceAtOrAfter(ctx context.Context, asset string, t time.Time) (*model.PriceSample, error)
	// PricesFrom returns all samples at or after t in ascending order.
	PricesFrom(ctx context.Context, asset string, t time.Time) ([]model.PriceSample, error)
	// RecentPrices returns the trailing n samples in ascending order.
	RecentPrices(ctx context.Context, asset string, n int) ([]model.PriceSample, error)
	// RecentFearGreed returns the trailing n index readings in ascending order.
	RecentFearGreed(ctx context.Context, n int) ([]model.FearGreedSample, error)
	// FundingSince returns funding rates observed at or after t in ascending order.
	FundingSince(ctx context.Context, asset string, t time.Time) ([]float64, error)

	InsertSignal(ctx context.Context, sig *model.Signal) error
	// HasOpenSignal reports whether the asset has an unresolved buy signal.
	HasOpenSignal(ctx context.Context, asset string) (bool, error)
	// UnresolvedSignals returns signals not yet fully backtested, oldest first.
	UnresolvedSignals(ctx context.Context, olderThan time.Time) ([]*model.Signal, error)
	// ResolvedSignals returns fully backtested signals, oldest first.
	ResolvedSignals(ctx context.Context) ([]*model.Signal, error)
	// FillHorizon records the realized return at one horizon. Returns false
	// without touching the row when that horizon was already filled.
	FillHorizon(ctx context.Context, signalID string, horizonDays int, hr model.HorizonReturn) (bool, error)
	// FinalizeSignal sets max_drawdown and stop_loss_triggered and marks the
	// signal resolved. Already-set fields are kept, making retries no-ops.
	FinalizeSignal(ctx context.Context, signalID string, maxDrawdown float64, stopLossTriggered bool) error

	Close() error
}
