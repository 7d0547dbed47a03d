package notifier

import "context"

// Noop discards notifications. Used when Telegram is disabled.
type Noop struct{}

func (Noop) Notify(ctx context.Context, text string) error { return nil }
