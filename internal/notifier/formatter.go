package notifier

import (
	"fmt"
	"strings"

	"cryptosentry/internal/model"
)

var strengthLabels = map[model.Strength]string{
	model.StrengthWeak:    "⭐",
	model.StrengthMedium:  "⭐⭐",
	model.StrengthStrong:  "⭐⭐⭐",
	model.StrengthExtreme: "⭐⭐⭐⭐",
}

// FormatSignal renders an emitted signal into a Telegram message.
func FormatSignal(sig *model.Signal) string {
	var b strings.Builder

	icon := "🟢 BUY"
	if sig.Type == model.SignalSell {
		icon = "🔴 SELL"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s</b> | %s\n\n", icon, sig.Asset, sig.Time.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Entry price: %.2f\n", sig.EntryPrice))
	b.WriteString(fmt.Sprintf("Strength: %s %s\n", strengthLabels[sig.Strength], sig.Strength))
	b.WriteString(fmt.Sprintf("Mode: %s | Fear&Greed: %d\n\n", sig.Mode, sig.FearGreed))

	b.WriteString("<b>Conditions:</b>\n")
	for _, c := range sig.Conditions {
		mark := "✅"
		if !c.Pass {
			mark = "❌"
		}
		b.WriteString(fmt.Sprintf("  %s %s: %s\n", mark, c.Name, c.Value))
	}
	return b.String()
}

// FormatStopLoss renders a live stop-loss alert for an open position.
func FormatStopLoss(sig *model.Signal, price, stopLossPct float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ <b>STOP LOSS</b> | %s\n\n", sig.Asset))
	b.WriteString(fmt.Sprintf("Entry: %.2f (%s)\n", sig.EntryPrice, sig.Time.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Current: %.2f (%+.1f%%)\n", price, (price/sig.EntryPrice-1)*100))
	b.WriteString(fmt.Sprintf("Threshold: -%.0f%% from entry\n", stopLossPct*100))
	return b.String()
}
