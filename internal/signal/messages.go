package signal

import (
	"fmt"

	"signal-systemv1/internal/model"
)

// Message rendering mirrors what subscribers already expect in the chat:
// entry card on open/escalation, short threaded replies on results.

func entryMessage(s *model.OpenSignal, expirationMinutes int) string {
	emoji := "🟢"
	if s.Direction == model.DirectionPut {
		emoji = "🔴"
	}
	return fmt.Sprintf(
		"%s %s - %s\n⏰ %s | ⏳ %dmin\n⚡ STRENGTH %s\n📊 RSI: %.1f | 💰 $%.5f\n🎲 ENTRY: Gale %d",
		emoji, s.Pair, s.Direction,
		s.OpenedAt.Format("15:04:05"), expirationMinutes,
		s.Strength, s.RSIAtEntry, s.EntryPrice, s.GaleLevel,
	)
}

func winMessage(s *model.OpenSignal, current float64) string {
	return fmt.Sprintf("🟢 GAIN at Gale %d - %s (%.5f)", s.GaleLevel, s.Pair, current)
}

func lossEscalationMessage(s *model.OpenSignal, current float64) string {
	return fmt.Sprintf("🔴 LOSS at Gale %d - %s (%.5f)\n⏭️ Moving to Gale %d!",
		s.GaleLevel, s.Pair, current, s.GaleLevel+1)
}

func finalLossMessage(s *model.OpenSignal, current float64) string {
	return fmt.Sprintf("🔴 FINAL LOSS at Gale %d - %s (%.5f)\n⛔ Max gale level reached.",
		s.GaleLevel, s.Pair, current)
}
