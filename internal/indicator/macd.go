package indicator

// MACD fast/slow periods are fixed at the conventional 12/26.
const (
	macdFastPeriod = 12
	macdSlowPeriod = 26

	// MACDMinHistory is the minimum series length for a defined MACD line.
	MACDMinHistory = 35
)

// MACDLine computes EMA(closes,12) - EMA(closes,26). The signal line and
// histogram are intentionally not computed — only the MACD line is used
// downstream. Requires len(closes) >= MACDMinHistory.
func MACDLine(closes []float64) (float64, bool) {
	if len(closes) < MACDMinHistory {
		return 0, false
	}
	fast, ok := EMA(closes, macdFastPeriod)
	if !ok {
		return 0, false
	}
	slow, ok := EMA(closes, macdSlowPeriod)
	if !ok {
		return 0, false
	}
	return fast - slow, true
}
