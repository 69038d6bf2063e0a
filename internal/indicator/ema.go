package indicator

// EMA computes the Exponential Moving Average over the full supplied series.
// The seed is the simple average of the first period closes; the remaining
// closes are folded in chronological order with k = 2/(period+1).
//
// The result depends on the entire history, not just the trailing window:
// callers must supply a series long enough for the seed to have converged.
// Requires len(closes) >= period.
func EMA(closes []float64, period int) (float64, bool) {
	if period < 1 || len(closes) < period {
		return 0, false
	}

	var sum float64
	for _, c := range closes[:period] {
		sum += c
	}
	ema := sum / float64(period)

	k := 2 / float64(period+1)
	for _, price := range closes[period:] {
		ema = price*k + ema*(1-k)
	}
	return ema, true
}
