// Package indicator provides the pure technical-indicator functions used by
// the signal generator. All functions take a chronologically ascending slice
// of closing prices and report ok=false when the series is too short to
// define the indicator — an expected outcome, not an error.
package indicator

// RSI computes the Relative Strength Index over the trailing period deltas.
// Average gain and loss are simple averages of the last period price changes.
// When the average loss is exactly zero the result saturates at 100.
// Requires len(closes) >= period+1.
func RSI(closes []float64, period int) (float64, bool) {
	if period < 1 || len(closes) < period+1 {
		return 0, false
	}

	var gainSum, lossSum float64
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}
