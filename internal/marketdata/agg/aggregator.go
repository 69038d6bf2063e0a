// Package agg builds 1-minute OHLC candles from a concurrent tick stream.
//
// Ingestion is event-driven and the flush is timer-driven, so the two race
// on the live bucket map. The aggregator resolves this with an atomic bucket
// swap: Flush detaches the entire map under one critical section and builds
// candles from the detached copy outside the lock. A tick lands either in
// the window being flushed or in the fresh one — never in both, never lost.
package agg

import (
	"context"
	"log"
	"sync"
	"time"

	"signal-systemv1/internal/model"
)

// Aggregator accumulates ticks per pair for the current minute window.
type Aggregator struct {
	mu      sync.Mutex
	buckets map[string][]float64 // pair → tick prices in arrival order

	// OnFlush is called with the number of candles produced per flush
	// (optional, metrics hook).
	OnFlush func(candles int)
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		buckets: make(map[string][]float64),
	}
}

// Ingest appends a tick to its pair's bucket. Never blocks beyond the
// bucket mutex; safe for concurrent use with Flush.
func (a *Aggregator) Ingest(tick model.Tick) {
	a.mu.Lock()
	a.buckets[tick.Pair] = append(a.buckets[tick.Pair], tick.Price)
	a.mu.Unlock()
}

// Flush swaps in a fresh bucket map and builds one candle per pair that
// received at least one tick in the completed window. Pairs with zero ticks
// produce no candle — a gap, not a zero-volume candle. windowStart stamps
// the candles and must be the minute-aligned start of the completed window.
func (a *Aggregator) Flush(windowStart time.Time) []model.Candle {
	a.mu.Lock()
	detached := a.buckets
	a.buckets = make(map[string][]float64, len(detached))
	a.mu.Unlock()

	candles := make([]model.Candle, 0, len(detached))
	for pair, prices := range detached {
		if len(prices) == 0 {
			continue
		}
		c := model.Candle{
			Pair:  pair,
			TS:    windowStart,
			Open:  prices[0],
			High:  prices[0],
			Low:   prices[0],
			Close: prices[len(prices)-1],
			Ticks: len(prices),
		}
		for _, p := range prices[1:] {
			if p > c.High {
				c.High = p
			}
			if p < c.Low {
				c.Low = p
			}
		}
		candles = append(candles, c)
	}

	if a.OnFlush != nil {
		a.OnFlush(len(candles))
	}
	return candles
}

// Run consumes ticks from tickCh and flushes completed windows to candleCh,
// aligned to wall-clock minute boundaries. Blocks until ctx is cancelled or
// tickCh is closed. If the loop ever falls behind, flushes fire back to back
// until it catches up.
func (a *Aggregator) Run(ctx context.Context, tickCh <-chan model.Tick, candleCh chan<- model.Candle) {
	windowStart := time.Now().UTC().Truncate(time.Minute)
	timer := time.NewTimer(time.Until(windowStart.Add(time.Minute)))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case tick, ok := <-tickCh:
			if !ok {
				return
			}
			a.Ingest(tick)

		case <-timer.C:
			for _, c := range a.Flush(windowStart) {
				emit(candleCh, c)
			}
			windowStart = windowStart.Add(time.Minute)
			timer.Reset(time.Until(windowStart.Add(time.Minute)))
		}
	}
}

// emit sends a candle downstream. Non-blocking to avoid stalling ingestion
// behind a slow store.
func emit(candleCh chan<- model.Candle, c model.Candle) {
	select {
	case candleCh <- c:
	default:
		log.Printf("[agg] candleCh full, dropping candle %s ts=%v", c.Pair, c.TS)
	}
}
