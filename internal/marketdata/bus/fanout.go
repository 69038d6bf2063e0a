// Package bus fans finalized candles out to the store writers.
package bus

import (
	"context"
	"log"
	"sync"

	"signal-systemv1/internal/model"
)

// FanOut broadcasts candles from a single input channel to every subscriber.
// A full subscriber channel drops the candle for that consumer only, so a
// slow store writer cannot stall the pipeline.
type FanOut struct {
	mu      sync.RWMutex
	outputs []chan model.Candle
	bufSize int

	// OnDrop is called with the 0-based index of the slow subscriber when a
	// candle is dropped for it (optional, metrics hook).
	OnDrop func(subscriberIdx int)
}

// New creates a FanOut whose subscriber channels have the given buffer size.
func New(outputBufferSize int) *FanOut {
	return &FanOut{bufSize: outputBufferSize}
}

// Subscribe registers and returns a new output channel. Must be called
// before Run starts.
func (f *FanOut) Subscribe() <-chan model.Candle {
	ch := make(chan model.Candle, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, ch)
	f.mu.Unlock()
	return ch
}

// Run forwards candles from input to all subscribers until ctx is cancelled
// or input is closed. Subscriber channels are closed on exit.
func (f *FanOut) Run(ctx context.Context, input <-chan model.Candle) {
	defer func() {
		f.mu.RLock()
		for _, ch := range f.outputs {
			close(ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-input:
			if !ok {
				return
			}
			f.mu.RLock()
			for i, ch := range f.outputs {
				select {
				case ch <- candle:
				default:
					if f.OnDrop != nil {
						f.OnDrop(i)
					} else {
						log.Printf("[bus] subscriber %d full, dropping candle %s", i, candle.Pair)
					}
				}
			}
			f.mu.RUnlock()
		}
	}
}
