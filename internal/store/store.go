// Package store defines the candle history interface consumed by the signal
// engine and a tiered reader combining the hot and durable backends.
package store

import (
	"context"

	"signal-systemv1/internal/model"
)

// CandleStore is one logical candle stream per pair: appendable one candle
// at a time and queryable as "most recent n, newest first".
type CandleStore interface {
	Append(ctx context.Context, c model.Candle) error
	RecentN(ctx context.Context, pair string, n int) ([]model.Candle, error)
}

// Tiered reads from the hot store first and falls back to the durable store
// when the hot store errors or has no history. Appends go to both.
type Tiered struct {
	Hot     CandleStore // may be nil when redis is unavailable
	Durable CandleStore
}

func (t *Tiered) Append(ctx context.Context, c model.Candle) error {
	if t.Hot != nil {
		if err := t.Hot.Append(ctx, c); err != nil {
			return err
		}
	}
	return t.Durable.Append(ctx, c)
}

func (t *Tiered) RecentN(ctx context.Context, pair string, n int) ([]model.Candle, error) {
	if t.Hot != nil {
		candles, err := t.Hot.RecentN(ctx, pair, n)
		if err == nil && len(candles) > 0 {
			return candles, nil
		}
	}
	return t.Durable.RecentN(ctx, pair, n)
}
