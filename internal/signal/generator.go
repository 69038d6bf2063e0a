// Package signal contains the signal generator, the lifecycle manager and
// the scheduler that drives them.
package signal

import (
	"context"
	"fmt"
	"log"

	"signal-systemv1/internal/indicator"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/store"
)

// GeneratorConfig holds the entry-threshold policy.
type GeneratorConfig struct {
	RSIPeriod     int
	EMAPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	MACDPositive  float64
	MACDNegative  float64
}

// Generator computes indicators over recent candle history and applies the
// entry-threshold policy. It produces at most one candidate per Analyze call.
type Generator struct {
	store    store.CandleStore
	cfg      GeneratorConfig
	historyN int
}

// NewGenerator creates a Generator reading from st.
func NewGenerator(st store.CandleStore, cfg GeneratorConfig) *Generator {
	n := cfg.RSIPeriod + 1
	if cfg.EMAPeriod > n {
		n = cfg.EMAPeriod
	}
	if indicator.MACDMinHistory > n {
		n = indicator.MACDMinHistory
	}
	// Extra history so the EMA seed has converged by the last close.
	if n < 60 {
		n = 60
	}
	return &Generator{store: st, cfg: cfg, historyN: n}
}

// Analyze fetches recent candles for pair and returns a candidate, or nil
// when no entry criteria are met or history is insufficient. CALL is checked
// before PUT, so a misconfigured threshold overlap resolves in CALL's favor.
func (g *Generator) Analyze(ctx context.Context, pair string) (*model.Candidate, error) {
	candles, err := g.store.RecentN(ctx, pair, g.historyN)
	if err != nil {
		return nil, fmt.Errorf("fetch candles for %s: %w", pair, err)
	}
	if len(candles) < g.cfg.RSIPeriod+1 {
		log.Printf("[generator] %s: insufficient history (%d candles, need %d)",
			pair, len(candles), g.cfg.RSIPeriod+1)
		return nil, nil
	}

	// RecentN is newest first; indicators want chronological order.
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[len(candles)-1-i] = c.Close
	}
	price := closes[len(closes)-1]

	rsi, rsiOK := indicator.RSI(closes, g.cfg.RSIPeriod)
	ema, emaOK := indicator.EMA(closes, g.cfg.EMAPeriod)
	macd, macdOK := indicator.MACDLine(closes)
	if !rsiOK || !emaOK || !macdOK {
		log.Printf("[generator] %s: indicators undefined (rsi=%v ema=%v macd=%v)",
			pair, rsiOK, emaOK, macdOK)
		return nil, nil
	}

	log.Printf("[generator] %s: price=%.5f rsi=%.1f ema=%.5f macd=%.6f",
		pair, price, rsi, ema, macd)

	strength := model.StrengthWeak
	if rsi < 20 || rsi > 80 {
		strength = model.StrengthStrong
	}

	if rsi < g.cfg.RSIOversold && price < ema && macd > g.cfg.MACDPositive {
		return &model.Candidate{
			Pair:      pair,
			Direction: model.DirectionCall,
			Price:     price,
			RSI:       rsi,
			Strength:  strength,
		}, nil
	}
	if rsi > g.cfg.RSIOverbought && price > ema && macd < g.cfg.MACDNegative {
		return &model.Candidate{
			Pair:      pair,
			Direction: model.DirectionPut,
			Price:     price,
			RSI:       rsi,
			Strength:  strength,
		}, nil
	}
	return nil, nil
}
