package signal

import (
	"context"
	"errors"
	"testing"

	"signal-systemv1/internal/model"
)

// histNewestFirst builds store history (newest first) from chronological closes.
func histNewestFirst(pair string, chronological []float64) []model.Candle {
	out := make([]model.Candle, len(chronological))
	for i, c := range chronological {
		out[len(chronological)-1-i] = model.Candle{Pair: pair, Close: c}
	}
	return out
}

func trendingCloses(start, step float64, n int) []float64 {
	out := make([]float64, n)
	v := start
	for i := range out {
		out[i] = v
		v += step
	}
	return out
}

func TestGenerator_CallOnOversoldDowntrend(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{
		"EURUSD": histNewestFirst("EURUSD", trendingCloses(100, -0.1, 60)),
	}}
	g := NewGenerator(st, GeneratorConfig{
		RSIPeriod: 14, EMAPeriod: 20,
		RSIOversold: 25, RSIOverbought: 75,
		MACDPositive: -100, MACDNegative: 100,
	})

	cand, err := g.Analyze(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand == nil {
		t.Fatal("expected a CALL candidate on a monotone downtrend")
	}
	if cand.Direction != model.DirectionCall {
		t.Errorf("expected CALL, got %s", cand.Direction)
	}
	if cand.RSI != 0 {
		t.Errorf("expected RSI 0 on all-losses history, got %v", cand.RSI)
	}
	if cand.Strength != model.StrengthStrong {
		t.Errorf("expected STRONG at RSI 0, got %s", cand.Strength)
	}
}

func TestGenerator_PutOnOverboughtUptrend(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{
		"GBPUSD": histNewestFirst("GBPUSD", trendingCloses(100, 0.1, 60)),
	}}
	g := NewGenerator(st, GeneratorConfig{
		RSIPeriod: 14, EMAPeriod: 20,
		RSIOversold: 25, RSIOverbought: 75,
		MACDPositive: -100, MACDNegative: 100,
	})

	cand, err := g.Analyze(context.Background(), "GBPUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand == nil || cand.Direction != model.DirectionPut {
		t.Fatalf("expected a PUT candidate on a monotone uptrend, got %+v", cand)
	}
	if cand.Strength != model.StrengthStrong {
		t.Errorf("expected STRONG at RSI 100, got %s", cand.Strength)
	}
}

func TestGenerator_WeakStrengthInMidRange(t *testing.T) {
	// Sawtooth downtrend: deltas alternate +1/-2, so the last 14 deltas have
	// avgGain 0.5 and avgLoss 1.0 → RSI 100*0.5/1.5 ≈ 33.3.
	closes := make([]float64, 61)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		if i%2 == 1 {
			closes[i] = closes[i-1] + 1
		} else {
			closes[i] = closes[i-1] - 2
		}
	}
	st := &fakeStore{candles: map[string][]model.Candle{
		"EURUSD": histNewestFirst("EURUSD", closes),
	}}
	g := NewGenerator(st, GeneratorConfig{
		RSIPeriod: 14, EMAPeriod: 20,
		RSIOversold: 60, RSIOverbought: 99,
		MACDPositive: -100, MACDNegative: 100,
	})

	cand, err := g.Analyze(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand == nil || cand.Direction != model.DirectionCall {
		t.Fatalf("expected a CALL candidate, got %+v", cand)
	}
	if cand.RSI < 30 || cand.RSI > 40 {
		t.Errorf("expected RSI near 33, got %v", cand.RSI)
	}
	if cand.Strength != model.StrengthWeak {
		t.Errorf("expected WEAK in the 20..80 band, got %s", cand.Strength)
	}
}

func TestGenerator_NoCandidateOnFlatMarket(t *testing.T) {
	// Constant closes: RSI saturates to 100 but price == ema, so neither
	// threshold leg completes.
	st := &fakeStore{candles: map[string][]model.Candle{
		"EURUSD": histNewestFirst("EURUSD", trendingCloses(1.1, 0, 60)),
	}}
	g := NewGenerator(st, GeneratorConfig{
		RSIPeriod: 14, EMAPeriod: 20,
		RSIOversold: 25, RSIOverbought: 75,
		MACDPositive: -100, MACDNegative: 100,
	})

	cand, err := g.Analyze(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand != nil {
		t.Errorf("expected no candidate on a flat market, got %+v", cand)
	}
}

func TestGenerator_InsufficientHistory(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{
		"EURUSD": histNewestFirst("EURUSD", trendingCloses(100, -0.1, 5)),
	}}
	g := NewGenerator(st, GeneratorConfig{RSIPeriod: 14, EMAPeriod: 20})

	cand, err := g.Analyze(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("insufficient history must not be an error, got %v", err)
	}
	if cand != nil {
		t.Errorf("expected nil candidate on insufficient history")
	}
}

func TestGenerator_UndefinedMACDSuppresses(t *testing.T) {
	// Enough history for RSI and EMA but below the MACD minimum.
	st := &fakeStore{candles: map[string][]model.Candle{
		"EURUSD": histNewestFirst("EURUSD", trendingCloses(100, -0.1, 20)),
	}}
	g := NewGenerator(st, GeneratorConfig{
		RSIPeriod: 5, EMAPeriod: 5,
		RSIOversold: 25, MACDPositive: -100,
	})

	cand, err := g.Analyze(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand != nil {
		t.Errorf("expected nil candidate while MACD is undefined")
	}
}

func TestGenerator_StoreErrorPropagates(t *testing.T) {
	st := &fakeStore{err: errors.New("redis down")}
	g := NewGenerator(st, GeneratorConfig{RSIPeriod: 14, EMAPeriod: 20})

	if _, err := g.Analyze(context.Background(), "EURUSD"); err == nil {
		t.Error("expected store error to propagate")
	}
}
