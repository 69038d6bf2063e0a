package agg

import (
	"sync"
	"testing"
	"time"

	"signal-systemv1/internal/model"
)

func TestAggregator_BasicCandle(t *testing.T) {
	a := New()
	windowStart := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	// Ticks at 10:00:05, 10:00:30, 10:00:50 with prices 1, 3, 2.
	a.Ingest(model.Tick{Pair: "EURUSD", Price: 1, Minute: windowStart})
	a.Ingest(model.Tick{Pair: "EURUSD", Price: 3, Minute: windowStart})
	a.Ingest(model.Tick{Pair: "EURUSD", Price: 2, Minute: windowStart})

	candles := a.Flush(windowStart)
	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}

	c := candles[0]
	if c.Open != 1 {
		t.Errorf("expected open=1, got %v", c.Open)
	}
	if c.High != 3 {
		t.Errorf("expected high=3, got %v", c.High)
	}
	if c.Low != 1 {
		t.Errorf("expected low=1, got %v", c.Low)
	}
	if c.Close != 2 {
		t.Errorf("expected close=2, got %v", c.Close)
	}
	if !c.TS.Equal(windowStart) {
		t.Errorf("expected ts=%v, got %v", windowStart, c.TS)
	}
	if c.Ticks != 3 {
		t.Errorf("expected ticks=3, got %d", c.Ticks)
	}
}

func TestAggregator_EmptyWindowProducesNoCandle(t *testing.T) {
	a := New()
	if candles := a.Flush(time.Now().UTC().Truncate(time.Minute)); len(candles) != 0 {
		t.Errorf("expected no candles for empty window, got %d", len(candles))
	}
}

func TestAggregator_FlushResetsBucket(t *testing.T) {
	a := New()
	ws := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	a.Ingest(model.Tick{Pair: "GBPUSD", Price: 5, Minute: ws})
	if got := len(a.Flush(ws)); got != 1 {
		t.Fatalf("expected 1 candle, got %d", got)
	}

	// Next window saw no ticks for the pair: no carry-over candle.
	if got := len(a.Flush(ws.Add(time.Minute))); got != 0 {
		t.Errorf("expected 0 candles after reset, got %d", got)
	}
}

func TestAggregator_MultiplePairs(t *testing.T) {
	a := New()
	ws := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	a.Ingest(model.Tick{Pair: "EURUSD", Price: 1.1, Minute: ws})
	a.Ingest(model.Tick{Pair: "GBPUSD", Price: 1.3, Minute: ws})
	a.Ingest(model.Tick{Pair: "EURUSD", Price: 1.2, Minute: ws})

	candles := a.Flush(ws)
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	byPair := map[string]model.Candle{}
	for _, c := range candles {
		byPair[c.Pair] = c
	}
	if byPair["EURUSD"].Close != 1.2 {
		t.Errorf("expected EURUSD close=1.2, got %v", byPair["EURUSD"].Close)
	}
	if byPair["GBPUSD"].Ticks != 1 {
		t.Errorf("expected GBPUSD ticks=1, got %d", byPair["GBPUSD"].Ticks)
	}
}

func TestAggregator_ConcurrentIngestAndFlush(t *testing.T) {
	// Ticks arriving while flushes run must land in exactly one window:
	// the sum of tick counts over all produced candles plus the final
	// flush must equal the number ingested.
	a := New()
	const total = 20000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			a.Ingest(model.Tick{Pair: "EURUSD", Price: float64(i)})
		}
	}()

	ws := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	counted := 0
	for i := 0; i < 50; i++ {
		for _, c := range a.Flush(ws) {
			counted += c.Ticks
		}
		ws = ws.Add(time.Minute)
	}
	wg.Wait()

	for _, c := range a.Flush(ws) {
		counted += c.Ticks
	}
	if counted != total {
		t.Errorf("expected %d ticks across all flushes, got %d (lost or double-counted)", total, counted)
	}
}
