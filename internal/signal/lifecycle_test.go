package signal

import (
	"context"
	"testing"
	"time"

	"signal-systemv1/internal/blackout"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/notify"
)

// fakeStore serves canned candle history, newest first.
type fakeStore struct {
	candles map[string][]model.Candle
	err     error
}

func (f *fakeStore) Append(ctx context.Context, c model.Candle) error { return nil }

func (f *fakeStore) RecentN(ctx context.Context, pair string, n int) ([]model.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	cs := f.candles[pair]
	if len(cs) > n {
		cs = cs[:n]
	}
	return cs, nil
}

// setClose makes pair's latest close the given price.
func (f *fakeStore) setClose(pair string, price float64) {
	f.candles[pair] = []model.Candle{
		{Pair: pair, Close: price},
		{Pair: pair, Close: price},
	}
}

type sentMsg struct {
	text    string
	replyTo notify.Handle
}

// fakeNotifier records deliveries and hands out sequential handles.
type fakeNotifier struct {
	msgs []sentMsg
	next notify.Handle
}

func (f *fakeNotifier) Send(ctx context.Context, text string) notify.Handle {
	f.next++
	f.msgs = append(f.msgs, sentMsg{text: text})
	return f.next
}

func (f *fakeNotifier) SendReply(ctx context.Context, text string, replyTo notify.Handle) notify.Handle {
	f.next++
	f.msgs = append(f.msgs, sentMsg{text: text, replyTo: replyTo})
	return f.next
}

func callCandidate(pair string, price float64) *model.Candidate {
	return &model.Candidate{
		Pair:      pair,
		Direction: model.DirectionCall,
		Price:     price,
		RSI:       18,
		Strength:  model.StrengthStrong,
	}
}

func newTestManager(st *fakeStore, n *fakeNotifier, cfg ManagerConfig) *Manager {
	m := NewManager(st, n, nil, cfg)
	return m
}

func TestManager_ExpirationTiming(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{}}
	st.setClose("EURUSD", 1.2) // above entry → CALL win once expired
	n := &fakeNotifier{}
	m := newTestManager(st, n, ManagerConfig{
		Cooldown:          time.Minute,
		ExpirationMinutes: 1,
		MaxGaleLevel:      3,
	})

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return t0 }
	if !m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1)) {
		t.Fatal("expected admission")
	}

	m.EvaluateAll(context.Background(), t0.Add(59*time.Second))
	if m.OpenCount() != 1 {
		t.Fatalf("expected signal still open at +59s, got %d open", m.OpenCount())
	}

	m.EvaluateAll(context.Background(), t0.Add(61*time.Second))
	if m.OpenCount() != 0 {
		t.Fatalf("expected signal resolved at +61s, got %d open", m.OpenCount())
	}

	// Entry message + win reply, threaded to the entry handle.
	if len(n.msgs) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(n.msgs))
	}
	if n.msgs[1].replyTo != 1 {
		t.Errorf("expected win reply threaded to handle 1, got %d", n.msgs[1].replyTo)
	}
}

func TestManager_GaleEscalation(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{}}
	st.setClose("EURUSD", 1.05) // below CALL entry → loss
	n := &fakeNotifier{}
	m := newTestManager(st, n, ManagerConfig{
		ExpirationMinutes: 1,
		MaxGaleLevel:      3,
	})

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return t0 }
	m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1))

	sweep := t0.Add(2 * time.Minute)
	m.EvaluateAll(context.Background(), sweep)

	if m.OpenCount() != 1 {
		t.Fatalf("expected exactly one escalated signal, got %d", m.OpenCount())
	}
	s := m.open[0]
	if s.GaleLevel != 1 {
		t.Errorf("expected gale=1, got %d", s.GaleLevel)
	}
	if s.EntryPrice != 1.05 {
		t.Errorf("expected entry rewritten to 1.05, got %v", s.EntryPrice)
	}
	if !s.OpenedAt.Equal(sweep) {
		t.Errorf("expected openedAt rewritten to sweep time")
	}
	if s.Direction != model.DirectionCall {
		t.Errorf("escalation must carry the direction forward")
	}

	// Entry, gale entry, then the loss reply threaded to the original entry.
	if len(n.msgs) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(n.msgs))
	}
	if n.msgs[2].replyTo != 1 {
		t.Errorf("expected loss reply threaded to handle 1, got %d", n.msgs[2].replyTo)
	}
	if s.MessageID != 2 {
		t.Errorf("expected escalated signal to hold the fresh handle 2, got %d", s.MessageID)
	}
}

func TestManager_FinalLossEndsLineage(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{}}
	st.setClose("EURUSD", 1.05)
	n := &fakeNotifier{}
	m := newTestManager(st, n, ManagerConfig{
		ExpirationMinutes: 1,
		MaxGaleLevel:      0, // losses are final immediately
	})

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return t0 }
	m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1))
	m.EvaluateAll(context.Background(), t0.Add(2*time.Minute))

	if m.OpenCount() != 0 {
		t.Fatalf("expected lineage removed at max gale, got %d open", m.OpenCount())
	}
	if len(n.msgs) != 2 {
		t.Fatalf("expected entry + final-loss reply, got %d messages", len(n.msgs))
	}
}

func TestManager_EscalationChainToFinalLoss(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{}}
	st.setClose("EURUSD", 1.05)
	n := &fakeNotifier{}
	m := newTestManager(st, n, ManagerConfig{
		ExpirationMinutes: 1,
		MaxGaleLevel:      2,
	})

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return now }
	m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1))

	for gale := 1; gale <= 2; gale++ {
		now = now.Add(2 * time.Minute)
		st.setClose("EURUSD", 1.05-0.01*float64(gale)) // keeps losing
		m.EvaluateAll(context.Background(), now)
		if m.OpenCount() != 1 {
			t.Fatalf("gale %d: expected lineage alive, got %d open", gale, m.OpenCount())
		}
		if got := m.open[0].GaleLevel; got != gale {
			t.Fatalf("expected gale=%d, got %d", gale, got)
		}
	}

	now = now.Add(2 * time.Minute)
	st.setClose("EURUSD", 0.5)
	m.EvaluateAll(context.Background(), now)
	if m.OpenCount() != 0 {
		t.Errorf("expected lineage ended after loss at max gale, got %d open", m.OpenCount())
	}
}

func TestManager_CooldownRejectsSecondOpen(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{}}
	st.setClose("EURUSD", 1.2)
	m := newTestManager(st, &fakeNotifier{}, ManagerConfig{
		Cooldown:          300 * time.Second,
		ExpirationMinutes: 1,
		MaxGaleLevel:      3,
	})

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return t0 }
	if !m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1)) {
		t.Fatal("expected first admission")
	}
	m.EvaluateAll(context.Background(), t0.Add(2*time.Minute)) // win, removed

	m.Now = func() time.Time { return t0.Add(200 * time.Second) }
	if m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1)) {
		t.Error("expected rejection inside cooldown")
	}

	m.Now = func() time.Time { return t0.Add(301 * time.Second) }
	if !m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1)) {
		t.Error("expected admission after cooldown elapsed")
	}
}

func TestManager_BaseSignalExclusivity(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{}}
	m := newTestManager(st, &fakeNotifier{}, ManagerConfig{
		ExpirationMinutes: 1,
		MaxGaleLevel:      3,
	})
	m.Now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1))
	if m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1)) {
		t.Error("expected rejection while a gale-0 signal is open for the pair")
	}
	if !m.TryOpen(context.Background(), callCandidate("GBPUSD", 1.3)) {
		t.Error("expected admission for a different pair")
	}
}

func TestManager_OneSignalAtATime(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{}}
	m := newTestManager(st, &fakeNotifier{}, ManagerConfig{
		ExpirationMinutes: 1,
		MaxGaleLevel:      3,
		OneSignalAtATime:  true,
	})
	m.Now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1))
	if m.TryOpen(context.Background(), callCandidate("GBPUSD", 1.3)) {
		t.Error("expected rejection while any signal is open system-wide")
	}
}

func TestManager_MissingDataDefersResolution(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{}} // no candles at all
	m := newTestManager(st, &fakeNotifier{}, ManagerConfig{
		ExpirationMinutes: 1,
		MaxGaleLevel:      3,
	})

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return t0 }
	m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1))

	m.EvaluateAll(context.Background(), t0.Add(5*time.Minute))
	if m.OpenCount() != 1 {
		t.Fatalf("expected deferral on missing data, got %d open", m.OpenCount())
	}

	// Data shows up later: resolved on the next sweep.
	st.setClose("EURUSD", 1.2)
	m.EvaluateAll(context.Background(), t0.Add(6*time.Minute))
	if m.OpenCount() != 0 {
		t.Errorf("expected resolution once data is available, got %d open", m.OpenCount())
	}
}

func TestManager_BlackoutRejectsAdmission(t *testing.T) {
	st := &fakeStore{candles: map[string][]model.Candle{}}
	m := newTestManager(st, &fakeNotifier{}, ManagerConfig{
		ExpirationMinutes: 1,
		MaxGaleLevel:      3,
		Window:            blackout.Window{Enabled: true, StartHour: 23, EndHour: 5},
	})

	m.Now = func() time.Time { return time.Date(2025, 3, 10, 0, 30, 0, 0, time.UTC) }
	if m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1)) {
		t.Error("expected rejection during blackout (hour 0 with window 23→5)")
	}

	m.Now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	if !m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1)) {
		t.Error("expected admission outside blackout (hour 12)")
	}
}

func TestManager_EscalationBypassesBlackout(t *testing.T) {
	// A gale escalation is a lineage continuation: it must proceed even if
	// the sweep happens to run inside the blackout window.
	st := &fakeStore{candles: map[string][]model.Candle{}}
	st.setClose("EURUSD", 1.05)
	m := newTestManager(st, &fakeNotifier{}, ManagerConfig{
		ExpirationMinutes: 1,
		MaxGaleLevel:      3,
		Window:            blackout.Window{Enabled: true, StartHour: 23, EndHour: 5},
	})

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m.Now = func() time.Time { return t0 }
	m.TryOpen(context.Background(), callCandidate("EURUSD", 1.1))

	inBlackout := time.Date(2025, 3, 11, 0, 15, 0, 0, time.UTC)
	m.EvaluateAll(context.Background(), inBlackout)
	if m.OpenCount() != 1 || m.open[0].GaleLevel != 1 {
		t.Errorf("expected escalation to gale 1 despite blackout")
	}
}
