package signal

import (
	"context"
	"log"
	"log/slog"
	"time"

	"signal-systemv1/internal/blackout"
	"signal-systemv1/internal/logger"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/notify"
	"signal-systemv1/internal/store"
)

// Journal records signal lifecycle events for after-the-fact auditing.
// A nil Journal disables journaling.
type Journal interface {
	RecordSignalEvent(ctx context.Context, ev model.SignalEvent) error
}

// ManagerConfig holds the lifecycle policy.
type ManagerConfig struct {
	Cooldown          time.Duration // per-pair cooldown between base-signal opens
	ExpirationMinutes int
	MaxGaleLevel      int
	OneSignalAtATime  bool
	Window            blackout.Window
}

// Manager owns the set of open signals. Fresh admission (TryOpen) and gale
// escalation (escalate) are distinct operations: escalation is a lineage
// carry-forward and bypasses blackout, cooldown and exclusivity checks.
//
// The manager is mutated only by the single scheduler goroutine; it carries
// no lock of its own.
type Manager struct {
	store    store.CandleStore
	notifier notify.Notifier
	journal  Journal
	cfg      ManagerConfig

	open     []*model.OpenSignal
	lastOpen map[string]time.Time // pair → last base-signal open

	// Now is the clock used for admission stamps; tests override it.
	Now func() time.Time

	// Metrics hooks (optional).
	OnOpen     func(pair string, direction model.Direction)
	OnEscalate func()
	OnResolve  func(result string) // "win" or "loss_final"
}

// NewManager creates a lifecycle manager.
func NewManager(st store.CandleStore, n notify.Notifier, j Journal, cfg ManagerConfig) *Manager {
	return &Manager{
		store:    st,
		notifier: n,
		journal:  j,
		cfg:      cfg,
		lastOpen: make(map[string]time.Time),
		Now:      time.Now,
	}
}

// OpenCount returns the number of currently open signals.
func (m *Manager) OpenCount() int { return len(m.open) }

// HasBaseSignal reports whether a gale-0 signal is open for pair.
func (m *Manager) HasBaseSignal(pair string) bool {
	for _, s := range m.open {
		if s.Pair == pair && s.GaleLevel == 0 {
			return true
		}
	}
	return false
}

// InCooldown reports whether pair's base-signal cooldown has not yet elapsed.
func (m *Manager) InCooldown(pair string, now time.Time) bool {
	last, ok := m.lastOpen[pair]
	return ok && now.Sub(last) < m.cfg.Cooldown
}

// TryOpen admits a fresh candidate as a new gale-0 lineage. Returns false
// when admission is rejected: blackout, existing base signal for the pair,
// cooldown, or one-signal-at-a-time with anything open.
func (m *Manager) TryOpen(ctx context.Context, cand *model.Candidate) bool {
	now := m.Now()

	switch {
	case m.cfg.Window.Contains(now):
		slog.Info("admission rejected: blackout", "pair", cand.Pair)
		return false
	case m.HasBaseSignal(cand.Pair):
		slog.Info("admission rejected: base signal already open", "pair", cand.Pair)
		return false
	case m.InCooldown(cand.Pair, now):
		slog.Info("admission rejected: cooldown", "pair", cand.Pair)
		return false
	case m.cfg.OneSignalAtATime && len(m.open) > 0:
		slog.Info("admission rejected: one-signal-at-a-time", "pair", cand.Pair)
		return false
	}

	s := &model.OpenSignal{
		Pair:       cand.Pair,
		Direction:  cand.Direction,
		EntryPrice: cand.Price,
		RSIAtEntry: cand.RSI,
		Strength:   cand.Strength,
		OpenedAt:   now,
		GaleLevel:  0,
		TraceID:    logger.LineageID(cand.Pair, now),
	}
	tctx := logger.WithTraceID(ctx, s.TraceID)

	s.MessageID = int(m.notifier.Send(tctx, entryMessage(s, m.cfg.ExpirationMinutes)))
	m.open = append(m.open, s)
	m.lastOpen[cand.Pair] = now
	m.record(tctx, s, "open", s.EntryPrice, "")

	slog.Info("signal opened",
		append(logger.Trace(tctx),
			"pair", s.Pair, "direction", string(s.Direction),
			"entry_price", s.EntryPrice, "rsi", s.RSIAtEntry,
			"strength", string(s.Strength), "message_id", s.MessageID)...)
	if m.OnOpen != nil {
		m.OnOpen(s.Pair, s.Direction)
	}
	return true
}

// EvaluateAll sweeps every open signal and resolves those whose expiration
// has elapsed at now. Signals whose pair has no candle data are left open
// and retried on the next sweep — never resolved on missing data.
func (m *Manager) EvaluateAll(ctx context.Context, now time.Time) {
	expiration := time.Duration(m.cfg.ExpirationMinutes) * time.Minute

	kept := m.open[:0]
	var escalated []*model.OpenSignal

	for _, s := range m.open {
		elapsed := now.Sub(s.OpenedAt)
		if elapsed <= expiration {
			kept = append(kept, s)
			continue
		}

		tctx := logger.WithTraceID(ctx, s.TraceID)
		candles, err := m.store.RecentN(ctx, s.Pair, 2)
		if err != nil || len(candles) == 0 {
			log.Printf("[lifecycle] %s: no candle data at resolution (err=%v), deferring", s.Pair, err)
			kept = append(kept, s)
			continue
		}
		current := candles[0].Close // newest first

		win := (s.Direction == model.DirectionCall && current > s.EntryPrice) ||
			(s.Direction == model.DirectionPut && current < s.EntryPrice)

		switch {
		case win:
			m.notifier.SendReply(tctx, winMessage(s, current), notify.Handle(s.MessageID))
			m.record(tctx, s, "win", current, "")
			slog.Info("signal won", append(logger.Trace(tctx),
				"pair", s.Pair, "gale", s.GaleLevel, "current", current)...)
			if m.OnResolve != nil {
				m.OnResolve("win")
			}

		case s.GaleLevel < m.cfg.MaxGaleLevel:
			next := m.escalate(tctx, s, current, now)
			m.notifier.SendReply(tctx, lossEscalationMessage(s, current), notify.Handle(s.MessageID))
			escalated = append(escalated, next)

		default:
			m.notifier.SendReply(tctx, finalLossMessage(s, current), notify.Handle(s.MessageID))
			m.record(tctx, s, "loss_final", current, "")
			slog.Info("signal lost at max gale", append(logger.Trace(tctx),
				"pair", s.Pair, "gale", s.GaleLevel, "current", current)...)
			if m.OnResolve != nil {
				m.OnResolve("loss_final")
			}
		}
	}

	m.open = append(kept, escalated...)
}

// escalate carries a losing lineage forward to the next gale level. This is
// a continuation, not a fresh admission: blackout, cooldown and exclusivity
// checks do not apply, and the cooldown stamp is not touched.
func (m *Manager) escalate(ctx context.Context, prev *model.OpenSignal, current float64, now time.Time) *model.OpenSignal {
	next := &model.OpenSignal{
		Pair:       prev.Pair,
		Direction:  prev.Direction,
		EntryPrice: current,
		RSIAtEntry: prev.RSIAtEntry,
		Strength:   prev.Strength,
		OpenedAt:   now,
		GaleLevel:  prev.GaleLevel + 1,
		TraceID:    prev.TraceID,
	}
	next.MessageID = int(m.notifier.Send(ctx, entryMessage(next, m.cfg.ExpirationMinutes)))
	m.record(ctx, next, "gale", current, "")

	slog.Info("gale escalation", append(logger.Trace(ctx),
		"pair", next.Pair, "gale", next.GaleLevel, "entry_price", current)...)
	if m.OnEscalate != nil {
		m.OnEscalate()
	}
	return next
}

func (m *Manager) record(ctx context.Context, s *model.OpenSignal, event string, price float64, note string) {
	if m.journal == nil {
		return
	}
	ev := model.SignalEvent{
		TraceID:   s.TraceID,
		Pair:      s.Pair,
		Event:     event,
		Direction: s.Direction,
		Gale:      s.GaleLevel,
		Price:     price,
		RSI:       s.RSIAtEntry,
		Note:      note,
		At:        m.Now(),
	}
	if err := m.journal.RecordSignalEvent(ctx, ev); err != nil {
		log.Printf("[lifecycle] journal write failed: %v", err)
	}
}
