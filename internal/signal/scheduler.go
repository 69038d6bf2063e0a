package signal

import (
	"context"
	"log"
	"time"

	"signal-systemv1/internal/blackout"
)

// SchedulerConfig holds the driver-loop policy.
type SchedulerConfig struct {
	Pairs            []string
	Interval         time.Duration // analysis cadence
	OneSignalAtATime bool
	Window           blackout.Window
	// SuspendEvalInBlackout also pauses the expiration sweep during
	// blackout (historical behavior). When false, open signals keep being
	// evaluated while only generation is suspended.
	SuspendEvalInBlackout bool
}

// Scheduler drives signal generation and lifecycle evaluation at a fixed
// cadence. It is the only goroutine that mutates the lifecycle manager.
type Scheduler struct {
	gen *Generator
	mgr *Manager
	cfg SchedulerConfig

	// Now is the clock used for blackout and sweep decisions; tests
	// override it.
	Now func() time.Time

	// OnCycle is called with each cycle's duration (optional, metrics hook).
	OnCycle func(d time.Duration)
}

// NewScheduler creates a Scheduler.
func NewScheduler(gen *Generator, mgr *Manager, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{gen: gen, mgr: mgr, cfg: cfg, Now: time.Now}
}

// Run executes cycles at the configured interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("[scheduler] analyzing %d pairs every %v (%s)",
		len(s.cfg.Pairs), s.cfg.Interval, s.cfg.Window)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			s.Cycle(ctx)
			if s.OnCycle != nil {
				s.OnCycle(time.Since(start))
			}
		}
	}
}

// Cycle runs one scheduler pass: generation for each eligible pair, then
// the expiration sweep.
func (s *Scheduler) Cycle(ctx context.Context) {
	now := s.Now()

	if s.cfg.Window.Contains(now) {
		if s.cfg.SuspendEvalInBlackout {
			log.Printf("[scheduler] blackout: generation and evaluation paused")
			return
		}
		log.Printf("[scheduler] blackout: generation paused")
		s.mgr.EvaluateAll(ctx, now)
		return
	}

	if s.cfg.OneSignalAtATime && s.mgr.OpenCount() > 0 {
		s.mgr.EvaluateAll(ctx, now)
		return
	}

	for _, pair := range s.cfg.Pairs {
		if s.mgr.InCooldown(pair, now) || s.mgr.HasBaseSignal(pair) {
			continue
		}
		cand, err := s.gen.Analyze(ctx, pair)
		if err != nil {
			log.Printf("[scheduler] analyze %s: %v", pair, err)
			continue
		}
		if cand == nil {
			continue
		}
		if s.mgr.TryOpen(ctx, cand) && s.cfg.OneSignalAtATime {
			break
		}
	}

	s.mgr.EvaluateAll(ctx, s.Now())
}
