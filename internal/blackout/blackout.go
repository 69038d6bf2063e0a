// Package blackout implements the configured daily hour range during which
// no new signals are generated.
package blackout

import (
	"fmt"
	"time"
)

// Window is a daily [StartHour, EndHour) range in local hours (0–23).
// A start hour greater than the end hour means the window wraps past
// midnight (e.g. 23 → 5 covers 23:00–23:59 and 00:00–04:59).
type Window struct {
	Enabled   bool
	StartHour int
	EndHour   int
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Enabled {
		return false
	}
	h := t.Hour()
	if w.StartHour > w.EndHour {
		return h >= w.StartHour || h < w.EndHour
	}
	return w.StartHour <= h && h < w.EndHour
}

// String returns a human-readable description for startup logs.
func (w Window) String() string {
	if !w.Enabled {
		return "blackout disabled"
	}
	return fmt.Sprintf("blackout %02d:00-%02d:00", w.StartHour, w.EndHour)
}
