package blackout

import (
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2025, 3, 10, hour, 30, 0, 0, time.UTC)
}

func TestWindow_WrapsPastMidnight(t *testing.T) {
	w := Window{Enabled: true, StartHour: 23, EndHour: 5}

	cases := []struct {
		hour int
		want bool
	}{
		{0, true},
		{4, true},
		{5, false},
		{12, false},
		{22, false},
		{23, true},
	}
	for _, c := range cases {
		if got := w.Contains(at(c.hour)); got != c.want {
			t.Errorf("hour %d: expected %v, got %v", c.hour, c.want, got)
		}
	}
}

func TestWindow_SameDayRange(t *testing.T) {
	w := Window{Enabled: true, StartHour: 9, EndHour: 17}

	if !w.Contains(at(9)) {
		t.Errorf("expected hour 9 inside [9,17)")
	}
	if !w.Contains(at(16)) {
		t.Errorf("expected hour 16 inside [9,17)")
	}
	if w.Contains(at(17)) {
		t.Errorf("expected hour 17 outside [9,17)")
	}
	if w.Contains(at(8)) {
		t.Errorf("expected hour 8 outside [9,17)")
	}
}

func TestWindow_Disabled(t *testing.T) {
	w := Window{Enabled: false, StartHour: 0, EndHour: 24}
	if w.Contains(at(12)) {
		t.Errorf("disabled window must never contain anything")
	}
}
