package calendar

import (
	"fmt"
	"time"
)

// WorkingHours is the ordered list of slot start times shared by every provider.
type WorkingHours struct {
	times []string
	slot  time.Duration
}

func NewWorkingHours(times []string, slot time.Duration) (WorkingHours, error) {
	if len(times) == 0 {
		return WorkingHours{}, fmt.Errorf("working hours are empty")
	}
	if slot <= 0 {
		return WorkingHours{}, fmt.Errorf("slot length must be positive")
	}
	var prev time.Time
	for i, s := range times {
		t, err := parseHHMM(s)
		if err != nil {
			return WorkingHours{}, err
		}
		if i > 0 && !t.After(prev) {
			return WorkingHours{}, fmt.Errorf("working hours must be increasing: %s after %s", s, times[i-1])
		}
		prev = t
	}
	return WorkingHours{times: append([]string(nil), times...), slot: slot}, nil
}

func (w WorkingHours) Times() []string {
	return append([]string(nil), w.times...)
}

// Adjacent reports whether b starts exactly one slot after a. Pairs across
// the midday break are never adjacent.
func (w WorkingHours) Adjacent(a, b string) bool {
	ta, err := parseHHMM(a)
	if err != nil {
		return false
	}
	tb, err := parseHHMM(b)
	if err != nil {
		return false
	}
	return tb.Sub(ta) == w.slot
}

// Next returns the working hour right after t when the two are adjacent.
func (w WorkingHours) Next(t string) (string, bool) {
	for i, s := range w.times {
		if s == t && i+1 < len(w.times) && w.Adjacent(s, w.times[i+1]) {
			return w.times[i+1], true
		}
	}
	return "", false
}

func (w WorkingHours) Contains(t string) bool {
	for _, s := range w.times {
		if s == t {
			return true
		}
	}
	return false
}

func parseHHMM(s string) (time.Time, error) {
	if len(s) != 5 {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	return time.Parse("15:04", s)
}
