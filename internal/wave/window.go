package wave

import (
	"strings"
	"time"
)

// TimeWindow restricts proximity results by when the activity happens.
type TimeWindow string

const (
	WindowAny   TimeWindow = "any"
	WindowNow   TimeWindow = "now"
	WindowToday TimeWindow = "today"
	WindowWeek  TimeWindow = "week"
)

// ParseTimeWindow accepts the wire names; empty means WindowAny.
func ParseTimeWindow(s string) (TimeWindow, error) {
	switch w := TimeWindow(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return WindowAny, nil
	case WindowAny, WindowNow, WindowToday, WindowWeek:
		return w, nil
	default:
		return "", Invalid("window", "unknown time window %q", s)
	}
}

// Contains reports whether w's effective time falls inside the window.
// loc decides where "today" ends; nil means UTC.
func (tw TimeWindow) Contains(w Wave, now time.Time, loc *time.Location) bool {
	at := w.EffectiveTime()
	switch tw {
	case WindowNow:
		return !at.After(now)
	case WindowToday:
		return at.Before(endOfDay(now, loc))
	case WindowWeek:
		return at.Before(now.Add(7 * 24 * time.Hour))
	default:
		return true
	}
}

func endOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

func (tw TimeWindow) String() string {
	if tw == "" {
		return string(WindowAny)
	}
	return string(tw)
}

