// Package timewindow normalizes the (start, end, duration) triple every
// time-bounded evidence collector accepts into one concrete interval.
package timewindow

import (
	"time"
)

// DefaultDurationSeconds is the fallback lookback used when a caller
// supplies no duration at all.
const DefaultDurationSeconds = 3600

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// StartMillis returns the window start in Unix milliseconds, the unit
// the log API expects.
func (w Window) StartMillis() int64 {
	return w.Start.UnixMilli()
}

// EndMillis returns the window end in Unix milliseconds.
func (w Window) EndMillis() int64 {
	return w.End.UnixMilli()
}

// Resolve produces a window from optional explicit bounds and a
// fallback duration in seconds, anchored at the current time.
func Resolve(durationSeconds int, start, end *time.Time) Window {
	return ResolveAt(time.Now().UTC(), durationSeconds, start, end)
}

// ResolveAt is the deterministic core of Resolve. Precedence: both
// bounds explicit are used verbatim; an explicit end anchors a window
// of durationSeconds before it; an explicit start runs until now;
// neither bound yields the trailing durationSeconds before now.
// Reversed explicit bounds are swapped so Start never exceeds End.
func ResolveAt(now time.Time, durationSeconds int, start, end *time.Time) Window {
	if durationSeconds <= 0 {
		durationSeconds = DefaultDurationSeconds
	}
	duration := time.Duration(durationSeconds) * time.Second

	var w Window
	switch {
	case start != nil && end != nil:
		w = Window{Start: *start, End: *end}
	case end != nil:
		w = Window{Start: end.Add(-duration), End: *end}
	case start != nil:
		w = Window{Start: *start, End: now}
	default:
		w = Window{Start: now.Add(-duration), End: now}
	}

	if w.Start.After(w.End) {
		w.Start, w.End = w.End, w.Start
	}
	return w
}
