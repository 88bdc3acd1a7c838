package driver

import (
	"sync/atomic"
	"time"
)

// watchdog detects a backend step that never returns. The run loop marks
// the start and end of every step; the Run goroutine polls Expired.
type watchdog struct {
	started  atomic.Int64 // unix nanos of the running step, 0 when idle
	deadline atomic.Int64
}

func newWatchdog(deadline time.Duration) *watchdog {
	w := &watchdog{}
	w.SetDeadline(deadline)
	return w
}

func (w *watchdog) SetDeadline(d time.Duration) {
	w.deadline.Store(int64(d))
}

func (w *watchdog) Deadline() time.Duration {
	return time.Duration(w.deadline.Load())
}

// Begin marks the start of a step.
func (w *watchdog) Begin(now time.Time) {
	w.started.Store(now.UnixNano())
}

// End marks the step as returned.
func (w *watchdog) End() {
	w.started.Store(0)
}

// Expired reports whether the current step has run past the deadline.
func (w *watchdog) Expired(now time.Time) bool {
	start := w.started.Load()
	if start == 0 {
		return false
	}
	d := w.deadline.Load()
	return d > 0 && now.UnixNano()-start > d
}

// pollInterval is how often Run checks the watchdog.
func (w *watchdog) pollInterval() time.Duration {
	p := w.Deadline() / 4
	if p < 5*time.Millisecond {
		p = 5 * time.Millisecond
	}
	return p
}
