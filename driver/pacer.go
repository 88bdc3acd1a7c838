package driver

import (
	"runtime"
	"time"
)

// pacer keeps emulated time in step with the wall clock. Emulated time
// advances by cycles/clockRate per step, divided by the speed multiplier,
// and is compared against wall time elapsed since the last resync.
type pacer struct {
	clock     Clock
	start     time.Time
	virtual   float64 // emulated seconds since start, speed applied
	speed     float64
	threshold time.Duration
}

func newPacer(clock Clock, threshold time.Duration) *pacer {
	p := &pacer{clock: clock, speed: 1, threshold: threshold}
	p.Resync()
	return p
}

// Resync discards any lead or lag and restarts from now.
func (p *pacer) Resync() {
	p.start = p.clock.Now()
	p.virtual = 0
}

// SetSpeed changes the multiplier. Time already emulated keeps its old
// rate; the anchor moves to now.
func (p *pacer) SetSpeed(speed float64) {
	if speed <= 0 || speed == p.speed {
		return
	}
	p.speed = speed
	p.Resync()
}

func (p *pacer) Speed() float64 {
	return p.speed
}

func (p *pacer) SetThreshold(d time.Duration) {
	p.threshold = d
}

// Advance accounts for one step of the backend.
func (p *pacer) Advance(cycles uint64, clockRate float64) {
	if clockRate <= 0 {
		return
	}
	p.virtual += float64(cycles) / clockRate / p.speed
}

// AdvanceDuration accounts for d of real-time playback, such as a rewind
// frame, independent of speed.
func (p *pacer) AdvanceDuration(d time.Duration) {
	p.virtual += d.Seconds()
}

// Lag returns how far emulated time trails the wall clock at now.
// Negative values mean emulation is ahead.
func (p *pacer) Lag(now time.Time) time.Duration {
	wall := now.Sub(p.start)
	return wall - time.Duration(p.virtual*float64(time.Second))
}

// Wait sleeps off a lead larger than the threshold. Smaller leads only
// yield and are carried into the next iteration. Returns the time slept.
func (p *pacer) Wait(now time.Time) time.Duration {
	lead := -p.Lag(now)
	if lead <= 0 {
		return 0
	}
	if lead <= p.threshold {
		runtime.Gosched()
		return 0
	}
	p.clock.Sleep(lead)
	return lead
}
