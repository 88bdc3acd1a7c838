package audio

import (
	"fmt"
	"io"
	"math"
)

// Policy holds the buffer management thresholds. Watermarks are fractions
// of the configured buffer depth.
type Policy struct {
	// LowWater is the fill level below which production is sped up.
	LowWater float64
	// HighWater is the fill level above which production is slowed down.
	// It also marks the buffer as saturated for frame-drop decisions.
	HighWater float64
	// MaxStretch bounds the resample ratio adjustment (0.005 = ±0.5%).
	MaxStretch float64
}

// DefaultPolicy keeps the buffer between a quarter and three quarters full
// with at most half a percent of pitch change.
var DefaultPolicy = Policy{LowWater: 0.25, HighWater: 0.75, MaxStretch: 0.005}

// Validate reports whether the thresholds are usable.
func (p Policy) Validate() error {
	if p.LowWater < 0 || p.HighWater > 1 || p.LowWater >= p.HighWater {
		return fmt.Errorf("watermarks must satisfy 0 <= low < high <= 1 (low=%.2f high=%.2f)", p.LowWater, p.HighWater)
	}
	if p.MaxStretch < 0 || p.MaxStretch > 0.1 {
		return fmt.Errorf("max stretch %.4f out of range 0-0.1", p.MaxStretch)
	}
	return nil
}

// Tap receives every batch of resampled frames pushed into the ring.
// It is called on the producer goroutine.
type Tap interface {
	WriteFrames(frames []uint32) error
}

// Stats is a buffer-health snapshot. Overflow and underflow are handled
// locally and only ever observable here.
type Stats struct {
	Buffered   int
	Limit      int
	Fill       float64
	Stretch    float64
	Overflows  uint64
	Dropped    uint64
	Underruns  uint64
	Pushed     uint64 // frames produced after resampling
	SourceRate int
	HostRate   int
}

// Engine resamples backend audio to the host rate and feeds the ring.
// Every method except Reader must be called from the producer goroutine.
type Engine struct {
	ring *Ring
	rs   *Resampler

	hostRate   int
	sourceRate int
	speed      float64
	policy     Policy
	stretch    float64
	muted      bool

	tap    Tap
	out    []uint32
	pushed uint64
}

// NewEngine creates an engine for a host device running at hostRate with
// a ring allocated for capacity frames. The buffer depth starts at the
// full capacity.
func NewEngine(hostRate, sourceRate, capacity int, policy Policy) (*Engine, error) {
	if hostRate <= 0 || sourceRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates (host %d, source %d)", hostRate, sourceRate)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid ring capacity %d", capacity)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		ring:       NewRing(capacity),
		rs:         NewResampler(float64(sourceRate), float64(hostRate)),
		hostRate:   hostRate,
		sourceRate: sourceRate,
		speed:      1,
		policy:     policy,
		stretch:    1,
		out:        make([]uint32, 0, 4096),
	}
	return e, nil
}

// Reader returns the consumer side of the ring for the host device.
func (e *Engine) Reader() io.Reader {
	return e.ring
}

// Ring exposes the underlying ring.
func (e *Engine) Ring() *Ring {
	return e.ring
}

// HostRate returns the fixed host sample rate.
func (e *Engine) HostRate() int {
	return e.hostRate
}

// SetTap installs or removes (nil) a tap.
func (e *Engine) SetTap(t Tap) {
	e.tap = t
}

// SetSourceRate switches the backend sample rate, keeping the phase.
func (e *Engine) SetSourceRate(rate int) {
	if rate <= 0 {
		return
	}
	e.sourceRate = rate
	e.updateRatio()
}

// SetSpeed folds the emulation speed multiplier into the source rate so
// that fast-forwarded audio does not pile up in the buffer.
func (e *Engine) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	e.speed = speed
	e.updateRatio()
}

// SetMuted discards pushed audio while set.
func (e *Engine) SetMuted(m bool) {
	e.muted = m
}

// SetPolicy replaces the watermark policy. Invalid policies are rejected.
func (e *Engine) SetPolicy(p Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.policy = p
	return nil
}

// SetDepth sets the buffer depth in frames, clamped to the ring capacity.
func (e *Engine) SetDepth(frames int) {
	e.ring.SetLimit(frames)
}

// DepthForLatency converts a latency in milliseconds to host frames.
func DepthForLatency(hostRate, ms int) int {
	return hostRate * ms / 1000
}

// Clear drops all buffered audio and the resampler phase.
// Used when entering rewind or after loading a state.
func (e *Engine) Clear() {
	e.ring.Clear()
	e.rs.Reset()
}

// Push resamples one tick's worth of interleaved stereo samples into the
// ring. It never blocks.
func (e *Engine) Push(samples []int16) {
	if len(samples) < 2 || e.muted {
		return
	}
	e.adjustStretch()
	e.out = e.rs.Process(samples, e.out[:0])
	if len(e.out) == 0 {
		return
	}
	if e.tap != nil {
		// A failing tap must not disturb playback.
		if err := e.tap.WriteFrames(e.out); err != nil {
			e.tap = nil
		}
	}
	e.ring.Write(e.out)
	e.pushed += uint64(len(e.out))
}

// adjustStretch applies a bounded proportional correction to the
// resample ratio based on how far the fill level is from the middle of
// the watermark band.
func (e *Engine) adjustStretch() {
	limit := e.ring.Limit()
	if limit == 0 {
		return
	}
	fill := float64(e.ring.Buffered()) / float64(limit)
	target := (e.policy.LowWater + e.policy.HighWater) / 2
	half := (e.policy.HighWater - e.policy.LowWater) / 2

	errFrac := (fill - target) / half
	errFrac = math.Max(-1, math.Min(1, errFrac))
	stretch := 1 + e.policy.MaxStretch*errFrac
	if stretch != e.stretch {
		e.stretch = stretch
		e.updateRatio()
	}
}

func (e *Engine) updateRatio() {
	e.rs.SetRatio(float64(e.sourceRate) * e.speed / float64(e.hostRate) * e.stretch)
}

// Fill returns buffered frames as a fraction of the buffer depth.
func (e *Engine) Fill() float64 {
	limit := e.ring.Limit()
	if limit == 0 {
		return 0
	}
	return float64(e.ring.Buffered()) / float64(limit)
}

// Saturated reports whether the buffer is at or above the high watermark.
func (e *Engine) Saturated() bool {
	return e.Fill() >= e.policy.HighWater
}

// Stats returns a buffer-health snapshot.
func (e *Engine) Stats() Stats {
	overflows, dropped, underruns := e.ring.Counters()
	return Stats{
		Buffered:   e.ring.Buffered(),
		Limit:      e.ring.Limit(),
		Fill:       e.Fill(),
		Stretch:    e.stretch,
		Overflows:  overflows,
		Dropped:    dropped,
		Underruns:  underruns,
		Pushed:     e.pushed,
		SourceRate: e.sourceRate,
		HostRate:   e.hostRate,
	}
}

// Close stops the ring; the host device drains the rest and sees io.EOF.
func (e *Engine) Close() {
	e.ring.Close()
}
