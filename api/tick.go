package emucore

import "errors"

// ErrFatal marks an internal backend invariant violation. The session
// cannot continue after a Step returns an error wrapping it.
var ErrFatal = errors.New("fatal backend error")

// ErrStateMismatch is returned by RestoreState when the data was produced
// by a different backend or an incompatible state version.
var ErrStateMismatch = errors.New("state does not match backend")

// ErrStateCorrupt is returned by RestoreState when the data is truncated
// or fails an internal consistency check.
var ErrStateCorrupt = errors.New("corrupt state data")

// ErrRequiresReload is returned by ApplyOptions for options that can only
// be applied by constructing a new backend.
var ErrRequiresReload = errors.New("option requires backend reload")

// PixelFormat tags the layout of Frame.Pixels.
type PixelFormat int

const (
	PixelRGBA8888 PixelFormat = iota
	PixelXRGB8888
	PixelRGB565
)

// BytesPerPixel returns the size of one pixel in the format.
func (f PixelFormat) BytesPerPixel() int {
	if f == PixelRGB565 {
		return 2
	}
	return 4
}

// Frame is a completed video frame handed to the presentation boundary.
// Pixels is owned by the backend and only valid until the next Step.
type Frame struct {
	Pixels []byte
	Width  int
	Height int
	Stride int // bytes per row
	Format PixelFormat
}

// EventKind identifies a backend-reported event.
type EventKind int

const (
	// EventTimingChanged reports a video timing switch (e.g. NTSC/PAL).
	EventTimingChanged EventKind = iota + 1
	// EventSampleRateChanged reports an audio sample rate switch.
	EventSampleRateChanged
	// EventSRAMDirty reports that battery-backed RAM changed and should be persisted.
	EventSRAMDirty
)

// Event is reported by a backend from Step.
type Event struct {
	Kind EventKind
}

// TickResult is the value produced by one Backend.Step.
type TickResult struct {
	// Cycles consumed, in the backend's native clock.
	Cycles uint64
	// Audio holds interleaved stereo int16 samples at AudioSampleRate.
	// May be empty. Owned by the backend until the next Step.
	Audio []int16
	// FrameReady is set when a new video frame completed this step.
	FrameReady bool
	// Frame is the completed frame when FrameReady is set.
	Frame *Frame
	Events []Event
}

// Has reports whether the result carries an event of the given kind.
func (r TickResult) Has(kind EventKind) bool {
	for _, e := range r.Events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}
