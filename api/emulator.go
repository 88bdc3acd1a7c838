package emucore

// Backend is the contract every emulated console module must implement.
// The driver owns exactly one Backend per session and never inspects its
// concrete type; all calls happen on the driver's run-loop goroutine.
type Backend interface {
	// Step advances emulation by the backend's natural minimal unit
	// (a scanline, an instruction batch, a whole frame). It must be
	// deterministic for identical prior state and input. An error wrapping
	// ErrFatal means an internal invariant was violated.
	Step(in InputFrame) (TickResult, error)

	// ClockRate returns the native master clock in Hz. TickResult.Cycles
	// is expressed in this clock.
	ClockRate() float64

	// VideoTiming returns the frame rate, line count and region.
	VideoTiming() Timing

	// AudioSampleRate returns the rate of the stereo samples in TickResult.Audio.
	AudioSampleRate() int

	// SerializeState captures the complete backend state.
	SerializeState() ([]byte, error)

	// RestoreState replaces the backend state with previously serialized
	// data. It returns an error wrapping ErrStateMismatch or ErrStateCorrupt
	// without modifying the running state when the data is unusable.
	RestoreState(data []byte) error

	// ApplyOptions changes backend-specific options. Options that can only
	// be taken at construction return an error wrapping ErrRequiresReload.
	ApplyOptions(opts map[string]string) error

	// Close releases any resources held by the backend.
	Close()
}

// Resetter is implemented by backends with console reset buttons.
type Resetter interface {
	// SoftReset presses the console reset button.
	SoftReset()

	// HardReset power-cycles the console, keeping the loaded media.
	HardReset()
}

// BatterySaver enables SRAM persistence for battery-backed saves.
type BatterySaver interface {
	// HasSRAM reports whether the loaded media uses battery-backed save.
	HasSRAM() bool

	// SRAM returns a copy of the current SRAM contents.
	SRAM() []byte

	// SetSRAM loads SRAM contents into the backend.
	SetSRAM(data []byte)
}

// FrameRenderer is implemented by backends that can rebuild the current
// frame from video state without advancing emulation. The driver uses it
// to refresh the display after a restore or a rewind step.
type FrameRenderer interface {
	RenderFrame() *Frame
}
