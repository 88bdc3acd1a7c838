// Package framecore adapts frame-oriented emulator cores, which run one
// whole frame per call and expose the framebuffer and audio through
// getters, to the driver's backend contract.
package framecore

import (
	"errors"
	"fmt"

	emucore "github.com/user-none/emudriver/api"
)

// Core is the interface a frame-oriented emulator implements.
type Core interface {
	// RunFrame executes one frame of emulation.
	RunFrame()

	// GetFramebuffer returns the current frame as RGBA pixel data.
	GetFramebuffer() []byte

	// GetFramebufferStride returns bytes per row in the framebuffer.
	GetFramebufferStride() int

	// GetActiveHeight returns the current active display height in pixels.
	GetActiveHeight() int

	// GetAudioSamples returns stereo 16-bit PCM audio samples for the frame.
	GetAudioSamples() []int16

	// SetInput sets controller state as a button bitmask for the given player.
	SetInput(player int, buttons uint32)

	// GetTiming returns FPS and scanline count for the current region.
	GetTiming() emucore.Timing

	// SetOption applies a core option change identified by key.
	SetOption(key string, value string)

	// Close releases any resources held by the emulator.
	Close()
}

// SaveStater enables save states and rewind.
type SaveStater interface {
	// Serialize captures the complete emulator state.
	Serialize() ([]byte, error)

	// Deserialize restores emulator state from previously serialized data.
	Deserialize(data []byte) error
}

// SRAMCore enables SRAM persistence for battery-backed saves.
type SRAMCore interface {
	HasSRAM() bool
	GetSRAM() []byte
	SetSRAM(data []byte)
}

// CoreFactory creates frame cores.
type CoreFactory interface {
	// SystemInfo returns system metadata. The region option is added by
	// the adapter.
	SystemInfo() emucore.SystemInfo

	// CreateEmulator creates a new core for the ROM and region.
	CreateEmulator(rom []byte, region emucore.Region) (Core, error)

	// DetectRegion auto-detects the region from ROM data.
	DetectRegion(rom []byte) (emucore.Region, bool)
}

// ErrNoSaveStates is returned by cores that cannot serialize.
var ErrNoSaveStates = errors.New("core does not support save states")

// RegionOption is the option key selecting the region.
const RegionOption = "region"

// Compile-time interface check.
var _ emucore.Factory = (*Factory)(nil)

// Factory implements emucore.Factory on top of a CoreFactory.
type Factory struct {
	Cores CoreFactory
	// SampleRate is the fixed rate of GetAudioSamples.
	SampleRate int
}

// New returns a factory for cores producing audio at sampleRate.
func New(cores CoreFactory, sampleRate int) *Factory {
	return &Factory{Cores: cores, SampleRate: sampleRate}
}

// SystemInfo returns the core's metadata with a region option.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	info := f.Cores.SystemInfo()
	if _, ok := info.Option(RegionOption); !ok {
		info.CoreOptions = append(append([]emucore.CoreOption(nil), info.CoreOptions...), emucore.CoreOption{
			Key:            RegionOption,
			Label:          "Region",
			Description:    "Video region, detected from the ROM when auto",
			Type:           emucore.CoreOptionSelect,
			Default:        "auto",
			Values:         []string{"auto", "ntsc", "pal"},
			RequiresReload: true,
		})
	}
	return info
}

// DetectRegion forwards to the core factory.
func (f *Factory) DetectRegion(data []byte) (emucore.Region, bool) {
	return f.Cores.DetectRegion(data)
}

// Create builds a core and wraps it. Options other than the region are
// passed to the core with SetOption.
func (f *Factory) Create(media emucore.Media, opts map[string]string) (emucore.Backend, error) {
	if f.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	info := f.SystemInfo()
	merged := info.DefaultOptions()
	for k, v := range opts {
		merged[k] = v
	}

	region, ok := emucore.ParseRegion(merged[RegionOption])
	if !ok {
		region, _ = f.Cores.DetectRegion(media.Data)
	}
	core, err := f.Cores.CreateEmulator(media.Data, region)
	if err != nil {
		return nil, err
	}

	a := &adapter{
		core:       core,
		info:       info,
		region:     region,
		sampleRate: f.SampleRate,
		timing:     core.GetTiming(),
	}
	a.saver, _ = core.(SaveStater)
	a.sram, _ = core.(SRAMCore)
	for k, v := range merged {
		if k != RegionOption {
			core.SetOption(k, v)
		}
	}
	return a.wrap(), nil
}

// adapter drives a Core one frame per Step. Its clock is the frame rate:
// every step consumes exactly one cycle.
type adapter struct {
	core       Core
	saver      SaveStater
	sram       SRAMCore
	info       emucore.SystemInfo
	region     emucore.Region
	sampleRate int
	timing     emucore.Timing
	events     []emucore.Event
	stale      bool // framebuffer predates the last RestoreState
}

// wrap exposes SRAM support only when the core has it.
func (a *adapter) wrap() emucore.Backend {
	if a.sram != nil {
		return &sramAdapter{a}
	}
	return a
}

func (a *adapter) Step(in emucore.InputFrame) (emucore.TickResult, error) {
	players := a.info.Players
	if players <= 0 || players > emucore.MaxPlayers {
		players = emucore.MaxPlayers
	}
	for p := 0; p < players; p++ {
		a.core.SetInput(p, in.Players[p])
	}
	a.core.RunFrame()
	a.stale = false

	a.events = a.events[:0]
	if t := a.core.GetTiming(); t != a.timing {
		a.timing = t
		a.events = append(a.events, emucore.Event{Kind: emucore.EventTimingChanged})
	}
	return emucore.TickResult{
		Cycles:     1,
		Audio:      a.core.GetAudioSamples(),
		FrameReady: true,
		Frame:      a.frame(),
		Events:     a.events,
	}, nil
}

func (a *adapter) frame() *emucore.Frame {
	stride := a.core.GetFramebufferStride()
	return &emucore.Frame{
		Pixels: a.core.GetFramebuffer(),
		Width:  stride / 4,
		Height: a.core.GetActiveHeight(),
		Stride: stride,
		Format: emucore.PixelRGBA8888,
	}
}

// RenderFrame returns the last completed frame. After a restore the
// framebuffer still shows the pre-restore picture, so one frame is run
// from the restored state, its pixels kept and the state put back.
func (a *adapter) RenderFrame() *emucore.Frame {
	if !a.stale {
		return a.frame()
	}
	a.stale = false

	saved, err := a.saver.Serialize()
	if err != nil {
		return a.frame()
	}
	a.core.RunFrame()
	f := a.frame()
	f.Pixels = append([]byte(nil), f.Pixels...)
	_ = a.saver.Deserialize(saved)
	return f
}

func (a *adapter) ClockRate() float64 {
	return a.timing.FPS
}

func (a *adapter) VideoTiming() emucore.Timing {
	t := a.timing
	t.Region = a.region
	return t
}

func (a *adapter) AudioSampleRate() int {
	return a.sampleRate
}

func (a *adapter) SerializeState() ([]byte, error) {
	if a.saver == nil {
		return nil, ErrNoSaveStates
	}
	return a.saver.Serialize()
}

func (a *adapter) RestoreState(data []byte) error {
	if a.saver == nil {
		return ErrNoSaveStates
	}
	if err := a.saver.Deserialize(data); err != nil {
		return fmt.Errorf("%w: %v", emucore.ErrStateCorrupt, err)
	}
	a.stale = true
	return nil
}

func (a *adapter) ApplyOptions(opts map[string]string) error {
	if v, ok := opts[RegionOption]; ok {
		if r, known := emucore.ParseRegion(v); !known || r != a.region {
			return fmt.Errorf("%w: %s", emucore.ErrRequiresReload, RegionOption)
		}
	}
	for k := range opts {
		if _, ok := a.info.Option(k); !ok {
			return fmt.Errorf("unknown option %q", k)
		}
	}
	for k, v := range opts {
		if k != RegionOption {
			a.core.SetOption(k, v)
		}
	}
	return nil
}

func (a *adapter) Close() {
	a.core.Close()
}

// sramAdapter adds battery save support.
type sramAdapter struct {
	*adapter
}

func (s *sramAdapter) HasSRAM() bool {
	return s.sram.HasSRAM()
}

func (s *sramAdapter) SRAM() []byte {
	return s.sram.GetSRAM()
}

func (s *sramAdapter) SetSRAM(data []byte) {
	s.sram.SetSRAM(data)
}
