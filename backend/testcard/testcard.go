// Package testcard is a deterministic synthetic console. It draws a
// scrolling colour-bar test card, plays a square-wave tone and keeps a
// small battery-backed RAM, exercising every part of the backend contract
// without emulating real hardware.
package testcard

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strconv"

	emucore "github.com/user-none/emudriver/api"
)

// Name is the identity tag embedded in save states.
const Name = "testcard"

// StateVersion is bumped whenever the serialized layout changes.
const StateVersion = 1

// Screen geometry.
const (
	ScreenWidth      = 160
	ScreenHeightNTSC = 120
	ScreenHeightPAL  = 144
)

const (
	cyclesPerLine = 228
	sramSize      = 256
	boxSize       = 8
	toneLevel     = 3000
)

var stateMagic = [4]byte{'T', 'C', 'R', 'D'}

// stateSize is the length of a serialized state.
const stateSize = 4 + 4 + 1 + 8 + 4 + 4 + 4 + 4 + 4 + 1 + sramSize

// Compile-time interface checks.
var (
	_ emucore.Factory       = Factory{}
	_ emucore.Backend       = (*Console)(nil)
	_ emucore.Resetter      = (*Console)(nil)
	_ emucore.BatterySaver  = (*Console)(nil)
	_ emucore.FrameRenderer = (*Console)(nil)
)

// Factory implements emucore.Factory for the test card console.
type Factory struct{}

// SystemInfo returns system metadata.
func (Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:             Name,
		StateVersion:     StateVersion,
		ConsoleName:      "Test Card",
		Extensions:       []string{".tc", ".bin"},
		ScreenWidth:      ScreenWidth,
		MaxScreenHeight:  ScreenHeightPAL,
		PixelAspectRatio: 1.0,
		Players:          2,
		Buttons: []emucore.Button{
			{Name: "A", ID: emucore.ButtonA, DefaultKey: "J", DefaultPad: "A"},
			{Name: "B", ID: emucore.ButtonB, DefaultKey: "K", DefaultPad: "B"},
			{Name: "Start", ID: emucore.ButtonStart, DefaultKey: "Enter", DefaultPad: "Start"},
		},
		CoreOptions: []emucore.CoreOption{
			{
				Key:            "region",
				Label:          "Region",
				Description:    "Video timing, detected from the media header when auto",
				Type:           emucore.CoreOptionSelect,
				Default:        "auto",
				Values:         []string{"auto", "ntsc", "pal"},
				RequiresReload: true,
			},
			{
				Key:            "step",
				Label:          "Step Unit",
				Description:    "Advance one frame or one scanline per step",
				Type:           emucore.CoreOptionSelect,
				Default:        "frame",
				Values:         []string{"frame", "scanline"},
				RequiresReload: true,
			},
			{
				Key:         "palette",
				Label:       "Palette",
				Description: "Colour bars or grayscale ramp",
				Type:        emucore.CoreOptionSelect,
				Default:     "bars",
				Values:      []string{"bars", "gray"},
			},
			{
				Key:         "audioRate",
				Label:       "Audio Rate",
				Description: "Output sample rate of the tone generator",
				Type:        emucore.CoreOptionSelect,
				Default:     "48000",
				Values:      []string{"48000", "44100"},
			},
		},
	}
}

// DetectRegion reads the region from a "TCNT" or "TCPL" media header.
func (Factory) DetectRegion(data []byte) (emucore.Region, bool) {
	if len(data) < 4 {
		return emucore.RegionNTSC, false
	}
	switch string(data[:4]) {
	case "TCNT":
		return emucore.RegionNTSC, true
	case "TCPL":
		return emucore.RegionPAL, true
	}
	return emucore.RegionNTSC, false
}

// Create builds a console for the media. Any media is accepted; its
// checksum seeds the noise generator.
func (f Factory) Create(media emucore.Media, opts map[string]string) (emucore.Backend, error) {
	o := f.SystemInfo().DefaultOptions()
	for k, v := range opts {
		o[k] = v
	}
	if err := checkOptions(o); err != nil {
		return nil, err
	}

	region, ok := emucore.ParseRegion(o["region"])
	if !ok {
		region, _ = f.DetectRegion(media.Data)
	}

	c := &Console{
		region:   region,
		scanline: o["step"] == "scanline",
		seed:     crc32.ChecksumIEEE(media.Data) | 1,
	}
	c.palette = o["palette"]
	c.audioRate, _ = strconv.Atoi(o["audioRate"])
	c.pixels = make([]byte, ScreenWidth*c.activeHeight()*4)
	c.HardReset()
	return c, nil
}

func checkOptions(o map[string]string) error {
	info := Factory{}.SystemInfo()
	for k, v := range o {
		opt, ok := info.Option(k)
		if !ok {
			return fmt.Errorf("unknown option %q", k)
		}
		valid := false
		for _, allowed := range opt.Values {
			if v == allowed {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("option %s: invalid value %q", k, v)
		}
	}
	return nil
}

// Console is one running test card.
type Console struct {
	region    emucore.Region
	scanline  bool
	palette   string
	audioRate int
	seed      uint32

	// Serialized state
	frame     uint64
	line      int
	rng       uint32
	x, y      int32
	phase     uint32
	prevStart bool
	sram      [sramSize]byte

	rateChanged bool
	pixels      []byte
	audio       []int16
	events      []emucore.Event
}

func (c *Console) lines() int {
	if c.region == emucore.RegionPAL {
		return 313
	}
	return 262
}

func (c *Console) fps() int {
	if c.region == emucore.RegionPAL {
		return 50
	}
	return 60
}

func (c *Console) activeHeight() int {
	if c.region == emucore.RegionPAL {
		return ScreenHeightPAL
	}
	return ScreenHeightNTSC
}

// ClockRate returns the master clock: a fixed number of cycles per line.
func (c *Console) ClockRate() float64 {
	return float64(c.fps() * c.lines() * cyclesPerLine)
}

// VideoTiming returns FPS and scanline count for the region.
func (c *Console) VideoTiming() emucore.Timing {
	return emucore.Timing{FPS: float64(c.fps()), Scanlines: c.lines(), Region: c.region}
}

// AudioSampleRate returns the tone generator rate.
func (c *Console) AudioSampleRate() int {
	return c.audioRate
}

// Step runs one frame, or one scanline in scanline mode.
func (c *Console) Step(in emucore.InputFrame) (emucore.TickResult, error) {
	c.audio = c.audio[:0]
	c.events = c.events[:0]
	if c.rateChanged {
		c.rateChanged = false
		c.events = append(c.events, emucore.Event{Kind: emucore.EventSampleRateChanged})
	}

	res := emucore.TickResult{}
	for {
		if c.line < 0 || c.line >= c.lines() {
			return emucore.TickResult{}, fmt.Errorf("%w: scanline %d out of range", emucore.ErrFatal, c.line)
		}
		c.runLine(in)
		res.Cycles += cyclesPerLine
		if c.line == 0 {
			res.FrameReady = true
			res.Frame = c.render()
			break
		}
		if c.scanline {
			break
		}
	}
	res.Audio = c.audio
	res.Events = c.events
	return res, nil
}

// runLine advances one scanline. Input is latched at the start of a frame.
func (c *Console) runLine(in emucore.InputFrame) {
	if c.line == 0 {
		c.latchInput(in)
	}
	c.rng ^= c.rng << 13
	c.rng ^= c.rng >> 17
	c.rng ^= c.rng << 5

	freq := uint64(440)
	if in.Pressed(0, emucore.ButtonA) {
		freq = 880
	}
	step := uint32(freq << 32 / uint64(c.audioRate))
	for i := c.samplesForLine(c.line); i > 0; i-- {
		v := int16(toneLevel)
		if c.phase&0x80000000 != 0 {
			v = -toneLevel
		}
		if in.Pressed(0, emucore.ButtonB) {
			v = 0
		}
		c.audio = append(c.audio, v, v)
		c.phase += step
	}

	c.line++
	if c.line == c.lines() {
		c.line = 0
		c.frame++
	}
}

// samplesForLine spreads one frame of samples evenly over the lines.
func (c *Console) samplesForLine(line int) int {
	perFrame := c.audioRate / c.fps()
	n := c.lines()
	return (line+1)*perFrame/n - line*perFrame/n
}

func (c *Console) latchInput(in emucore.InputFrame) {
	w, h := int32(ScreenWidth-boxSize), int32(c.activeHeight()-boxSize)
	if in.Pressed(0, emucore.ButtonLeft) {
		c.x = (c.x - 1 + w) % w
	}
	if in.Pressed(0, emucore.ButtonRight) {
		c.x = (c.x + 1) % w
	}
	if in.Pressed(0, emucore.ButtonUp) {
		c.y = (c.y - 1 + h) % h
	}
	if in.Pressed(0, emucore.ButtonDown) {
		c.y = (c.y + 1) % h
	}

	start := in.Pressed(0, emucore.ButtonStart)
	if start && !c.prevStart {
		c.sram[c.frame%sramSize]++
		c.events = append(c.events, emucore.Event{Kind: emucore.EventSRAMDirty})
	}
	c.prevStart = start
}

var bars = [8][3]byte{
	{255, 255, 255}, {255, 255, 0}, {0, 255, 255}, {0, 255, 0},
	{255, 0, 255}, {255, 0, 0}, {0, 0, 255}, {0, 0, 0},
}

func (c *Console) render() *emucore.Frame {
	height := c.activeHeight()
	barWidth := ScreenWidth / len(bars)
	shift := int(c.frame % ScreenWidth)
	for y := 0; y < height; y++ {
		row := c.pixels[y*ScreenWidth*4:]
		for x := 0; x < ScreenWidth; x++ {
			var px [3]byte
			switch {
			case x >= int(c.x) && x < int(c.x)+boxSize && y >= int(c.y) && y < int(c.y)+boxSize:
				px = [3]byte{255, 255, 255}
			case y == height-1:
				n := byte(c.rng >> (uint(x) % 24))
				px = [3]byte{n, n, n}
			default:
				b := ((x + shift) % ScreenWidth) / barWidth
				px = bars[b]
				if c.palette == "gray" {
					g := byte((int(px[0]) + int(px[1]) + int(px[2])) / 3)
					px = [3]byte{g, g, g}
				}
			}
			o := x * 4
			row[o], row[o+1], row[o+2], row[o+3] = px[0], px[1], px[2], 255
		}
	}
	return &emucore.Frame{
		Pixels: c.pixels,
		Width:  ScreenWidth,
		Height: height,
		Stride: ScreenWidth * 4,
		Format: emucore.PixelRGBA8888,
	}
}

// RenderFrame redraws the current frame without advancing emulation.
func (c *Console) RenderFrame() *emucore.Frame {
	return c.render()
}

// SerializeState captures the complete console state.
func (c *Console) SerializeState() ([]byte, error) {
	buf := make([]byte, stateSize)
	copy(buf[0:4], stateMagic[:])
	binary.LittleEndian.PutUint32(buf[4:], StateVersion)
	buf[8] = byte(c.region)
	binary.LittleEndian.PutUint64(buf[9:], c.frame)
	binary.LittleEndian.PutUint32(buf[17:], uint32(c.line))
	binary.LittleEndian.PutUint32(buf[21:], c.rng)
	binary.LittleEndian.PutUint32(buf[25:], uint32(c.x))
	binary.LittleEndian.PutUint32(buf[29:], uint32(c.y))
	binary.LittleEndian.PutUint32(buf[33:], c.phase)
	if c.prevStart {
		buf[37] = 1
	}
	copy(buf[38:], c.sram[:])
	return buf, nil
}

// RestoreState loads a state. The data is fully validated before any
// field is replaced.
func (c *Console) RestoreState(data []byte) error {
	if len(data) != stateSize {
		return fmt.Errorf("%w: state is %d bytes, want %d", emucore.ErrStateCorrupt, len(data), stateSize)
	}
	if [4]byte(data[0:4]) != stateMagic {
		return fmt.Errorf("%w: not a %s state", emucore.ErrStateMismatch, Name)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != StateVersion {
		return fmt.Errorf("%w: state version %d, want %d", emucore.ErrStateMismatch, v, StateVersion)
	}
	if r := emucore.Region(data[8]); r != c.region {
		return fmt.Errorf("%w: state region %s, console is %s", emucore.ErrStateMismatch, r, c.region)
	}
	line := int(binary.LittleEndian.Uint32(data[17:]))
	x := int32(binary.LittleEndian.Uint32(data[25:]))
	y := int32(binary.LittleEndian.Uint32(data[29:]))
	if line < 0 || line >= c.lines() || x < 0 || x >= ScreenWidth || y < 0 || y >= int32(c.activeHeight()) {
		return fmt.Errorf("%w: field out of range", emucore.ErrStateCorrupt)
	}

	c.frame = binary.LittleEndian.Uint64(data[9:])
	c.line = line
	c.rng = binary.LittleEndian.Uint32(data[21:])
	c.x, c.y = x, y
	c.phase = binary.LittleEndian.Uint32(data[33:])
	c.prevStart = data[37] != 0
	copy(c.sram[:], data[38:])
	return nil
}

// ApplyOptions changes palette and audio rate in place. Region and step
// unit changes need a new console.
func (c *Console) ApplyOptions(opts map[string]string) error {
	if err := checkOptions(opts); err != nil {
		return err
	}
	for k, v := range opts {
		switch k {
		case "region":
			r, ok := emucore.ParseRegion(v)
			if !ok || r != c.region {
				return fmt.Errorf("%w: region", emucore.ErrRequiresReload)
			}
		case "step":
			if (v == "scanline") != c.scanline {
				return fmt.Errorf("%w: step", emucore.ErrRequiresReload)
			}
		}
	}
	if v, ok := opts["palette"]; ok {
		c.palette = v
	}
	if v, ok := opts["audioRate"]; ok {
		rate, _ := strconv.Atoi(v)
		if rate != c.audioRate {
			c.audioRate = rate
			c.rateChanged = true
		}
	}
	return nil
}

// SoftReset recentres the box and restarts the frame.
func (c *Console) SoftReset() {
	c.x = int32(ScreenWidth-boxSize) / 2
	c.y = int32(c.activeHeight()-boxSize) / 2
	c.line = 0
}

// HardReset restores the power-on state. SRAM survives.
func (c *Console) HardReset() {
	c.frame = 0
	c.rng = c.seed
	c.phase = 0
	c.prevStart = false
	c.SoftReset()
}

// HasSRAM reports battery-backed RAM; the test card always has it.
func (c *Console) HasSRAM() bool {
	return true
}

// SRAM returns a copy of the battery-backed RAM.
func (c *Console) SRAM() []byte {
	return append([]byte(nil), c.sram[:]...)
}

// SetSRAM loads battery-backed RAM.
func (c *Console) SetSRAM(data []byte) {
	copy(c.sram[:], data)
}

// Frames returns the number of completed frames.
func (c *Console) Frames() uint64 {
	return c.frame
}

// Close releases nothing; the console holds only memory.
func (c *Console) Close() {}
